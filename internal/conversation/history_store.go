package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/fieldservice-scheduler/internal/dispatch"
)

// DefaultSessionTTL bounds how long an unanswered proposal or history survives.
const DefaultSessionTTL = 24 * time.Hour

func sessionKey(phone string) string {
	return fmt.Sprintf("session:%s", phone)
}

func historyKey(phone string) string {
	return fmt.Sprintf("history:%s", phone)
}

// RedisSessionStore keeps proposals in Redis as JSON with a TTL, so every API
// replica sees the same pending slot.
type RedisSessionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("fieldservice.internal.conversation.session"),
	}
}

func (s *RedisSessionStore) Load(ctx context.Context, phone string) (dispatch.Proposal, bool, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.session.load")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return dispatch.Proposal{}, false, nil
		}
		span.RecordError(err)
		return dispatch.Proposal{}, false, fmt.Errorf("conversation: failed to load session: %w", err)
	}

	var p dispatch.Proposal
	if err := json.Unmarshal(data, &p); err != nil {
		span.RecordError(err)
		return dispatch.Proposal{}, false, fmt.Errorf("conversation: failed to decode session: %w", err)
	}
	return p, true, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, phone string, p dispatch.Proposal) error {
	ctx, span := s.tracer.Start(ctx, "conversation.session.save")
	defer span.End()

	data, err := json.Marshal(p)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(phone), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, phone string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.session.delete")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(phone)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to delete session: %w", err)
	}
	return nil
}

// RedisHistoryStore keeps each reply as a list entry and refreshes the TTL on
// every append.
type RedisHistoryStore struct {
	redis       *redis.Client
	ttl         time.Duration
	maxMessages int64
	tracer      trace.Tracer
}

func NewRedisHistoryStore(client *redis.Client, ttl time.Duration) *RedisHistoryStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisHistoryStore{
		redis:       client,
		ttl:         ttl,
		maxMessages: 50,
		tracer:      otel.Tracer("fieldservice.internal.conversation.history"),
	}
}

func (s *RedisHistoryStore) Append(ctx context.Context, phone, message string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.history.append")
	defer span.End()

	key := historyKey(phone)
	pipe := s.redis.TxPipeline()
	if msg := strings.TrimSpace(message); msg != "" {
		pipe.RPush(ctx, key, msg)
	}
	pipe.LTrim(ctx, key, -s.maxMessages, -1)
	pipe.Expire(ctx, key, s.ttl)
	entries := pipe.LRange(ctx, key, 0, -1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		return "", fmt.Errorf("conversation: failed to append history: %w", err)
	}
	return strings.Join(entries.Val(), " "), nil
}

func (s *RedisHistoryStore) Clear(ctx context.Context, phone string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.history.clear")
	defer span.End()

	if err := s.redis.Del(ctx, historyKey(phone)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to clear history: %w", err)
	}
	return nil
}
