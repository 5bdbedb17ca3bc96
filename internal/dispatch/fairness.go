package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// FairnessStore holds the first-selection rank of each technician. Ranks are
// assigned once, in the order technicians are first offered, and never decay.
type FairnessStore interface {
	// Ranks returns every assigned rank keyed by technician name.
	Ranks(ctx context.Context) (map[string]int, error)
	// AssignIfAbsent gives each unranked name the next rank, in order.
	AssignIfAbsent(ctx context.Context, names []string) error
}

// MemoryFairnessStore keeps ranks for the lifetime of the process.
type MemoryFairnessStore struct {
	mu    sync.RWMutex
	ranks map[string]int
}

func NewMemoryFairnessStore() *MemoryFairnessStore {
	return &MemoryFairnessStore{ranks: make(map[string]int)}
}

func (s *MemoryFairnessStore) Ranks(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.ranks))
	for name, rank := range s.ranks {
		out[name] = rank
	}
	return out, nil
}

func (s *MemoryFairnessStore) AssignIfAbsent(ctx context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if _, ok := s.ranks[name]; !ok {
			s.ranks[name] = len(s.ranks)
		}
	}
	return nil
}

const fairnessKey = "dispatch:fairness"

// assignRanksScript assigns HLEN as the rank of every absent field atomically.
var assignRanksScript = redis.NewScript(`
for _, name in ipairs(ARGV) do
  if redis.call('HEXISTS', KEYS[1], name) == 0 then
    redis.call('HSET', KEYS[1], name, tostring(redis.call('HLEN', KEYS[1])))
  end
end
return redis.call('HLEN', KEYS[1])
`)

// RedisFairnessStore shares ranks across API replicas through a Redis hash.
type RedisFairnessStore struct {
	client *redis.Client
	key    string
	tracer trace.Tracer
}

func NewRedisFairnessStore(client *redis.Client) *RedisFairnessStore {
	return &RedisFairnessStore{
		client: client,
		key:    fairnessKey,
		tracer: otel.Tracer("fieldservice.internal.dispatch.fairness"),
	}
}

func (s *RedisFairnessStore) Ranks(ctx context.Context) (map[string]int, error) {
	ctx, span := s.tracer.Start(ctx, "dispatch.fairness.ranks")
	defer span.End()

	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("dispatch: load fairness ranks: %w", err)
	}
	out := make(map[string]int, len(raw))
	for name, value := range raw {
		rank, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("dispatch: fairness rank for %s: %w", name, err)
		}
		out[name] = rank
	}
	return out, nil
}

func (s *RedisFairnessStore) AssignIfAbsent(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "dispatch.fairness.assign")
	defer span.End()

	args := make([]any, len(names))
	for i, name := range names {
		args[i] = name
	}
	if err := assignRanksScript.Run(ctx, s.client, []string{s.key}, args...).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("dispatch: assign fairness ranks: %w", err)
	}
	return nil
}
