package conversation

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedLLM struct {
	text     string
	err      error
	requests []LLMRequest
}

func (s *scriptedLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Text: s.text}, nil
}

func TestLLMYesNoInterpreter(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"yes", true},
		{"Yes.", true},
		{"Sí", true},
		{"no", false},
		{"No.", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			llm := &scriptedLLM{text: tt.answer}
			got, err := NewLLMYesNoInterpreter(llm).Classify(context.Background(), SchedulePrompt("yes please"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.Len(t, llm.requests, 1)
			assert.Equal(t, int32(3), llm.requests[0].MaxTokens)
			assert.Contains(t, llm.requests[0].Messages[0].Content, "yes please")
		})
	}
}

func TestLLMYesNoInterpreterError(t *testing.T) {
	_, err := NewLLMYesNoInterpreter(&scriptedLLM{err: errors.New("quota")}).Classify(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotUnderstood)
}

func TestLLMDateTimeInterpreter(t *testing.T) {
	llm := &scriptedLLM{text: "```json\n{\"date\": \"2025-05-15\", \"time\": \"9\"}\n```"}

	dt, err := NewLLMDateTimeInterpreter(llm).Parse(context.Background(), "thursday at 9", tuesday)
	require.NoError(t, err)
	assert.Equal(t, DateTime{Date: "2025-05-15", Time: "09:00"}, dt)
	assert.Contains(t, llm.requests[0].Messages[0].Content, "Tuesday 13 of May of 2025")
	assert.Contains(t, llm.requests[0].Messages[0].Content, "thursday at 9")
}

func TestDecodeDateTimeRejects(t *testing.T) {
	for _, raw := range []string{
		`{"error": "not understood"}`,
		`not json at all`,
		`{"date": "2025-13-40", "time": "10:00"}`,
		`{"date": "2025-05-15", "time": "25:00"}`,
		`{"date": "2025-05-15"}`,
	} {
		_, err := decodeDateTime(raw)
		assert.ErrorIs(t, err, ErrNotUnderstood, raw)
	}
}

func TestLLMDateTimeInterpreterTransportError(t *testing.T) {
	_, err := NewLLMDateTimeInterpreter(&scriptedLLM{err: errors.New("timeout")}).Parse(context.Background(), "x", tuesday)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotUnderstood)
}

func TestFallbackLLMClient(t *testing.T) {
	primary := &scriptedLLM{err: errors.New("primary down")}
	fallback := &scriptedLLM{text: "yes"}

	assert.Same(t, primary, NewFallbackLLMClient(primary, nil, nil))

	client := NewFallbackLLMClient(primary, fallback, nil)
	resp, err := client.Complete(context.Background(), singleTurn("sys", "prompt", 3))
	require.NoError(t, err)
	assert.Equal(t, "yes", resp.Text)
	assert.Len(t, primary.requests, 1)
	assert.Len(t, fallback.requests, 1)

	fallback.err = errors.New("fallback down")
	_, err = client.Complete(context.Background(), singleTurn("sys", "prompt", 3))
	assert.EqualError(t, err, "fallback down")
}

type fakeChat struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestOpenAILLMClient(t *testing.T) {
	fake := &fakeChat{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: " yes "}, FinishReason: openai.FinishReasonStop}},
		Usage:   openai.Usage{PromptTokens: 10, CompletionTokens: 1, TotalTokens: 11},
	}}
	client := NewOpenAILLMClient(fake, "")

	resp, err := client.Complete(context.Background(), singleTurn("Answer yes or no.", "ready?", 3))
	require.NoError(t, err)
	assert.Equal(t, "yes", resp.Text)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, int32(11), resp.Usage.TotalTokens)

	assert.Equal(t, defaultOpenAIModel, fake.req.Model)
	assert.Equal(t, 3, fake.req.MaxTokens)
	require.Len(t, fake.req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, fake.req.Messages[0].Role)
	assert.Equal(t, "ready?", fake.req.Messages[1].Content)

	fake.resp = openai.ChatCompletionResponse{}
	_, err = client.Complete(context.Background(), singleTurn("s", "p", 3))
	assert.ErrorContains(t, err, "no choices")
}

func TestKeywordYesNoInterpreter(t *testing.T) {
	var i KeywordYesNoInterpreter
	yes, err := i.Classify(context.Background(), SchedulePrompt("yes please"))
	require.NoError(t, err)
	assert.True(t, yes)

	yes, _ = i.Classify(context.Background(), SchedulePrompt("ok but not now, later"))
	assert.False(t, yes)

	yes, _ = i.Classify(context.Background(), SchedulePrompt("who knows"))
	assert.False(t, yes)
}

func TestLiteralDateTimeInterpreter(t *testing.T) {
	var i LiteralDateTimeInterpreter

	dt, err := i.Parse(context.Background(), "2025-05-15 at 9", tuesday)
	require.NoError(t, err)
	assert.Equal(t, DateTime{Date: "2025-05-15", Time: "09:00"}, dt)

	dt, err = i.Parse(context.Background(), "how about 2025-05-16 14:30?", tuesday)
	require.NoError(t, err)
	assert.Equal(t, DateTime{Date: "2025-05-16", Time: "14:30"}, dt)

	_, err = i.Parse(context.Background(), "thursday morning", tuesday)
	assert.ErrorIs(t, err, ErrNotUnderstood)
}
