package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wolfman30/fieldservice-scheduler/internal/schedule"
)

// ErrNotUnderstood is returned when free text cannot be turned into a
// decision or a date and time. The customer is asked to rephrase.
var ErrNotUnderstood = errors.New("conversation: message not understood")

// YesNoInterpreter decides whether a prompt describes an affirmative intent.
type YesNoInterpreter interface {
	Classify(ctx context.Context, prompt string) (bool, error)
}

// DateTime is a customer-requested slot start.
type DateTime struct {
	Date string `json:"date"` // YYYY-MM-DD
	Time string `json:"time"` // HH:MM
}

// DateTimeInterpreter turns free text into a future date and time relative to now.
type DateTimeInterpreter interface {
	Parse(ctx context.Context, text string, now time.Time) (DateTime, error)
}

const yesNoSystemPrompt = "Respond exclusively with 'yes' or 'no'. Do not write anything else."

var affirmativeTokens = []string{"yes", "sí", "si", "quiero", "me sirve"}

// LLMYesNoInterpreter classifies with a completion limited to a single token.
type LLMYesNoInterpreter struct {
	client LLMClient
}

func NewLLMYesNoInterpreter(client LLMClient) *LLMYesNoInterpreter {
	return &LLMYesNoInterpreter{client: client}
}

func (i *LLMYesNoInterpreter) Classify(ctx context.Context, prompt string) (bool, error) {
	resp, err := i.client.Complete(ctx, singleTurn(yesNoSystemPrompt, prompt, 3))
	if err != nil {
		return false, fmt.Errorf("conversation: classify yes/no: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(resp.Text))
	for _, token := range affirmativeTokens {
		if strings.Contains(answer, token) {
			return true, nil
		}
	}
	return false, nil
}

// SchedulePrompt is the yes/no question asked about the accumulated history.
func SchedulePrompt(history string) string {
	return fmt.Sprintf("The client wrote: %q. Do they wish to schedule an appointment?", history)
}

const dateTimeSystemPrompt = "You are an assistant that converts natural language into future dates and times."

const dateTimePromptTemplate = `Today is %s. The client wrote: %q.

Interpret the client's intention as a future date and time, even if expressed informally or partially.

Examples:
- "Wednesday at 10" -> next Wednesday at 10:00
- "tomorrow at 9" -> tomorrow's date, time 09:00
- "Thursday afternoon" -> next Thursday, 15:00
- "around 4" or "like 3" -> 16:00 or 15:00
- "at half past 10" -> 10:30
- "May 14th at 8:30" -> that exact date and time

Always assume a future intention (today or later). Use the current year when none is given.

Return ONLY a JSON object with the fields:
{"date": "YYYY-MM-DD", "time": "HH:MM"}

If you cannot understand the date or time, respond exactly:
{"error": "not understood"}`

// LLMDateTimeInterpreter extracts a date and time with a JSON-only completion.
type LLMDateTimeInterpreter struct {
	client LLMClient
}

func NewLLMDateTimeInterpreter(client LLMClient) *LLMDateTimeInterpreter {
	return &LLMDateTimeInterpreter{client: client}
}

func (i *LLMDateTimeInterpreter) Parse(ctx context.Context, text string, now time.Time) (DateTime, error) {
	prompt := fmt.Sprintf(dateTimePromptTemplate, now.Format("Monday 02 of January of 2006"), text)
	resp, err := i.client.Complete(ctx, singleTurn(dateTimeSystemPrompt, prompt, 100))
	if err != nil {
		return DateTime{}, fmt.Errorf("conversation: interpret date/time: %w", err)
	}
	return decodeDateTime(resp.Text)
}

func decodeDateTime(raw string) (DateTime, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var decoded struct {
		DateTime
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &decoded); err != nil {
		return DateTime{}, fmt.Errorf("%w: %v", ErrNotUnderstood, err)
	}
	if decoded.Error != "" || decoded.Date == "" || decoded.Time == "" {
		return DateTime{}, ErrNotUnderstood
	}
	if _, err := time.Parse("2006-01-02", decoded.Date); err != nil {
		return DateTime{}, fmt.Errorf("%w: date %q", ErrNotUnderstood, decoded.Date)
	}
	clock, err := schedule.NormalizeClock(decoded.Time)
	if err != nil {
		return DateTime{}, fmt.Errorf("%w: time %q", ErrNotUnderstood, decoded.Time)
	}
	return DateTime{Date: decoded.Date, Time: clock}, nil
}

// KeywordYesNoInterpreter classifies with the affirmation and negation pattern
// sets. It backs the dialogue when no LLM provider is configured.
type KeywordYesNoInterpreter struct{}

func (KeywordYesNoInterpreter) Classify(_ context.Context, prompt string) (bool, error) {
	return IsAffirmation(prompt) && !IsNegation(prompt), nil
}

var literalDateTimePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\D+?(\d{1,2}(?::\d{2})?)\b`)

// LiteralDateTimeInterpreter accepts only an explicit "YYYY-MM-DD HH:MM". It
// backs the dialogue when no LLM provider is configured.
type LiteralDateTimeInterpreter struct{}

func (LiteralDateTimeInterpreter) Parse(_ context.Context, text string, _ time.Time) (DateTime, error) {
	m := literalDateTimePattern.FindStringSubmatch(text)
	if m == nil {
		return DateTime{}, ErrNotUnderstood
	}
	return decodeDateTime(fmt.Sprintf(`{"date": %q, "time": %q}`, m[1], m[2]))
}
