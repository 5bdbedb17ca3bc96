package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsIdentityQuestion(t *testing.T) {
	cases := map[string]bool{
		"Who are you?":                true,
		"hey WHAT COMPANY is this":    true,
		"why are you writing to me??": true,
		"yes please":                  false,
		"":                            false,
	}
	for msg, want := range cases {
		assert.Equal(t, want, IsIdentityQuestion(msg), msg)
	}
}

func TestIsNegation(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"no", true},
		{"No.", true},
		{"nope, sorry", true},
		{"I can’t that day", true},
		{"it doesn't work for me", true},
		{"maybe later", true},
		{"I'm not sure", true},
		{"nothing else", false},
		{"know what, yes", false},
		{"yes", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNegation(tt.msg))
		})
	}
}

func TestIsAffirmation(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"yes", true},
		{"Sí, me sirve", true},
		{"OK!", true},
		{"sounds good to me", true},
		{"perfect", true},
		{"síntoma", false},
		{"token", false},
		{"what time?", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAffirmation(tt.msg))
		})
	}
}

func TestParseState(t *testing.T) {
	s, ok := ParseState("proposing_appointment")
	assert.True(t, ok)
	assert.Equal(t, StateProposingAppointment, s)

	s, ok = ParseState("  ")
	assert.True(t, ok)
	assert.Equal(t, StateNone, s)
	assert.Equal(t, "none", s.String())

	_, ok = ParseState("dancing")
	assert.False(t, ok)
}
