package conversation

import (
	"regexp"
	"strings"
)

// identityPhrases are matched as plain substrings of the lowercased message.
var identityPhrases = []string{
	"who are you",
	"who are you all",
	"where are you from",
	"what company",
	"who is writing to me",
	"who are you guys",
	"why are you writing to me",
}

// phrasePattern matches any phrase as a whole word sequence. Letters outside
// ASCII count as word characters, so "sí" does not match inside "síntoma".
func phrasePattern(phrases ...string) *regexp.Regexp {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\p{L}\p{N}])`)
}

var negationPattern = phrasePattern(
	"no",
	"nope",
	"i can't",
	"i cannot",
	"it doesn't work for me",
	"doesn't work",
	"no thanks",
	"i prefer another",
	"better another",
	"i'm not sure",
	"not sure",
	"reject",
	"another time",
	"later",
)

var affirmationPattern = phrasePattern(
	"sí",
	"si",
	"me sirve",
	"ok",
	"okay",
	"dale",
	"perfecto",
	"perfect",
	"vale",
	"claro",
	"de acuerdo",
	"yes",
	"yeah",
	"yep",
	"sure",
	"confirm",
	"confirmed",
	"sounds good",
)

var apostropheReplacer = strings.NewReplacer("’", "'", "‘", "'")

// IsIdentityQuestion reports whether the customer is asking who is writing to them.
func IsIdentityQuestion(message string) bool {
	text := strings.ToLower(apostropheReplacer.Replace(message))
	for _, p := range identityPhrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// IsNegation reports whether the message rejects the current proposal.
func IsNegation(message string) bool {
	return negationPattern.MatchString(apostropheReplacer.Replace(strings.TrimSpace(message)))
}

// IsAffirmation reports whether the message accepts the current proposal.
func IsAffirmation(message string) bool {
	return affirmationPattern.MatchString(apostropheReplacer.Replace(strings.TrimSpace(message)))
}
