package executor

import (
	"regexp"
	"strings"
)

var secretPattern = regexp.MustCompile(`<secret>([^<]+)</secret>`)

// substituteSecrets expands <secret>NAME</secret> placeholders from the
// secrets map. Unknown names stay verbatim so a recording with a
// missing secret fails visibly at the form instead of typing an empty
// value. Resolved values must never be logged.
func substituteSecrets(text string, secrets map[string]string) string {
	if len(secrets) == 0 || !strings.Contains(text, "<secret>") {
		return text
	}
	return secretPattern.ReplaceAllStringFunc(text, func(m string) string {
		name := secretPattern.FindStringSubmatch(m)[1]
		if v, ok := secrets[name]; ok {
			return v
		}
		return m
	})
}
