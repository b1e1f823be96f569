package entity

import (
	"fmt"
	"strings"
)

// ObservedElement is one interactive element found on the live page,
// addressed by its absolute XPath so it can be turned back into a
// replayable descriptor.
type ObservedElement struct {
	ID    int    `json:"id"`
	XPath string `json:"xpath"`
	Tag   string `json:"tag"`
	Text  string `json:"text"`
}

// PageState is a snapshot of the live page handed to the healing
// oracle: location, a compact summary of interactive elements and the
// raw HTML for locator generation.
type PageState struct {
	URL      string
	Title    string
	Elements []ObservedElement
	HTML     string
}

// Summary renders the element list in the numbered form the oracle
// prompt expects.
func (s *PageState) Summary() string {
	if len(s.Elements) == 0 {
		return "No interactive elements found"
	}
	var sb strings.Builder
	for _, el := range s.Elements {
		fmt.Fprintf(&sb, "[%d] <%s> %s\n", el.ID, el.Tag, el.Text)
	}
	return sb.String()
}
