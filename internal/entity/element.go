package entity

// ElementDescriptor identifies a DOM element recorded at traversal
// creation time. XPath is the absolute path to the node; AltXPaths are
// relative locators generated against the page snapshot, ordered by
// generation. The descriptor is read-only during replay.
type ElementDescriptor struct {
	XPath      string            `json:"xpath,omitempty"`
	AltXPaths  []string          `json:"alternative_relative_xpaths,omitempty"`
	TagName    string            `json:"tag_name,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Empty reports whether the descriptor carries nothing to locate an
// element with.
func (e *ElementDescriptor) Empty() bool {
	return e == nil || (e.XPath == "" && len(e.AltXPaths) == 0 && e.TagName == "")
}
