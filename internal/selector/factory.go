package selector

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"replay-agent/internal/entity"
)

// maxCandidates caps relative-locator generation per element.
const maxCandidates = 100

// bannedTags never appear in generated locators.
var bannedTags = map[string]bool{"script": true}

// Factory generates and validates relative XPath locators against a
// static page snapshot. It runs at recording time (here: when the
// healing oracle records replacement actions); "unique" always means
// exactly one match on the full snapshot.
type Factory struct {
	doc *html.Node
}

func NewFactory(htmlContent string) (*Factory, error) {
	doc, err := htmlquery.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parsing page snapshot: %w", err)
	}
	return &Factory{doc: doc}, nil
}

// Matches counts snapshot nodes matching the expression; invalid
// expressions count as zero.
func (f *Factory) Matches(xpath string) int {
	nodes, err := htmlquery.QueryAll(f.doc, xpath)
	if err != nil {
		return 0
	}
	return len(nodes)
}

func (f *Factory) isUnique(xpath string) bool { return f.Matches(xpath) == 1 }

// GenerateRelativeXPaths computes alternative locators for the node at
// fullXPath: self-level unique locators, unique child locators stepped
// back to the parent, then composites built while climbing one ancestor
// at a time. Generation stops at the candidate cap or the document
// root.
func (f *Factory) GenerateRelativeXPaths(fullXPath string) ([]string, error) {
	nodes, err := htmlquery.QueryAll(f.doc, fullXPath)
	if err != nil {
		return nil, fmt.Errorf("invalid element path %q: %w", fullXPath, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no element found for path %q", fullXPath)
	}
	if len(nodes) > 1 {
		return nil, fmt.Errorf("path %q matches %d elements", fullXPath, len(nodes))
	}

	target := nodes[0]
	collected := f.uniqueXPathsOf(target)

	// One level of children: a unique child locator plus a parent step
	// still pins down the target.
	if tag := tagOf(target); tag != "" && !bannedTags[tag] {
		for child := target.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != html.ElementNode {
				continue
			}
			for _, cx := range f.uniqueXPathsOf(child) {
				collected = append(collected, cx+"/parent::"+tag)
			}
		}
	}

	// Climb toward the root, composing ancestor locators with the path
	// segments walked so far and keeping every still-unique composite.
	segments := reverse(strings.Split(strings.Trim(fullXPath, "/"), "/"))
	var climbed []string
	cur := target
	for _, seg := range segments {
		climbed = append(climbed, seg)
		parent := cur.Parent
		if parent == nil || parent.Type != html.ElementNode {
			break
		}
		cur = parent

		suffix := strings.Join(reverse(climbed), "/")
		for _, ax := range f.uniqueXPathsOf(cur) {
			composite := ax + "/" + suffix
			if f.isUnique(composite) {
				collected = append(collected, composite)
			}
		}
		if len(collected) >= maxCandidates {
			collected = collected[:maxCandidates]
			break
		}
	}

	return collected, nil
}

// Describe builds the full element descriptor for the node at
// fullXPath: primary path, generated alternatives, tag and attributes.
func (f *Factory) Describe(fullXPath string) (*entity.ElementDescriptor, error) {
	node, err := htmlquery.Query(f.doc, fullXPath)
	if err != nil {
		return nil, fmt.Errorf("invalid element path %q: %w", fullXPath, err)
	}
	if node == nil {
		return nil, fmt.Errorf("no element found for path %q", fullXPath)
	}
	alts, err := f.GenerateRelativeXPaths(fullXPath)
	if err != nil {
		return nil, err
	}
	return &entity.ElementDescriptor{
		XPath:      fullXPath,
		AltXPaths:  alts,
		TagName:    tagOf(node),
		Attributes: attributesOf(node),
	}, nil
}

// uniqueXPathsOf generates the per-node locator variants (tag, exact
// text, id, each class token) and keeps the ones matching exactly one
// snapshot node.
func (f *Factory) uniqueXPathsOf(n *html.Node) []string {
	var unique []string
	for _, x := range xpathsFor(n) {
		if f.isUnique(x) {
			unique = append(unique, x)
		}
	}
	return unique
}

func xpathsFor(n *html.Node) []string {
	tag := tagOf(n)
	if tag == "" || bannedTags[tag] {
		return nil
	}

	out := []string{"//" + tag}
	if text := directText(n); text != "" && !strings.ContainsAny(text, `'"`) {
		out = append(out, fmt.Sprintf("//%s[text()='%s']", tag, text))
	}
	attrs := attributesOf(n)
	if id, ok := attrs["id"]; ok && id != "" {
		out = append(out, fmt.Sprintf("//%s[@id='%s']", tag, id))
	}
	if class, ok := attrs["class"]; ok {
		for _, token := range strings.Fields(class) {
			out = append(out, fmt.Sprintf("//%s[contains(@class, '%s')]", tag, token))
		}
	}
	return out
}

func tagOf(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return n.Data
}

func attributesOf(n *html.Node) map[string]string {
	out := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		out[a.Key] = a.Val
	}
	return out
}

// directText is the trimmed text content immediately under the node,
// not including descendants' text.
func directText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

func reverse(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
