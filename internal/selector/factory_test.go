package selector

import (
	"testing"
)

const fixtureHTML = `<html><body>
<div id="main" class="container">
	<button id="go" class="btn primary">Submit</button>
	<button class="btn">Cancel</button>
</div>
<div class="sidebar">
	<a href="/about">About</a>
</div>
<script>console.log("ignored")</script>
</body></html>`

func fixtureFactory(t *testing.T) *Factory {
	t.Helper()
	f, err := NewFactory(fixtureHTML)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

func TestMatches(t *testing.T) {
	f := fixtureFactory(t)
	if n := f.Matches("//button"); n != 2 {
		t.Fatalf("//button matches %d, want 2", n)
	}
	if n := f.Matches("//button[@id='go']"); n != 1 {
		t.Fatalf("//button[@id='go'] matches %d, want 1", n)
	}
	if n := f.Matches("//nav"); n != 0 {
		t.Fatalf("//nav matches %d, want 0", n)
	}
	if n := f.Matches("not a valid ( xpath"); n != 0 {
		t.Fatalf("invalid expression matches %d, want 0", n)
	}
}

func TestGenerateRelativeXPathsSelfLocators(t *testing.T) {
	f := fixtureFactory(t)
	got, err := f.GenerateRelativeXPaths("/html/body/div[1]/button[1]")
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"//button[@id='go']",
		"//button[text()='Submit']",
		"//button[contains(@class, 'primary')]",
	} {
		if !contains(got, want) {
			t.Errorf("missing unique self locator %q in %v", want, got)
		}
	}

	// Two buttons exist, so the bare tag and the shared class token are
	// not unique and must be excluded.
	for _, banned := range []string{"//button", "//button[contains(@class, 'btn')]"} {
		if contains(got, banned) {
			t.Errorf("ambiguous locator %q leaked into %v", banned, got)
		}
	}
}

func TestGenerateRelativeXPathsAncestorComposite(t *testing.T) {
	f := fixtureFactory(t)
	got, err := f.GenerateRelativeXPaths("/html/body/div[1]/button[1]")
	if err != nil {
		t.Fatal(err)
	}
	if !contains(got, "//div[@id='main']/button[1]") {
		t.Fatalf("missing ancestor composite in %v", got)
	}
}

func TestGenerateRelativeXPathsChildParentStep(t *testing.T) {
	f := fixtureFactory(t)
	got, err := f.GenerateRelativeXPaths("/html/body/div[1]")
	if err != nil {
		t.Fatal(err)
	}
	if !contains(got, "//button[@id='go']/parent::div") {
		t.Fatalf("missing child parent-step locator in %v", got)
	}
}

func TestGenerateRelativeXPathsErrors(t *testing.T) {
	f := fixtureFactory(t)

	if _, err := f.GenerateRelativeXPaths("/html/body/nav"); err == nil {
		t.Error("missing element must error")
	}
	if _, err := f.GenerateRelativeXPaths("//button"); err == nil {
		t.Error("a path matching two elements must error")
	}
}

func TestDescribe(t *testing.T) {
	f := fixtureFactory(t)
	desc, err := f.Describe("/html/body/div[1]/button[1]")
	if err != nil {
		t.Fatal(err)
	}
	if desc.TagName != "button" {
		t.Fatalf("tag = %q, want button", desc.TagName)
	}
	if desc.XPath != "/html/body/div[1]/button[1]" {
		t.Fatalf("primary xpath = %q", desc.XPath)
	}
	if desc.Attributes["id"] != "go" {
		t.Fatalf("attributes = %v, want id=go", desc.Attributes)
	}
	if len(desc.AltXPaths) == 0 {
		t.Fatal("descriptor must carry alternative locators")
	}
}
