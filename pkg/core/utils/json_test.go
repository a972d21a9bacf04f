package utils

import "testing"

type answerPayload struct {
	Comparison string `json:"comparison"`
}

func TestSmartParseStrategies(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"clean json", `{"comparison": "a beats b"}`},
		{"trailing comma", `{"comparison": "a beats b",}`},
		{"code fence", "```json\n{\"comparison\": \"a beats b\"}\n```"},
		{"hjson unquoted key", "{comparison: \"a beats b\"}"},
	}
	for _, c := range cases {
		var payload answerPayload
		if _, err := SmartParse(c.in, &payload); err != nil {
			t.Errorf("%s: SmartParse failed: %v", c.name, err)
			continue
		}
		if payload.Comparison != "a beats b" {
			t.Errorf("%s: comparison = %q", c.name, payload.Comparison)
		}
	}
}

func TestSmartParseHopeless(t *testing.T) {
	var payload answerPayload
	if _, err := SmartParse("not even close to structured", &payload); err == nil {
		t.Error("expected failure for unstructured input")
	}
}

func TestCleanMarkdownStripsFence(t *testing.T) {
	in := "```markdown\n# Heading\nBody text.\n```"
	if got := CleanMarkdown(in); got != "# Heading\nBody text." {
		t.Errorf("CleanMarkdown = %q", got)
	}
}

func TestStripToPlainText(t *testing.T) {
	got := StripToPlainText("**Alpha** grew *faster* than Beta.")
	if got != "Alpha grew faster than Beta." {
		t.Errorf("StripToPlainText = %q", got)
	}
}
