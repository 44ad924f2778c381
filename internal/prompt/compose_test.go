package prompt

import (
	"strings"
	"testing"

	"resumelens/pkg/domain"
)

func TestComposeModeSelection(t *testing.T) {
	cases := []struct {
		name string
		jd   string
		want domain.Mode
	}{
		{"empty jd", "", domain.ModeResumeOnly},
		{"whitespace-only jd", "  \n\t ", domain.ModeResumeOnly},
		{"non-empty jd", "Looking for a Go engineer", domain.ModeResumeJD},
		{"jd with surrounding whitespace", "  hiring  ", domain.ModeResumeJD},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mode, _ := Compose("resume text", tc.jd)
			if mode != tc.want {
				t.Fatalf("mode = %q, want %q", mode, tc.want)
			}
		})
	}
}

func TestComposeEmbedsBothSchemasAndDirective(t *testing.T) {
	_, p := Compose("Python, SQL", "")
	if !strings.Contains(p, `"mode": "resume_only"`) {
		t.Fatalf("prompt missing resume_only schema")
	}
	if !strings.Contains(p, `"mode": "resume_jd"`) {
		t.Fatalf("prompt missing resume_jd schema (both schemas are always included)")
	}
	if !strings.Contains(p, `Use the "resume_only" schema`) {
		t.Fatalf("prompt missing trailing mode directive")
	}
	if !strings.Contains(p, "Python, SQL") {
		t.Fatalf("prompt missing literal resume text")
	}
}

func TestComposeIncludesJobDescriptionWhenPresent(t *testing.T) {
	_, p := Compose("resume", "Looking for Python and SQL engineer")
	if !strings.Contains(p, "Looking for Python and SQL engineer") {
		t.Fatalf("prompt missing literal job description")
	}
	if !strings.Contains(p, `Use the "resume_jd" schema`) {
		t.Fatalf("prompt directive should name resume_jd")
	}
}
