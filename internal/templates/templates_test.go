package templates_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/framerhq/framer/internal/templates"
	"github.com/framerhq/framer/pkg/models"
)

const bugTemplateMD = `---
name: Bug Frame
type: bug
description: Structured framing for defects
---

# Problem Statement

What is broken, for whom, and how often.

## Root Cause

The underlying mechanism, not the symptom.
`

const questionnaireMD = `# Bug Framing Questions

## Problem Statement

### What exactly is failing?
<!-- Describe the observable behavior, not the suspected cause -->

### Who hits this and how often?

## Root Cause

### What changed before the failure appeared?
`

// writeTemplate lays out one template directory under dir.
func writeTemplate(t *testing.T, dir, name, templateMD string) {
	t.Helper()
	tdir := filepath.Join(dir, name)
	if err := os.MkdirAll(tdir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tdir, "template.md"), []byte(templateMD), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_ParsesTemplate(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "bug", bugTemplateMD)
	if err := os.WriteFile(filepath.Join(dir, "bug", "questionnaire.md"), []byte(questionnaireMD), 0o644); err != nil {
		t.Fatal(err)
	}
	promptsDir := filepath.Join(dir, "bug", "prompts")
	if err := os.MkdirAll(promptsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(promptsDir, "synthesize.md"), []byte("Summarize {problem} for {owner}. Again: {problem}."), 0o644)

	tmpl, err := templates.NewCatalog(dir).Load("bug")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tmpl.Name != "Bug Frame" {
		t.Errorf("Name = %q, want %q", tmpl.Name, "Bug Frame")
	}
	if tmpl.Type != models.FrameTypeBug {
		t.Errorf("Type = %q, want %q", tmpl.Type, models.FrameTypeBug)
	}
	if len(tmpl.Sections) != 2 {
		t.Fatalf("len(Sections) = %d, want 2", len(tmpl.Sections))
	}
	if tmpl.Sections[0].Name != "Problem Statement" || !tmpl.Sections[0].Required {
		t.Errorf("Sections[0] = %+v, want required Problem Statement", tmpl.Sections[0])
	}
	if tmpl.Sections[1].Required {
		t.Errorf("Sections[1].Required = true, want false")
	}

	if tmpl.Questionnaire == nil {
		t.Fatal("Questionnaire = nil")
	}
	if tmpl.Questionnaire.Title != "Bug Framing Questions" {
		t.Errorf("Questionnaire.Title = %q", tmpl.Questionnaire.Title)
	}
	qs := tmpl.Questionnaire.Questions
	if len(qs) != 3 {
		t.Fatalf("len(Questions) = %d, want 3", len(qs))
	}
	if qs[0].ID != "q1" || qs[0].Section != "problem_statement" {
		t.Errorf("Questions[0] = %+v", qs[0])
	}
	if qs[0].Hint != "Describe the observable behavior, not the suspected cause" {
		t.Errorf("Questions[0].Hint = %q", qs[0].Hint)
	}
	if qs[1].Hint != "" {
		t.Errorf("Questions[1].Hint = %q, want empty", qs[1].Hint)
	}
	if qs[2].Section != "root_cause" {
		t.Errorf("Questions[2].Section = %q, want root_cause", qs[2].Section)
	}

	p, ok := tmpl.Prompt("synthesize")
	if !ok {
		t.Fatal("Prompt(synthesize) not found")
	}
	want := []string{"owner", "problem"}
	if len(p.Variables) != len(want) || p.Variables[0] != want[0] || p.Variables[1] != want[1] {
		t.Errorf("Variables = %v, want %v", p.Variables, want)
	}
	rendered := p.Render(map[string]string{"problem": "login loop", "owner": "alice"})
	if rendered != "Summarize login loop for alice. Again: login loop." {
		t.Errorf("Render() = %q", rendered)
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := templates.NewCatalog(t.TempDir()).Load("nope")
	if !errors.Is(err, templates.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestList_SkipsInvalidAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "feature", "---\nname: Feature Frame\ntype: feature\n---\n# Problem Statement\n")
	writeTemplate(t, dir, "bug", bugTemplateMD)
	writeTemplate(t, dir, "broken", "---\nname: Broken\ntype: launch-plan\n---\n")
	// A directory without template.md is not a template.
	if err := os.MkdirAll(filepath.Join(dir, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := templates.NewCatalog(dir).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(got))
	}
	if got[0].Name != "Bug Frame" || got[1].Name != "Feature Frame" {
		t.Errorf("List() order = %q, %q", got[0].Name, got[1].Name)
	}
}

func TestList_MissingDirIsEmpty(t *testing.T) {
	got, err := templates.NewCatalog(filepath.Join(t.TempDir(), "absent")).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(List()) = %d, want 0", len(got))
	}
}

func TestByType(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "bug", bugTemplateMD)
	writeTemplate(t, dir, "feature", "---\nname: Feature Frame\ntype: feature\n---\n# Problem Statement\n")

	cat := templates.NewCatalog(dir)
	tmpl, err := cat.ByType(models.FrameTypeFeature)
	if err != nil {
		t.Fatalf("ByType() error = %v", err)
	}
	if tmpl.Name != "Feature Frame" {
		t.Errorf("ByType().Name = %q", tmpl.Name)
	}

	_, err = cat.ByType(models.FrameTypeExploration)
	if !errors.Is(err, templates.ErrNotFound) {
		t.Errorf("ByType(exploration) error = %v, want ErrNotFound", err)
	}
}

func TestLoad_UntypedDefaultsToBug(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "plain", "# Problem Statement\n\nNo frontmatter at all.\n")

	tmpl, err := templates.NewCatalog(dir).Load("plain")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tmpl.Name != "plain" {
		t.Errorf("Name = %q, want directory name fallback", tmpl.Name)
	}
	if tmpl.Type != models.FrameTypeBug {
		t.Errorf("Type = %q, want bug", tmpl.Type)
	}
}
