// Package templates loads frame templates from the filesystem. A
// template is a directory containing a template.md with YAML
// frontmatter, an optional questionnaire.md, and optional prompts/*.md
// files. Templates define the section structure and guided questions
// for each frame type.
package templates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/framerhq/framer/pkg/models"
)

// ErrNotFound is returned when no template matches the requested name
// or frame type.
var ErrNotFound = errors.New("template not found")

// Section is one named section of a frame template.
type Section struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Question is one guided-creation question.
type Question struct {
	ID      string `json:"id"`
	Section string `json:"section"`
	Text    string `json:"text"`
	Hint    string `json:"hint,omitempty"`
}

// Questionnaire guides frame creation section by section.
type Questionnaire struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Prompt is a named AI prompt with {variable} placeholders.
type Prompt struct {
	Name      string   `json:"name"`
	Content   string   `json:"content"`
	Variables []string `json:"variables"`
}

// Render substitutes {key} placeholders with the provided values.
func (p Prompt) Render(vars map[string]string) string {
	out := p.Content
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// Template is one complete frame template.
type Template struct {
	Name          string
	Type          models.FrameType
	Description   string
	Sections      []Section
	Questionnaire *Questionnaire
	Prompts       map[string]Prompt
}

// Prompt returns the named prompt, reporting whether it exists.
func (t *Template) Prompt(name string) (Prompt, bool) {
	p, ok := t.Prompts[name]
	return p, ok
}

// Catalog reads templates from one directory. Templates are loaded on
// every call so edits on disk take effect without a restart.
type Catalog struct {
	dir string
}

// NewCatalog creates a catalog rooted at dir. The directory does not
// have to exist yet; a missing directory lists as empty.
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// Load reads the template stored under the given directory name.
func (c *Catalog) Load(name string) (*Template, error) {
	dir := filepath.Join(c.dir, name)
	raw, err := os.ReadFile(filepath.Join(dir, "template.md"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read template %s: %w", name, err)
	}
	return parseTemplate(name, dir, string(raw))
}

// List returns every valid template in the catalog, sorted by name.
// Directories without a template.md, or with one that does not parse,
// are skipped.
func (c *Catalog) List() ([]Template, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list templates: %w", err)
	}

	var out []Template
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		tmpl, err := c.Load(entry.Name())
		if err != nil {
			continue
		}
		out = append(out, *tmpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ByType returns the first template declaring the given frame type.
func (c *Catalog) ByType(t models.FrameType) (*Template, error) {
	all, err := c.List()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Type == t {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: type %s", ErrNotFound, t)
}

// frontmatter is the YAML block at the top of template.md.
type frontmatter struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

func parseTemplate(dirName, dir, raw string) (*Template, error) {
	var fm frontmatter
	body := raw
	if strings.HasPrefix(raw, "---") {
		parts := strings.SplitN(raw, "---", 3)
		if len(parts) >= 3 {
			if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
				return nil, fmt.Errorf("parse template frontmatter: %w", err)
			}
			body = parts[2]
		}
	}

	tmpl := &Template{
		Name:        fm.Name,
		Description: fm.Description,
		Sections:    parseSections(body),
		Prompts:     map[string]Prompt{},
	}
	if tmpl.Name == "" {
		tmpl.Name = dirName
	}

	// Untyped templates default to bug, the original template shipped.
	tmpl.Type = models.FrameTypeBug
	if fm.Type != "" {
		t, err := models.ParseFrameType(fm.Type)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", tmpl.Name, err)
		}
		tmpl.Type = t
	}

	if q, err := os.ReadFile(filepath.Join(dir, "questionnaire.md")); err == nil {
		tmpl.Questionnaire = parseQuestionnaire(string(q))
	}

	prompts, err := loadPrompts(filepath.Join(dir, "prompts"))
	if err != nil {
		return nil, err
	}
	tmpl.Prompts = prompts

	return tmpl, nil
}

// parseSections pulls sections out of the template body. Every H1 or H2
// heading starts a section; the lines until the next heading are its
// description. Only the problem statement is required.
func parseSections(body string) []Section {
	var (
		sections []Section
		name     string
		desc     []string
	)
	flush := func() {
		if name == "" {
			return
		}
		sections = append(sections, Section{
			Name:        name,
			Description: strings.TrimSpace(strings.Join(desc, "\n")),
			Required:    name == "Problem Statement",
		})
	}
	for _, line := range strings.Split(body, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "# ") || strings.HasPrefix(stripped, "## ") {
			flush()
			name = strings.TrimSpace(strings.TrimLeft(stripped, "#"))
			desc = nil
			continue
		}
		if name != "" {
			desc = append(desc, line)
		}
	}
	flush()
	return sections
}

// parseQuestionnaire reads the markdown questionnaire format: the H1 is
// the title, each H2 names a section, each H3 is a question, and an
// HTML comment on the following line is its hint.
func parseQuestionnaire(raw string) *Questionnaire {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	q := &Questionnaire{Questions: []Question{}}
	section := ""
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(stripped, "### "):
			question := Question{
				ID:      fmt.Sprintf("q%d", len(q.Questions)+1),
				Section: section,
				Text:    strings.TrimSpace(stripped[4:]),
			}
			if i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				if strings.HasPrefix(next, "<!--") && strings.HasSuffix(next, "-->") {
					question.Hint = strings.TrimSpace(next[4 : len(next)-3])
				}
			}
			q.Questions = append(q.Questions, question)
		case strings.HasPrefix(stripped, "## "):
			section = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(stripped[3:])), " ", "_")
		case strings.HasPrefix(stripped, "# ") && q.Title == "":
			q.Title = strings.TrimSpace(stripped[2:])
		}
	}
	return q
}

var promptVarPattern = regexp.MustCompile(`\{(\w+)\}`)

// loadPrompts reads every prompts/*.md file into a named prompt. A
// missing prompts directory is fine.
func loadPrompts(dir string) (map[string]Prompt, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("glob prompts: %w", err)
	}
	prompts := make(map[string]Prompt, len(files))
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", file, err)
		}
		name := strings.TrimSuffix(filepath.Base(file), ".md")
		prompts[name] = Prompt{
			Name:      name,
			Content:   string(content),
			Variables: promptVariables(string(content)),
		}
	}
	return prompts, nil
}

func promptVariables(content string) []string {
	seen := map[string]bool{}
	var vars []string
	for _, m := range promptVarPattern.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			vars = append(vars, m[1])
		}
	}
	sort.Strings(vars)
	return vars
}
