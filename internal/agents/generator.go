package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/framerhq/framer/internal/aigw"
	"github.com/framerhq/framer/pkg/models"
)

// Answer is one questionnaire question/answer pair.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// GenerationResult is the coerced output of a generation call.
type GenerationResult struct {
	Content     string   `json:"content"`
	Suggestions []string `json:"suggestions"`
}

// Generator drafts frame section content from questionnaire answers.
type Generator struct {
	agent
	Template string
}

// NewGenerator builds a Generator over the default section template.
func NewGenerator(provider aigw.Provider) *Generator {
	return &Generator{agent: newAgent(provider), Template: GeneratePrompt}
}

// FormatAnswers flattens Q&A pairs into the prompt's readable form.
func FormatAnswers(answers []Answer) string {
	var b strings.Builder
	for _, item := range answers {
		b.WriteString("Q: ")
		b.WriteString(item.Question)
		b.WriteString("\nA: ")
		b.WriteString(item.Answer)
		b.WriteString("\n\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Generate renders the template with arbitrary variables and runs one
// structured generation call.
func (g *Generator) Generate(ctx context.Context, vars map[string]string) (*GenerationResult, error) {
	prompt := BuildPrompt(g.Template, vars)
	parsed, err := g.callStructured(ctx, generateSystem, []aigw.Turn{{Role: models.RoleUser, Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	return &GenerationResult{
		Content:     strField(parsed, "content"),
		Suggestions: strList(parsed, "suggestions"),
	}, nil
}

// GenerateFromQuestionnaire drafts one named section from Q&A pairs.
func (g *Generator) GenerateFromQuestionnaire(ctx context.Context, section string, answers []Answer) (*GenerationResult, error) {
	return g.Generate(ctx, map[string]string{
		"section":           section,
		"formatted_answers": FormatAnswers(answers),
	})
}
