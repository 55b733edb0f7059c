// Package agents holds the thin AI orchestrators built on the gateway:
// evaluator, generator, and refiner. Each renders a prompt template,
// dispatches a structured call under the retry supervisor, and coerces
// the parsed reply into a fixed result shape with defaults for missing
// fields.
package agents

import (
	"context"
	"strings"

	"github.com/framerhq/framer/internal/aigw"
)

// BuildPrompt renders a template by naive literal substitution of
// {name} placeholders. This is deliberately not a template engine:
// unresolved placeholders survive verbatim and callers must tolerate
// them.
func BuildPrompt(template string, vars map[string]string) string {
	out := template
	for key, value := range vars {
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	return out
}

// agent is the shared core of the three orchestrators.
type agent struct {
	provider aigw.Provider
	retry    *aigw.Supervisor
}

func newAgent(provider aigw.Provider) agent {
	return agent{provider: provider, retry: aigw.NewSupervisor()}
}

// callStructured renders nothing itself; it just runs one structured
// exchange under the supervisor.
func (a *agent) callStructured(ctx context.Context, system string, turns []aigw.Turn) (map[string]any, error) {
	var parsed map[string]any
	err := a.retry.Do(ctx, func() error {
		var callErr error
		parsed, callErr = a.provider.SendStructured(ctx, system, turns)
		return callErr
	})
	return parsed, err
}

// ── Shape coercion helpers ─────────────────────────────────────────────

func strField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int {
	switch n := m[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func strList(m map[string]any, key string) []string {
	items, ok := m[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intMap(m map[string]any, key string) map[string]int {
	raw, ok := m[key].(map[string]any)
	if !ok {
		return map[string]int{}
	}
	out := make(map[string]int, len(raw))
	for k, v := range raw {
		if f, ok := v.(float64); ok {
			out[k] = int(f)
		}
	}
	return out
}
