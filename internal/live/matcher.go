package live

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/opspanel/opspanel/pkg/model"
)

// Matcher compiles and evaluates CEL expressions against change events.
type Matcher struct {
	env *cel.Env
}

// NewMatcher creates a matcher with the standard environment. Events are
// exposed to expressions as a dynamic map named "event".
func NewMatcher() (*Matcher, error) {
	env, err := cel.NewEnv(
		cel.Variable("event", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("CEL environment: %w", err)
	}
	return &Matcher{env: env}, nil
}

// Compile compiles a CEL expression string into an evaluable program.
func (m *Matcher) Compile(expr string) (cel.Program, error) {
	ast, issues := m.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}

	prg, err := m.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program creation error: %w", err)
	}
	return prg, nil
}

// CompileResources builds a program matching events for any of the given
// resources. An empty list compiles to nil, which matches everything.
func (m *Matcher) CompileResources(resources []model.Resource) (cel.Program, error) {
	if len(resources) == 0 {
		return nil, nil
	}

	terms := make([]string, 0, len(resources))
	for _, r := range resources {
		terms = append(terms, fmt.Sprintf("event['resource'] == '%s'", r))
	}
	return m.Compile(strings.Join(terms, " || "))
}

// Match evaluates a compiled program against an event.
func Match(prg cel.Program, event ChangeEvent) (bool, error) {
	if prg == nil {
		return true, nil // No filter = match all
	}

	out, _, err := prg.Eval(map[string]any{
		"event": event.AsMap(),
	})
	if err != nil {
		return false, err
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL result is not boolean: %T", out.Value())
	}
	return result, nil
}
