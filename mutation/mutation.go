package mutation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/zero-day-ai/lab/fault"
	"github.com/zero-day-ai/lab/llm"
)

// Point is a named template slot with enumerable candidate values.
// The two implementations are FixedPoint and GeneratedPoint; the set is
// closed via the sealed resolve method.
type Point interface {
	// PointName returns the unique slot name within a template.
	PointName() string

	// resolve produces the ordered candidate values for this point.
	resolve(ctx context.Context, client *llm.Client) ([]string, error)
}

// FixedPoint is a mutation point with a fixed, ordered candidate list.
type FixedPoint struct {
	// Name is the slot name substituted as {name} or {{name}}.
	Name string

	// Values are the candidate substitutions, in order. Must be non-empty.
	Values []string
}

// PointName returns the slot name.
func (p FixedPoint) PointName() string { return p.Name }

func (p FixedPoint) resolve(_ context.Context, _ *llm.Client) ([]string, error) {
	if len(p.Values) == 0 {
		return nil, fault.Configuration("mutation point %q has no candidate values", p.Name)
	}
	return p.Values, nil
}

// GeneratedPoint is a mutation point whose candidates come from one model
// call: the prompt's text output is split into trimmed non-empty lines.
// Candidate order follows the model's text and is not reproducible across
// runs unless the call is served from the completion cache.
type GeneratedPoint struct {
	// Name is the slot name substituted as {name} or {{name}}.
	Name string

	// Prompt asks the model to produce one candidate value per line.
	Prompt string
}

// PointName returns the slot name.
func (p GeneratedPoint) PointName() string { return p.Name }

func (p GeneratedPoint) resolve(ctx context.Context, client *llm.Client) ([]string, error) {
	if client == nil {
		return nil, fault.Configuration("generated mutation point %q requires a model client", p.Name)
	}

	ex, err := client.Complete(ctx, []llm.Message{llm.System(p.Prompt)})
	if err != nil {
		return nil, fmt.Errorf("failed to generate values for point %q: %w", p.Name, err)
	}

	var values []string
	for _, line := range strings.Split(ex.Output.Content, "\n") {
		if v := strings.TrimSpace(line); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, fault.Configuration("generated mutation point %q produced no values", p.Name)
	}
	return values, nil
}

// Template is a prompt template with named mutation points.
type Template struct {
	// Text is the template body containing {name} or {{name}} placeholders.
	Text string

	// Points are the mutation points, in declaration order. For fixed
	// points the first declared point varies slowest in the expansion.
	Points []Point

	// Client backs generated points. Fixed-only templates may leave it nil.
	Client *llm.Client

	id string
}

// NewTemplate creates a template over the given points.
func NewTemplate(text string, points ...Point) *Template {
	return &Template{Text: text, Points: points, id: uuid.NewString()}
}

// WithClient attaches the model client used to resolve generated points.
func (t *Template) WithClient(client *llm.Client) *Template {
	t.Client = client
	return t
}

// ID returns the template's unique identifier.
func (t *Template) ID() string {
	if t.id == "" {
		t.id = uuid.NewString()
	}
	return t.id
}

// Variant is one fully substituted prompt plus the assignments that
// produced it.
type Variant struct {
	// Prompt is the template text with every placeholder substituted.
	Prompt string

	// Assignments maps point name to the chosen candidate value.
	Assignments map[string]string

	// TemplateID identifies the template this variant came from.
	TemplateID string
}

// MutationID derives the variant's identity for dedup and logging: the
// assignments sorted by point name, joined as key=value pairs with "_".
func (v Variant) MutationID() string {
	names := make([]string, 0, len(v.Assignments))
	for name := range v.Assignments {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+v.Assignments[name])
	}
	return strings.Join(pairs, "_")
}

// Expand resolves every point and produces the full Cartesian product of
// variants. Each generated point issues exactly one model call, cached
// like any other call. Point names must be unique within the template.
func (t *Template) Expand(ctx context.Context) ([]Variant, error) {
	seen := make(map[string]bool, len(t.Points))
	names := make([]string, 0, len(t.Points))
	values := make([][]string, 0, len(t.Points))

	for _, p := range t.Points {
		name := p.PointName()
		if name == "" {
			return nil, fault.Configuration("mutation point with empty name")
		}
		if seen[name] {
			return nil, fault.Configuration("duplicate mutation point %q", name)
		}
		seen[name] = true

		resolved, err := p.resolve(ctx, t.Client)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		values = append(values, resolved)
	}

	total := 1
	for _, vs := range values {
		total *= len(vs)
	}

	variants := make([]Variant, 0, total)
	indices := make([]int, len(values))
	for {
		assignments := make(map[string]string, len(names))
		prompt := t.Text
		for i, name := range names {
			value := values[i][indices[i]]
			assignments[name] = value
			prompt = strings.ReplaceAll(prompt, "{{"+name+"}}", value)
			prompt = strings.ReplaceAll(prompt, "{"+name+"}", value)
		}
		variants = append(variants, Variant{
			Prompt:      prompt,
			Assignments: assignments,
			TemplateID:  t.ID(),
		})

		// Odometer increment: last point varies fastest, so the first
		// declared point varies slowest.
		pos := len(indices) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(values[pos]) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}

	return variants, nil
}
