// Package schema declares structured-output contracts for model responses.
//
// A Schema pairs a name with a JSON Schema definition built from composable
// constructors:
//
//	judgement := schema.New("judgement", schema.Object(map[string]schema.JSON{
//		"violates":  schema.Bool(),
//		"reasoning": schema.String(),
//	}, "violates", "reasoning"))
//
// The name participates in completion cache keys, so renaming a schema
// invalidates cached responses for it. Validate checks raw provider output
// against the definition and reports every violation, not just the first.
package schema
