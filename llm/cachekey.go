package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// unboundedSentinel stands in for an absent max-token limit so that
// "no limit" and "limit 0" canonicalize differently from each other.
const unboundedSentinel = "unbounded"

// keyEnvelope is the canonical encoding hashed into a cache key. Field
// order is fixed by the struct; json.Marshal emits struct fields in
// declaration order, so two logically identical requests always encode to
// identical bytes regardless of how their message slices were built.
type keyEnvelope struct {
	Model       string       `json:"model"`
	Messages    []keyMessage `json:"messages"`
	Temperature *float64     `json:"temperature"`
	MaxTokens   any          `json:"max_tokens"`
	Effort      Effort       `json:"effort"`
	Schema      *string      `json:"schema"`
}

type keyMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CacheKey computes the deterministic content address for a request: a
// sha256 digest over the canonical encoding of model, ordered
// (role, content) pairs, temperature, max tokens (or the unbounded
// sentinel), reasoning effort, and the requested schema name (or absent).
//
// Tools deliberately do not participate: a tool-use turn is distinguished
// by the tool-call and tool-result messages already present in the
// conversation, not by the tool definitions offered alongside it.
func CacheKey(req Request) string {
	env := keyEnvelope{
		Model:       req.Model,
		Messages:    make([]keyMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		Effort:      req.Effort,
	}

	for _, m := range req.Messages {
		env.Messages = append(env.Messages, keyMessage{
			Role:    m.Role,
			Content: m.PayloadText(),
		})
	}

	if req.MaxTokens != nil {
		env.MaxTokens = *req.MaxTokens
	} else {
		env.MaxTokens = unboundedSentinel
	}

	if req.Schema != nil {
		name := req.Schema.Name
		env.Schema = &name
	}

	// Marshalling a struct of scalars and slices cannot fail.
	data, _ := json.Marshal(env)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
