// Package schema bridges Go types and JSON Schema for the runtime: it
// reflects parameter/output schemas from struct types and validates untrusted
// JSON values against schema maps. Reflection uses invopop/jsonschema,
// validation uses santhosh-tekuri/jsonschema (draft 2020-12).
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Reflect derives a JSON Schema map from a Go struct type. Definitions are
// inlined so the result can be handed to model providers as a standalone
// parameter or output schema. Field descriptions come from `jsonschema`
// struct tags.
func Reflect(v any) (map[string]any, error) {
	r := &invopop.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}

	s := r.Reflect(v)

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal reflected schema: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode reflected schema: %w", err)
	}

	return m, nil
}

// Compile turns a schema map into a reusable validator.
func Compile(m map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	return c.Compile("schema.json")
}

// Validate checks a decoded JSON value (the result of json.Unmarshal into
// any) against a schema map. Prefer Compile for repeated validation against
// the same schema.
func Validate(m map[string]any, v any) error {
	s, err := Compile(m)
	if err != nil {
		return err
	}
	return s.Validate(v)
}
