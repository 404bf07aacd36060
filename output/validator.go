// Package output implements the structured output validator: locating the
// JSON payload inside raw model text (which may wrap it in prose or code
// fences), parsing it and validating it against the agent's declared schema.
// Validation is all-or-nothing; every failure carries the raw text for
// diagnostics.
package output

import (
	"encoding/json"
	"strings"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/internal/schema"
)

// ExtractJSON locates the structured payload within raw model output.
// It strips Markdown code fences and falls back to the outermost brace pair,
// tolerating explanatory prose around the object. Returns false when no
// candidate payload exists.
func ExtractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)

	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			// Drop an optional language tag such as ```json
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			s = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", false
	}

	return s[start : end+1], true
}

// Validate extracts, parses and validates raw model output against a schema
// map, returning the decoded object. Every failure mode (no payload,
// unparsable JSON, schema violation) yields *core.OutputValidationError with
// the raw text preserved.
func Validate(raw string, schemaMap map[string]any) (map[string]any, error) {
	payload, ok := ExtractJSON(raw)
	if !ok {
		return nil, &core.OutputValidationError{
			Raw:       raw,
			Violation: "no JSON object found in output",
		}
	}

	var decoded any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, &core.OutputValidationError{
			Raw:       raw,
			Violation: "unparsable JSON payload",
			Err:       err,
		}
	}

	compiled, err := schema.Compile(schemaMap)
	if err != nil {
		return nil, &core.OutputValidationError{
			Raw:       raw,
			Violation: "output schema does not compile",
			Err:       err,
		}
	}

	if err := compiled.Validate(decoded); err != nil {
		return nil, &core.OutputValidationError{
			Raw:       raw,
			Violation: err.Error(),
			Err:       err,
		}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, &core.OutputValidationError{
			Raw:       raw,
			Violation: "payload is not a JSON object",
		}
	}

	return obj, nil
}

// Into validates raw output against the schema and decodes the payload into
// target, a pointer to a struct mirroring the schema.
func Into(raw string, schemaMap map[string]any, target any) error {
	obj, err := Validate(raw, schemaMap)
	if err != nil {
		return err
	}

	buf, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	return json.Unmarshal(buf, target)
}
