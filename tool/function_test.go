package tool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrun/core"
)

func testToolContext() *core.ToolContext {
	return core.NewToolContext(context.Background(), "run-1", "call-1", "tester", 1)
}

func sumSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required":             []any{"a", "b"},
		"additionalProperties": false,
	}
}

func TestFunctionTool(t *testing.T) {
	sum := NewFunctionTool("calculate_sum", "Calculate the sum of two numbers", sumSchema(),
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)

	t.Run("valid arguments", func(t *testing.T) {
		result, err := sum.Call(testToolContext(), map[string]any{"a": 2.0, "b": 3.0})
		require.NoError(t, err)
		assert.Equal(t, 5.0, result)
	})

	t.Run("typed go values validate after normalization", func(t *testing.T) {
		result, err := sum.Call(testToolContext(), map[string]any{"a": 2, "b": 3})
		require.NoError(t, err)
		assert.Equal(t, 5.0, result)
	})

	t.Run("function receives normalized argument shapes", func(t *testing.T) {
		var got map[string]any
		inspect := NewFunctionTool("inspect", "captures its arguments", map[string]any{"type": "object"},
			func(_ *core.ToolContext, args map[string]any) (any, error) {
				got = args
				return nil, nil
			},
		)

		_, err := inspect.Call(testToolContext(), map[string]any{
			"count": 7,
			"tags":  []string{"alpha", "beta"},
		})
		require.NoError(t, err)
		assert.Equal(t, 7.0, got["count"])
		assert.Equal(t, []any{"alpha", "beta"}, got["tags"])
	})

	t.Run("missing required argument", func(t *testing.T) {
		_, err := sum.Call(testToolContext(), map[string]any{"a": 2.0})

		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, CodeValidationError, toolErr.Code)
		assert.Equal(t, "calculate_sum", toolErr.Tool)
	})

	t.Run("wrong argument type", func(t *testing.T) {
		_, err := sum.Call(testToolContext(), map[string]any{"a": "two", "b": 3.0})

		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, CodeValidationError, toolErr.Code)
	})

	t.Run("execution error is wrapped", func(t *testing.T) {
		failing := NewFunctionTool("fail", "always fails", map[string]any{"type": "object"},
			func(_ *core.ToolContext, _ map[string]any) (any, error) {
				return nil, errors.New("backend unavailable")
			},
		)

		_, err := failing.Call(testToolContext(), map[string]any{})

		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, CodeExecutionError, toolErr.Code)
		assert.Contains(t, toolErr.Message, "backend unavailable")
	})

	t.Run("tool error passes through unchanged", func(t *testing.T) {
		custom := NewToolError("quota", "limit reached", "QUOTA_EXCEEDED")
		quota := NewFunctionTool("quota", "custom failure", map[string]any{"type": "object"},
			func(_ *core.ToolContext, _ map[string]any) (any, error) {
				return nil, custom
			},
		)

		_, err := quota.Call(testToolContext(), map[string]any{})

		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, "QUOTA_EXCEEDED", toolErr.Code)
	})

	t.Run("tool context reaches the function", func(t *testing.T) {
		var seen string
		echo := NewFunctionTool("echo", "echoes the call id", map[string]any{"type": "object"},
			func(toolCtx *core.ToolContext, _ map[string]any) (any, error) {
				seen = fmt.Sprintf("%s/%s", toolCtx.RunID(), toolCtx.CallID())
				return nil, nil
			},
		)

		_, err := echo.Call(testToolContext(), map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "run-1/call-1", seen)
	})
}

func TestNewFunctionToolFromStruct(t *testing.T) {
	type bmiArgs struct {
		WeightKg float64 `json:"weight_kg" jsonschema:"description=Body weight in kilograms"`
		HeightM  float64 `json:"height_m" jsonschema:"description=Height in meters"`
	}

	bmi, err := NewFunctionToolFromStruct("calculate_bmi", "Calculate body mass index", bmiArgs{},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			w := args["weight_kg"].(float64)
			h := args["height_m"].(float64)
			return w / (h * h), nil
		},
	)
	require.NoError(t, err)

	params := bmi.Parameters()
	assert.Equal(t, "object", params["type"])

	result, err := bmi.Call(testToolContext(), map[string]any{"weight_kg": 80.0, "height_m": 2.0})
	require.NoError(t, err)
	assert.InDelta(t, 20.0, result.(float64), 0.001)

	_, err = bmi.Call(testToolContext(), map[string]any{"weight_kg": 80.0})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidationError, toolErr.Code)
}
