package orchestrator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestResolveInput(t *testing.T) {
	completed := Results{}
	completed.Record("t1", map[string]any{"x": 5})
	completed.Record("t2", "markdown")

	tests := []struct {
		name  string
		input any
		want  any
	}{
		{
			name:  "whole string placeholder",
			input: map[string]any{"v": "${t1.result}"},
			want:  map[string]any{"v": map[string]any{"x": 5}},
		},
		{
			name:  "non matching strings pass through",
			input: map[string]any{"v": "plain", "w": "prefix ${t1.result}", "z": "$t1.result"},
			want:  map[string]any{"v": "plain", "w": "prefix ${t1.result}", "z": "$t1.result"},
		},
		{
			name:  "unknown task resolves to nil",
			input: map[string]any{"v": "${t9.result}"},
			want:  map[string]any{"v": nil},
		},
		{
			name:  "placeholder without attribute resolves to nil",
			input: "${t1}",
			want:  nil,
		},
		{
			name:  "unknown attribute resolves to nil",
			input: "${t1.other}",
			want:  nil,
		},
		{
			name:  "nested lists and maps",
			input: []any{"${t2.result}", map[string]any{"deep": []any{"${t1.result}", 3}}},
			want:  []any{"markdown", map[string]any{"deep": []any{map[string]any{"x": 5}, 3}}},
		},
		{
			name:  "scalars pass through",
			input: map[string]any{"n": 1.5, "b": true, "nil": nil},
			want:  map[string]any{"n": 1.5, "b": true, "nil": nil},
		},
		{
			name:  "string slices",
			input: []string{"${t2.result}", "x"},
			want:  []any{"markdown", "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveInput(tt.input, completed)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ResolveInput() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveInput_Pure(t *testing.T) {
	completed := Results{}
	completed.Record("t1", map[string]any{"x": 5})
	input := map[string]any{"v": "${t1.result}", "list": []any{"a"}}

	first := ResolveInput(input, completed)
	second := ResolveInput(input, completed)
	assert.Equal(t, first, second)

	// Mutating the output must not leak into the input or the results.
	first.(map[string]any)["v"].(map[string]any)["x"] = 99
	first.(map[string]any)["list"].([]any)[0] = "changed"

	assert.Equal(t, "${t1.result}", input["v"])
	assert.Equal(t, "a", input["list"].([]any)[0])
	assert.Equal(t, 5, completed["t1"]["result"].(map[string]any)["x"])
}

func TestCompile_TaggedUnion(t *testing.T) {
	v := Compile(map[string]any{"a": "${t1.result}", "b": "lit", "c": []any{1}})

	m, ok := v.(MapValue)
	if !assert.True(t, ok) {
		return
	}
	assert.IsType(t, Ref{}, m["a"])
	assert.IsType(t, Literal{}, m["b"])
	assert.IsType(t, ListValue{}, m["c"])
	assert.Equal(t, "t1", m["a"].(Ref).TaskID)
}
