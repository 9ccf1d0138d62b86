package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTemplates_File(t *testing.T) {
	templates, err := LoadTemplates(filepath.Join("testdata", "report.hcl"))
	require.NoError(t, err)
	require.Len(t, templates, 1)

	want := Template{
		Name:     "report",
		Keywords: []string{"report", "progress"},
		Steps: []StepTemplate{
			{Key: "gen", Action: "generate_report", InputOption: "report_input", Checkpoint: true},
			{
				Key:       "render",
				Action:    "render_report",
				DependsOn: []string{"gen"},
				Input: map[string]any{
					"report": "${gen.result}",
					"format": "markdown",
					"copies": 2,
					"ratio":  0.5,
					"tags":   []any{"weekly", "${gen.result}"},
				},
			},
		},
	}
	if diff := cmp.Diff(want, templates[0]); diff != "" {
		t.Errorf("LoadTemplates() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTemplates_Directory(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join("testdata", "report.hcl"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), src, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`
flow "notes" {
  default = true
  step "only" {
    action = "take_notes"
  }
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not hcl"), 0o644))

	templates, err := LoadTemplates(dir)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "notes", templates[0].Name)
	assert.True(t, templates[0].Default)
	assert.Equal(t, "report", templates[1].Name)
}

func TestLoadTemplates_PlannedFromHCL(t *testing.T) {
	templates, err := LoadTemplates(filepath.Join("testdata", "report.hcl"))
	require.NoError(t, err)
	p := newTestPlanner(t, WithTemplates(templates...))

	job, err := p.Plan("student progress", map[string]any{
		"report_input": map[string]any{"student": "ana"},
	})
	require.NoError(t, err)
	require.Len(t, job.Tasks, 2)

	assert.Equal(t, map[string]any{"student": "ana"}, job.Tasks[0].Input)
	assert.Equal(t, "${t1.result}", job.Tasks[1].Input.(map[string]any)["report"])
	assert.Equal(t, []any{"weekly", "${t1.result}"}, job.Tasks[1].Input.(map[string]any)["tags"])
	assert.Equal(t, []string{"t1"}, job.Checkpoints)
}

func TestParseTemplates_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "syntax",
			src:     `flow "x" {`,
			wantErr: "failed to parse",
		},
		{
			name:    "missing action",
			src:     `flow "x" { keywords = ["x"]; step "a" {} }`,
			wantErr: "failed",
		},
		{
			name: "unknown step reference",
			src: `flow "x" {
  keywords = ["x"]
  step "a" {
    action = "x"
    input  = { v = nope.result }
  }
}`,
			wantErr: "flow x, step a",
		},
		{
			name: "input not an object",
			src: `flow "x" {
  keywords = ["x"]
  step "a" {
    action = "x"
    input  = "text"
  }
}`,
			wantErr: "input must be an object",
		},
		{
			name: "forward reference",
			src: `flow "x" {
  keywords = ["x"]
  step "a" {
    action = "x"
    input  = { v = b.result }
  }
  step "b" {
    action = "y"
  }
}`,
			wantErr: "references unknown or later step b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplates([]byte(tt.src), "test.hcl")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadTemplates_MissingPath(t *testing.T) {
	_, err := LoadTemplates(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}
