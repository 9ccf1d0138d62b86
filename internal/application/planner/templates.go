package planner

import (
	"fmt"

	"github.com/aescanero/classflow/pkg/domain"
)

// StepTemplate describes one task of a flow. Step keys are local to the
// flow; placeholders such as ${gen.result} and DependsOn entries name step
// keys and are rewritten to task ids when the flow is planned.
type StepTemplate struct {
	Key    string
	Action string

	// Input is the static input of the step.
	Input map[string]any

	// InputOption names a request option whose map value is the base input.
	InputOption string

	// MergeOption names a request option merged over the input.
	MergeOption string

	DependsOn  []string
	Checkpoint bool
}

// Template is a named flow selected by keywords.
type Template struct {
	Name     string
	Keywords []string

	// Default templates are used only when no other template matches.
	Default bool

	Steps []StepTemplate
}

// Validate checks that step keys are unique and that every dependency and
// placeholder names an earlier step.
func (t Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("template %s has no steps", t.Name)
	}
	if !t.Default && len(t.Keywords) == 0 {
		return fmt.Errorf("template %s needs keywords or default = true", t.Name)
	}

	seen := make(map[string]bool, len(t.Steps))
	for _, step := range t.Steps {
		if step.Key == "" {
			return fmt.Errorf("template %s: step key is required", t.Name)
		}
		if seen[step.Key] {
			return fmt.Errorf("template %s: duplicate step %s", t.Name, step.Key)
		}
		if step.Action == "" {
			return fmt.Errorf("template %s: step %s has no action", t.Name, step.Key)
		}
		for _, dep := range step.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("template %s: step %s depends on unknown or later step %s", t.Name, step.Key, dep)
			}
		}
		for _, ref := range references(step.Input) {
			if !seen[ref.TaskID] {
				return fmt.Errorf("template %s: step %s references unknown or later step %s", t.Name, step.Key, ref.TaskID)
			}
		}
		seen[step.Key] = true
	}

	return nil
}

// references collects every placeholder in v.
func references(v any) []domain.Reference {
	var out []domain.Reference
	var walk func(any)
	walk = func(v any) {
		switch val := v.(type) {
		case string:
			if ref, ok := domain.ParseReference(val); ok {
				out = append(out, ref)
			}
		case map[string]any:
			for _, item := range val {
				walk(item)
			}
		case []any:
			for _, item := range val {
				walk(item)
			}
		}
	}
	walk(v)
	return out
}

// BuiltinTemplates returns the default flow library: lesson, assessment,
// email and the default lesson fallback.
func BuiltinTemplates() []Template {
	return []Template{
		{
			Name:     "lesson",
			Keywords: []string{"lesson", "plan", "weekly", "syllabus"},
			Steps: []StepTemplate{
				{Key: "gen", Action: "generate_lesson_plan", InputOption: "lesson_input", Checkpoint: true},
				{Key: "render", Action: "render_lesson_markdown", Input: map[string]any{"plan": "${gen.result}"}, DependsOn: []string{"gen"}},
				{Key: "timetable", Action: "suggest_timetable", Input: map[string]any{"plan": "${gen.result}"}, MergeOption: "timetable_opts", DependsOn: []string{"gen"}, Checkpoint: true},
				{Key: "calendar", Action: "schedule_calendar", Input: map[string]any{"timetable": "${timetable.result}"}, DependsOn: []string{"timetable"}},
			},
		},
		{
			Name:     "assessment",
			Keywords: []string{"assessment", "quiz", "exam", "test"},
			Steps: []StepTemplate{
				{Key: "gen", Action: "generate_assessment", InputOption: "assessment_input", Checkpoint: true},
				{Key: "render", Action: "render_assessment_markdown", Input: map[string]any{"assessment": "${gen.result}"}, DependsOn: []string{"gen"}},
				{Key: "form", Action: "create_google_form", Input: map[string]any{"assessment": "${gen.result}"}, MergeOption: "form_opts", DependsOn: []string{"gen"}},
			},
		},
		{
			Name:     "email",
			Keywords: []string{"email"},
			Steps: []StepTemplate{
				{Key: "draft", Action: "draft_email", InputOption: "email_input", Checkpoint: true},
				{Key: "send", Action: "send_email", Input: map[string]any{"draft": "${draft.result}"}, MergeOption: "email_input", DependsOn: []string{"draft"}},
			},
		},
		{
			Name:    "default",
			Default: true,
			Steps: []StepTemplate{
				{Key: "gen", Action: "generate_lesson_plan", InputOption: "lesson_input", Checkpoint: true},
				{Key: "render", Action: "render_lesson_markdown", Input: map[string]any{"plan": "${gen.result}"}, DependsOn: []string{"gen"}},
			},
		},
	}
}
