package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name      string
		validator func(any) bool
		out       any
		want      bool
	}{
		{"lesson plan", ValidateLessonPlan, map[string]any{"weekly_schedule": []any{"w1"}, "total_duration": 8, "sections_per_week": 1}, true},
		{"lesson plan alt keys", ValidateLessonPlan, map[string]any{"weekly": []any{"w1"}, "duration_weeks": 8, "sections_per_week": 2}, true},
		{"lesson plan empty schedule", ValidateLessonPlan, map[string]any{"weekly_schedule": []any{}, "total_duration": 8, "sections_per_week": 1}, false},
		{"lesson plan fractional sections", ValidateLessonPlan, map[string]any{"weekly_schedule": []any{"w1"}, "total_duration": 8, "sections_per_week": 1.5}, false},
		{"lesson plan not object", ValidateLessonPlan, "plan", false},

		{"markdown", ValidateMarkdown, "# Plan", true},
		{"markdown blank", ValidateMarkdown, "  \n", false},
		{"markdown not string", ValidateMarkdown, 42, false},

		{"assessment", ValidateAssessment, map[string]any{"questions": []any{"q"}}, true},
		{"assessment empty", ValidateAssessment, map[string]any{"questions": []any{}}, false},

		{"form id", ValidateForm, map[string]any{"success": true, "formId": "f1"}, true},
		{"form url", ValidateForm, map[string]any{"success": true, "formUrl": "https://forms"}, true},
		{"form failed", ValidateForm, map[string]any{"success": false, "formId": "f1"}, false},
		{"form no id", ValidateForm, map[string]any{"success": true}, false},

		{"timetable", ValidateTimetable, map[string]any{"suggested_slots": []any{map[string]any{"start": "s", "end": "e", "title": "t"}}}, true},
		{"timetable no slots", ValidateTimetable, map[string]any{"suggested_slots": []any{}}, true},
		{"timetable missing title", ValidateTimetable, map[string]any{"suggested_slots": []any{map[string]any{"start": "s", "end": "e"}}}, false},
		{"timetable missing key", ValidateTimetable, map[string]any{}, false},

		{"schedule list", ValidateSchedule, []any{}, true},
		{"schedule object", ValidateSchedule, map[string]any{}, true},
		{"schedule string", ValidateSchedule, "done", false},

		{"draft", ValidateEmailDraft, map[string]any{"subject": ""}, true},
		{"draft no subject", ValidateEmailDraft, map[string]any{"body": "hi"}, false},

		{"send ok", ValidateEmailSend, map[string]any{"ok": true}, true},
		{"send not ok", ValidateEmailSend, map[string]any{"ok": false}, true},
		{"send missing", ValidateEmailSend, map[string]any{"ok": "yes"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.validator(tc.out))
		})
	}
}
