package actions

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lessonPlanFixture(weeks, sections int) map[string]any {
	return map[string]any{
		"title":             "Fractions",
		"total_duration":    weeks,
		"sections_per_week": sections,
		"weekly_schedule": []any{
			map[string]any{"week": 1, "topic": "Halves"},
			map[string]any{"week": 2, "topic": "Quarters"},
		},
	}
}

func slotStarts(t *testing.T, out any) []string {
	t.Helper()
	slots := out.(map[string]any)["suggested_slots"].([]any)
	starts := make([]string, len(slots))
	for i, s := range slots {
		starts[i] = s.(map[string]any)["start"].(string)
	}
	return starts
}

func TestTimetable_SpreadsSectionsAcrossWeek(t *testing.T) {
	tt := &timetable{clock: func() time.Time { return fixedNow }}

	out, err := tt.suggest(context.Background(), map[string]any{
		"plan": lessonPlanFixture(2, 2),
	})
	require.NoError(t, err)
	assert.True(t, ValidateTimetable(out))

	want := []string{
		"2025-03-10T09:00:00Z", // Monday after the clock
		"2025-03-12T09:00:00Z",
		"2025-03-17T09:00:00Z",
		"2025-03-19T09:00:00Z",
	}
	if diff := cmp.Diff(want, slotStarts(t, out)); diff != "" {
		t.Errorf("slot starts mismatch (-want +got):\n%s", diff)
	}

	first := out.(map[string]any)["suggested_slots"].([]any)[0].(map[string]any)
	assert.Equal(t, "Fractions: Week 1 Section 1 - Halves", first["title"])
	assert.Equal(t, "2025-03-10T10:00:00Z", first["end"])

	meta := out.(map[string]any)["metadata"].(map[string]any)
	assert.Equal(t, "primary", meta["calendar_id"])
	assert.Equal(t, "Fractions", meta["course_name"])
}

func TestTimetable_AvoidsBusyIntervals(t *testing.T) {
	tt := &timetable{clock: func() time.Time { return fixedNow }}

	out, err := tt.suggest(context.Background(), map[string]any{
		"plan":        lessonPlanFixture(1, 1),
		"slot_hours":  2,
		"work_hours":  []any{9.0, 12.0},
		"start_date":  "2025-03-10",
		"calendar_id": "school",
		"busy": []any{
			map[string]any{"start": "2025-03-10T09:00:00Z", "end": "2025-03-10T12:00:00Z"},
			map[string]any{"start": "2025-03-11T09:30:00Z", "end": "2025-03-11T10:00:00Z"},
		},
	})
	require.NoError(t, err)

	// Monday is fully booked and Tuesday 9-11 clashes, so 10-12 Tuesday wins.
	assert.Equal(t, []string{"2025-03-11T10:00:00Z"}, slotStarts(t, out))
	assert.Equal(t, "school", out.(map[string]any)["metadata"].(map[string]any)["calendar_id"])
}

func TestTimetable_StartDateMidWeek(t *testing.T) {
	tt := &timetable{clock: func() time.Time { return fixedNow }}

	out, err := tt.suggest(context.Background(), map[string]any{
		"plan":       lessonPlanFixture(1, 1),
		"start_date": "2025-03-12",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-12T09:00:00Z"}, slotStarts(t, out))
}

func TestTimetable_StartDateOnWeekend(t *testing.T) {
	tt := &timetable{clock: func() time.Time { return fixedNow }}

	want := []string{
		"2025-03-17T09:00:00Z",
		"2025-03-19T09:00:00Z",
		"2025-03-24T09:00:00Z",
		"2025-03-26T09:00:00Z",
	}
	for _, start := range []string{"2025-03-15", "2025-03-16"} {
		out, err := tt.suggest(context.Background(), map[string]any{
			"plan":       lessonPlanFixture(2, 2),
			"start_date": start,
		})
		require.NoError(t, err, start)
		assert.True(t, ValidateTimetable(out), start)
		if diff := cmp.Diff(want, slotStarts(t, out)); diff != "" {
			t.Errorf("start %s: slot starts mismatch (-want +got):\n%s", start, diff)
		}
	}
}

func TestTimetable_ManySectionsShareDays(t *testing.T) {
	tt := &timetable{clock: func() time.Time { return fixedNow }}

	out, err := tt.suggest(context.Background(), map[string]any{
		"plan":       lessonPlanFixture(1, 7),
		"start_date": "2025-03-10",
	})
	require.NoError(t, err)

	starts := slotStarts(t, out)
	require.Len(t, starts, 7)
	seen := make(map[string]bool)
	for _, s := range starts {
		assert.False(t, seen[s], "duplicate slot %s", s)
		seen[s] = true
	}
}

func TestTimetable_Errors(t *testing.T) {
	tt := &timetable{clock: func() time.Time { return fixedNow }}

	tests := []struct {
		name    string
		input   map[string]any
		wantErr string
	}{
		{
			name:    "slot longer than day",
			input:   map[string]any{"slot_hours": 9},
			wantErr: "does not fit",
		},
		{
			name:    "bad work hours",
			input:   map[string]any{"work_hours": []any{17, 9}},
			wantErr: "invalid work_hours",
		},
		{
			name:    "bad start date",
			input:   map[string]any{"start_date": "next week"},
			wantErr: "invalid start_date",
		},
		{
			name:    "bad timezone",
			input:   map[string]any{"timezone": "Mars/Olympus"},
			wantErr: "invalid timezone",
		},
		{
			name: "no room",
			input: map[string]any{
				"plan":       lessonPlanFixture(1, 1),
				"start_date": "2025-03-14",
				"busy": []any{
					map[string]any{"start": "2025-03-14T00:00:00Z", "end": "2025-03-15T00:00:00Z"},
				},
			},
			wantErr: "no free 1h slot in week 1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tt.suggest(context.Background(), tc.input)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
