package actions

import (
	"context"
	"testing"

	"github.com/aescanero/classflow/internal/application/orchestrator"
	eventsmemory "github.com/aescanero/classflow/pkg/adapters/events/memory"
	"github.com/aescanero/classflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOutbox(t *testing.T, topic string) (*outbox, *[]domain.Event) {
	t.Helper()

	bus := eventsmemory.NewEventBus(nil)
	t.Cleanup(func() { _ = bus.Close() })

	var got []domain.Event
	require.NoError(t, bus.Subscribe(context.Background(), topic, func(_ context.Context, e domain.Event) error {
		got = append(got, e)
		return nil
	}))

	ob := &outbox{deps: testDeps(nil, bus)}
	ob.deps.setDefaults()
	return ob, &got
}

func TestOutbox_ScheduleCalendar(t *testing.T) {
	ob, events := newTestOutbox(t, domain.TopicCalendar)
	ctx := orchestrator.WithTask(context.Background(), "job-1", "t4")

	out, err := ob.scheduleCalendar(ctx, map[string]any{
		"timetable": map[string]any{
			"suggested_slots": []any{
				map[string]any{"start": "2025-03-10T09:00:00Z", "end": "2025-03-10T10:00:00Z", "title": "Week 1"},
				map[string]any{"start": "2025-03-17T09:00:00Z", "end": "2025-03-17T10:00:00Z", "title": "Week 2", "location": "Lab"},
			},
			"metadata": map[string]any{"calendar_id": "school", "location_hint": "Room 4"},
		},
	})
	require.NoError(t, err)
	assert.True(t, ValidateSchedule(out))

	results := out.([]any)
	require.Len(t, results, 2)
	assert.Equal(t, "req-1", results[0].(map[string]any)["request_id"])

	require.Len(t, *events, 2)
	first := (*events)[0]
	assert.Equal(t, domain.EventTypeCalendarEventsRequested, first.Type)
	assert.Equal(t, "job-1", first.JobID)
	assert.Equal(t, "t4", first.TaskID)
	assert.Equal(t, fixedNow, first.Timestamp)
	assert.Equal(t, "school", first.Data["calendar_id"])
	assert.Equal(t, "Week 1", first.Data["summary"])
	assert.Equal(t, "Room 4", first.Data["location"])
	assert.Equal(t, "Lab", (*events)[1].Data["location"])
}

func TestOutbox_ScheduleCalendarRejectsInvalidTimetable(t *testing.T) {
	ob, events := newTestOutbox(t, domain.TopicCalendar)

	_, err := ob.scheduleCalendar(context.Background(), map[string]any{"timetable": map[string]any{}})
	assert.ErrorContains(t, err, "no suggested_slots")
	assert.Empty(t, *events)
}

func TestOutbox_CreateForm(t *testing.T) {
	ob, events := newTestOutbox(t, domain.TopicForms)

	out, err := ob.createForm(context.Background(), map[string]any{
		"assessment": map[string]any{"title": "Quiz", "questions": []any{"q1"}},
	})
	require.NoError(t, err)
	assert.True(t, ValidateForm(out))
	assert.Equal(t, "Quiz", out.(map[string]any)["title"])

	require.Len(t, *events, 1)
	assert.Equal(t, domain.EventTypeFormCreateRequested, (*events)[0].Type)

	out, err = ob.createForm(context.Background(), map[string]any{"title": "Override"})
	require.NoError(t, err)
	assert.Equal(t, "Override", out.(map[string]any)["title"])

	out, err = ob.createForm(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Assessment", out.(map[string]any)["title"])
}

func TestOutbox_SendEmail(t *testing.T) {
	ob, events := newTestOutbox(t, domain.TopicEmail)

	out, err := ob.sendEmail(context.Background(), map[string]any{
		"draft":   map[string]any{"to": "parents@example.com", "subject": "Trip", "body": "Hi"},
		"subject": "Trip reminder",
	})
	require.NoError(t, err)
	assert.True(t, ValidateEmailSend(out))

	res := out.(map[string]any)
	assert.Equal(t, true, res["ok"])
	assert.Equal(t, "send", res["mode"])
	assert.Equal(t, "Trip reminder", res["subject"])

	require.Len(t, *events, 1)
	assert.Equal(t, "parents@example.com", (*events)[0].Data["to"])
	assert.Equal(t, "Hi", (*events)[0].Data["body"])
}

func TestOutbox_SendEmailWithoutRecipient(t *testing.T) {
	ob, events := newTestOutbox(t, domain.TopicEmail)

	out, err := ob.sendEmail(context.Background(), map[string]any{
		"draft": map[string]any{"subject": "Trip"},
	})
	require.NoError(t, err)
	assert.Equal(t, false, out.(map[string]any)["ok"])
	assert.True(t, ValidateEmailSend(out))
	assert.Empty(t, *events)
}

func TestOutbox_FailsWithoutConsumer(t *testing.T) {
	bus := eventsmemory.NewEventBus(nil)
	t.Cleanup(func() { _ = bus.Close() })

	ob := &outbox{deps: testDeps(nil, bus)}
	ob.deps.setDefaults()

	out, err := ob.sendEmail(context.Background(), map[string]any{
		"to":    "class@example.com",
		"draft": map[string]any{"subject": "Homework", "body": "Chapter 3"},
	})
	assert.ErrorIs(t, err, ErrNoConsumer)
	assert.ErrorContains(t, err, domain.TopicEmail)
	assert.Nil(t, out)

	_, err = ob.scheduleCalendar(context.Background(), map[string]any{
		"timetable": map[string]any{
			"suggested_slots": []any{
				map[string]any{"start": "2025-03-10T09:00:00Z", "end": "2025-03-10T10:00:00Z", "title": "Week 1"},
			},
		},
	})
	assert.ErrorIs(t, err, ErrNoConsumer)
}
