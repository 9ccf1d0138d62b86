package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aescanero/classflow/internal/application/orchestrator"
	"github.com/aescanero/classflow/pkg/domain"
	"go.uber.org/zap"
)

// ErrNoConsumer is returned when an integration request would be published
// to an in-process topic that nothing listens on.
var ErrNoConsumer = errors.New("no consumer for integration topic")

// subscriberChecker is implemented by buses that drop events published to
// topics without subscribers. Durable buses keep the request until a
// provider reads it and do not implement it.
type subscriberChecker interface {
	HasSubscribers(topic string) bool
}

// outbox turns integration actions into requests on the event bus.
// Provider workers own the actual calendar, forms and mail APIs.
type outbox struct {
	deps Dependencies
}

// scheduleCalendar publishes one calendar request per suggested slot.
func (o *outbox) scheduleCalendar(ctx context.Context, input any) (any, error) {
	in, err := inputMap(input)
	if err != nil {
		return nil, err
	}
	tt := objectField(in, "timetable")
	slots, ok := tt["suggested_slots"].([]any)
	if !ok {
		return nil, fmt.Errorf("invalid timetable: no suggested_slots")
	}

	meta := objectField(tt, "metadata")
	calendarID := stringField(meta, "calendar_id", "primary")
	description := stringField(meta, "session_purpose", "Scheduled by classflow.")
	location := stringField(meta, "location_hint", "")
	attendees, _ := meta["attendees"].([]any)

	o.deps.Logger.Info("Scheduling suggested slots",
		zap.Int("slots", len(slots)),
		zap.String("calendar_id", calendarID))

	results := make([]any, 0, len(slots))
	for i, s := range slots {
		slot, ok := s.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("suggested_slots[%d] must be an object", i)
		}

		data := map[string]any{
			"calendar_id": calendarID,
			"summary":     stringField(slot, "title", fmt.Sprintf("Lesson %d", i+1)),
			"start":       slot["start"],
			"end":         slot["end"],
			"description": description,
			"location":    stringField(slot, "location", location),
		}
		if len(attendees) > 0 {
			data["attendees"] = attendees
		}

		requestID, err := o.publish(ctx, domain.TopicCalendar, domain.EventTypeCalendarEventsRequested, data)
		if err != nil {
			return nil, err
		}
		results = append(results, map[string]any{
			"ok":         true,
			"request_id": requestID,
			"summary":    data["summary"],
			"start":      data["start"],
			"end":        data["end"],
		})
	}
	return results, nil
}

// createForm requests a form built from an assessment.
func (o *outbox) createForm(ctx context.Context, input any) (any, error) {
	in, err := inputMap(input)
	if err != nil {
		return nil, err
	}
	assessment := objectField(in, "assessment")
	title := stringField(in, "title", stringField(assessment, "title", "Assessment"))

	requestID, err := o.publish(ctx, domain.TopicForms, domain.EventTypeFormCreateRequested, map[string]any{
		"title":      title,
		"assessment": assessment,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success": true,
		"formId":  requestID,
		"title":   title,
		"status":  "requested",
	}, nil
}

// sendEmail requests delivery of a draft. Fields given directly in the
// input override the draft's. A missing recipient is reported as ok=false
// rather than an error.
func (o *outbox) sendEmail(ctx context.Context, input any) (any, error) {
	in, err := inputMap(input)
	if err != nil {
		return nil, err
	}
	draft := objectField(in, "draft")
	field := func(key string) string {
		return strings.TrimSpace(stringField(in, key, stringField(draft, key, "")))
	}

	to := field("to")
	if to == "" {
		return map[string]any{
			"ok":    false,
			"error": "no recipient email found",
		}, nil
	}

	mode := field("mode")
	if mode != "draft" {
		mode = "send"
	}
	data := map[string]any{
		"to":      to,
		"cc":      field("cc"),
		"bcc":     field("bcc"),
		"subject": field("subject"),
		"body":    field("body"),
		"mode":    mode,
	}

	requestID, err := o.publish(ctx, domain.TopicEmail, domain.EventTypeEmailSendRequested, data)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"ok":         true,
		"mode":       mode,
		"request_id": requestID,
		"to":         to,
		"subject":    data["subject"],
	}, nil
}

func (o *outbox) publish(ctx context.Context, topic string, eventType domain.EventType, data map[string]any) (string, error) {
	if sc, ok := o.deps.Outbox.(subscriberChecker); ok && !sc.HasSubscribers(topic) {
		return "", fmt.Errorf("publish %s: %w %q", eventType, ErrNoConsumer, topic)
	}

	jobID, taskID := orchestrator.TaskFromContext(ctx)
	event := domain.Event{
		ID:        o.deps.NewID(),
		Type:      eventType,
		JobID:     jobID,
		TaskID:    taskID,
		Timestamp: o.deps.Clock(),
		Data:      data,
	}
	if err := o.deps.Outbox.Publish(ctx, topic, event); err != nil {
		return "", fmt.Errorf("publish %s: %w", eventType, err)
	}

	o.deps.Logger.Debug("Integration request published",
		zap.String("topic", topic),
		zap.String("request_id", event.ID),
		zap.String("job_id", jobID),
		zap.String("task_id", taskID))
	return event.ID, nil
}
