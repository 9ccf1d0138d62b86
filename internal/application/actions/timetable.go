package actions

import (
	"context"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// timetable suggests one consistent weekly slot pattern for a lesson plan.
type timetable struct {
	clock func() time.Time
}

type interval struct {
	start, end time.Time
}

func (i interval) overlaps(o interval) bool {
	return i.start.Before(o.end) && o.start.Before(i.end)
}

type timetableRequest struct {
	plan       map[string]any
	weeks      int
	sections   int
	slotHours  int
	dayStart   int
	dayEnd     int
	calendarID string
	location   string
	firstDay   time.Time
	notBefore  time.Time
	busy       []interval
}

// suggest allocates sections_per_week weekday slots per week for
// duration_weeks weeks. Sections spread across Monday to Friday and slide
// to the next free hour, then the next weekday, when they clash with busy
// intervals or earlier sections.
//
// Input: plan, slot_hours (1), work_hours ([9, 17]), calendar_id
// ("primary"), location_hint, start_date (YYYY-MM-DD, default next Monday),
// timezone (UTC), busy ([{start, end}] RFC3339).
func (t *timetable) suggest(_ context.Context, input any) (any, error) {
	req, err := t.parse(input)
	if err != nil {
		return nil, err
	}

	var taken []interval
	slots := make([]any, 0, req.weeks*req.sections)
	for week := 0; week < req.weeks; week++ {
		monday := req.firstDay.AddDate(0, 0, 7*week)
		for section := 0; section < req.sections; section++ {
			preferred := section * 5 / req.sections
			slot, ok := req.findSlot(monday, preferred, taken)
			if !ok {
				return nil, fmt.Errorf("no free %dh slot in week %d for section %d", req.slotHours, week+1, section+1)
			}
			taken = append(taken, slot)

			entry := map[string]any{
				"start":  slot.start.Format(time.RFC3339),
				"end":    slot.end.Format(time.RFC3339),
				"title":  req.slotTitle(week, section),
				"reason": fmt.Sprintf("Week %d, section %d of %d within working hours", week+1, section+1, req.sections),
			}
			if req.location != "" {
				entry["location"] = req.location
			}
			slots = append(slots, entry)
		}
	}

	metadata := map[string]any{
		"calendar_id":       req.calendarID,
		"duration_weeks":    req.weeks,
		"sections_per_week": req.sections,
		"slot_hours":        req.slotHours,
		"work_hours":        []any{req.dayStart, req.dayEnd},
	}
	if title := courseName(req.plan); title != "" {
		metadata["course_name"] = title
	}
	if req.location != "" {
		metadata["location_hint"] = req.location
	}

	return map[string]any{
		"suggested_slots": slots,
		"metadata":        metadata,
	}, nil
}

func (t *timetable) parse(input any) (*timetableRequest, error) {
	in, err := inputMap(input)
	if err != nil {
		return nil, err
	}

	req := &timetableRequest{
		plan:       objectField(in, "plan"),
		calendarID: stringField(in, "calendar_id", "primary"),
		location:   stringField(in, "location_hint", ""),
	}
	if req.weeks, err = intField(req.plan, 8, "duration_weeks", "total_duration"); err != nil {
		return nil, err
	}
	if req.sections, err = intField(req.plan, 1, "sections_per_week"); err != nil {
		return nil, err
	}
	if req.slotHours, err = intField(in, 1, "slot_hours"); err != nil {
		return nil, err
	}
	if req.dayStart, req.dayEnd, err = workHours(in["work_hours"]); err != nil {
		return nil, err
	}

	switch {
	case req.weeks <= 0:
		return nil, fmt.Errorf("duration_weeks must be positive, got %d", req.weeks)
	case req.sections <= 0:
		return nil, fmt.Errorf("sections_per_week must be positive, got %d", req.sections)
	case req.slotHours <= 0:
		return nil, fmt.Errorf("slot_hours must be positive, got %d", req.slotHours)
	case req.dayStart+req.slotHours > req.dayEnd:
		return nil, fmt.Errorf("a %dh slot does not fit in work hours %d-%d", req.slotHours, req.dayStart, req.dayEnd)
	}

	loc := time.UTC
	if tz := stringField(in, "timezone", ""); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
	}

	if d := stringField(in, "start_date", ""); d != "" {
		day, err := time.ParseInLocation(dateLayout, d, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid start_date %q: %w", d, err)
		}
		// A weekend start has no schedulable days left in its week.
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			day = nextMonday(day)
		}
		req.firstDay = mondayOf(day)
		req.notBefore = day
	} else {
		req.firstDay = nextMonday(t.clock().In(loc))
	}

	if req.busy, err = busyIntervals(in["busy"]); err != nil {
		return nil, err
	}
	return req, nil
}

// findSlot scans weekdays from preferred to Friday and hours from the
// start of the working day.
func (r *timetableRequest) findSlot(monday time.Time, preferred int, taken []interval) (interval, bool) {
	for day := preferred; day < 5; day++ {
		date := monday.AddDate(0, 0, day)
		if date.Before(r.notBefore) {
			continue
		}
		for hour := r.dayStart; hour+r.slotHours <= r.dayEnd; hour++ {
			start := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, date.Location())
			candidate := interval{start: start, end: start.Add(time.Duration(r.slotHours) * time.Hour)}
			if !clashes(candidate, taken) && !clashes(candidate, r.busy) {
				return candidate, true
			}
		}
	}
	return interval{}, false
}

func (r *timetableRequest) slotTitle(week, section int) string {
	prefix := courseName(r.plan)
	if prefix == "" {
		prefix = "Lesson"
	}
	title := fmt.Sprintf("%s: Week %d", prefix, week+1)
	if r.sections > 1 {
		title += fmt.Sprintf(" Section %d", section+1)
	}
	if topic := weekTopic(r.plan, week); topic != "" {
		title += " - " + topic
	}
	return title
}

func clashes(c interval, others []interval) bool {
	for _, o := range others {
		if c.overlaps(o) {
			return true
		}
	}
	return false
}

func courseName(plan map[string]any) string {
	if s, ok := firstTruthy(plan, "title", "name").(string); ok {
		return s
	}
	return ""
}

// weekTopic returns the topic of the weekly_schedule entry for week.
func weekTopic(plan map[string]any, week int) string {
	weekly, _ := firstTruthy(plan, "weekly_schedule", "weekly").([]any)
	if week >= len(weekly) {
		return ""
	}
	entry, ok := weekly[week].(map[string]any)
	if !ok {
		return ""
	}
	if s, ok := firstTruthy(entry, "topic", "title", "name").(string); ok {
		return s
	}
	return ""
}

func workHours(v any) (int, int, error) {
	if v == nil {
		return 9, 17, nil
	}
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return 0, 0, fmt.Errorf("work_hours must be a [start, end] pair, got %v", v)
	}
	start, ok1 := toInt(pair[0])
	end, ok2 := toInt(pair[1])
	if !ok1 || !ok2 || start < 0 || end > 24 || start >= end {
		return 0, 0, fmt.Errorf("invalid work_hours %v", v)
	}
	return start, end, nil
}

func busyIntervals(v any) ([]interval, error) {
	items, _ := v.([]any)
	out := make([]interval, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("busy[%d] must be an object", i)
		}
		start, err := time.Parse(time.RFC3339, stringField(m, "start", ""))
		if err != nil {
			return nil, fmt.Errorf("busy[%d].start: %w", i, err)
		}
		end, err := time.Parse(time.RFC3339, stringField(m, "end", ""))
		if err != nil {
			return nil, fmt.Errorf("busy[%d].end: %w", i, err)
		}
		out = append(out, interval{start: start, end: end})
	}
	return out, nil
}

func mondayOf(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	d := day.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// nextMonday is the first Monday strictly after now.
func nextMonday(now time.Time) time.Time {
	return mondayOf(now).AddDate(0, 0, 7)
}
