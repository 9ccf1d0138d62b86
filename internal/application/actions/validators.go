package actions

import "strings"

// ValidateLessonPlan requires a non-empty weekly schedule and integer
// duration and sections per week.
func ValidateLessonPlan(out any) bool {
	plan, ok := out.(map[string]any)
	if !ok {
		return false
	}
	weekly, _ := firstTruthy(plan, "weekly_schedule", "weekly").([]any)
	duration := firstTruthy(plan, "duration_weeks", "total_duration")
	return len(weekly) > 0 && isInt(plan["sections_per_week"]) && isInt(duration)
}

// ValidateMarkdown requires a non-blank string.
func ValidateMarkdown(out any) bool {
	s, ok := out.(string)
	return ok && strings.TrimSpace(s) != ""
}

// ValidateAssessment requires a non-empty questions list.
func ValidateAssessment(out any) bool {
	a, ok := out.(map[string]any)
	if !ok {
		return false
	}
	questions, ok := a["questions"].([]any)
	return ok && len(questions) > 0
}

// ValidateForm requires success and a form id or url.
func ValidateForm(out any) bool {
	res, ok := out.(map[string]any)
	if !ok || !truthy(res["success"]) {
		return false
	}
	return truthy(res["formId"]) || truthy(res["formUrl"])
}

// ValidateTimetable requires every suggested slot to carry start, end
// and title.
func ValidateTimetable(out any) bool {
	tt, ok := out.(map[string]any)
	if !ok {
		return false
	}
	slots, ok := tt["suggested_slots"].([]any)
	if !ok {
		return false
	}
	for _, s := range slots {
		slot, ok := s.(map[string]any)
		if !ok || !truthy(slot["start"]) || !truthy(slot["end"]) || !truthy(slot["title"]) {
			return false
		}
	}
	return true
}

// ValidateSchedule accepts any list or object.
func ValidateSchedule(out any) bool {
	switch out.(type) {
	case []any, map[string]any:
		return true
	}
	return false
}

// ValidateEmailDraft requires a subject field.
func ValidateEmailDraft(out any) bool {
	d, ok := out.(map[string]any)
	if !ok {
		return false
	}
	subject, ok := d["subject"]
	return ok && subject != nil
}

// ValidateEmailSend requires a boolean ok field.
func ValidateEmailSend(out any) bool {
	d, ok := out.(map[string]any)
	if !ok {
		return false
	}
	_, ok = d["ok"].(bool)
	return ok
}
