package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

var (
	titleKeys  = []string{"title", "name"}
	weeklyKeys = []string{
		"weekly_schedule", "weeks_plan", "weeks", "schedule",
		"modules", "units", "outline", "timeline",
	}
	richSections = []string{
		"objectives", "learning_objectives", "outcomes",
		"standards_alignment", "prerequisites",
		"resources", "external_resources",
		"assessments", "assessment_strategy",
		"activities", "materials", "notes",
	}
)

func renderLessonAction(_ context.Context, input any) (any, error) {
	in, err := inputMap(input)
	if err != nil {
		return nil, err
	}
	plan, ok := in["plan"]
	if !ok || plan == nil {
		plan = map[string]any{}
	}
	return RenderLessonPlan(plan), nil
}

func renderAssessmentAction(_ context.Context, input any) (any, error) {
	in, err := inputMap(input)
	if err != nil {
		return nil, err
	}
	a, ok := in["assessment"]
	if !ok || a == nil {
		a = map[string]any{}
	}
	return RenderAssessment(a), nil
}

// RenderLessonPlan renders a lesson plan object as markdown. Scalars
// become a metadata list, week-like lists become "Week N" sections, and
// every other field is rendered so nothing is lost. Object keys are
// rendered in sorted order.
func RenderLessonPlan(v any) string {
	plan, ok := v.(map[string]any)
	if !ok {
		return "### Error\nInvalid lesson plan payload."
	}
	if truthy(plan["error"]) {
		return "### Error\n" + asString(plan["error"])
	}

	title := "Lesson Plan"
	if t := firstTruthy(plan, titleKeys...); t != nil {
		title = asString(t)
	}
	out := []string{"# " + title}
	rendered := make(map[string]bool)
	skip := func(k string) bool {
		return slices.Contains(titleKeys, k) || slices.Contains(weeklyKeys, k)
	}

	var meta []string
	for _, k := range sortedKeys(plan) {
		if skip(k) || !isScalar(plan[k]) {
			continue
		}
		meta = append(meta, fmt.Sprintf("- %s: %s", humanizeKey(k), asString(plan[k])))
		rendered[k] = true
	}
	if len(meta) > 0 {
		out = append(out, strings.Join(meta, "\n"))
	}

	for _, k := range weeklyKeys {
		section := humanizeKey(k)
		switch val := plan[k].(type) {
		case []any:
			if len(val) == 0 {
				continue
			}
			out = append(out, "\n## "+section)
			if looksLikeWeeks(val) {
				out = append(out, renderWeeks(val)...)
			} else {
				out = append(out, renderEntries(val, strings.TrimSuffix(section, "s"))...)
			}
			rendered[k] = true
		case map[string]any:
			if len(val) == 0 {
				continue
			}
			out = append(out, "\n## "+section)
			if block := kvBlock(val, 0); block != "" {
				out = append(out, block)
			}
			rendered[k] = true
		}
	}

	renderSection := func(k string) {
		val := plan[k]
		out = append(out, "\n## "+humanizeKey(k))
		switch x := val.(type) {
		case []any:
			out = append(out, bulletList(x, 0))
		case map[string]any:
			if block := kvBlock(x, 0); block != "" {
				out = append(out, block)
			}
		default:
			out = append(out, asString(x))
		}
		rendered[k] = true
	}
	for _, k := range richSections {
		if !rendered[k] && truthy(plan[k]) {
			renderSection(k)
		}
	}
	for _, k := range sortedKeys(plan) {
		if !rendered[k] && !skip(k) && truthy(plan[k]) {
			renderSection(k)
		}
	}

	var parts []string
	for _, s := range out {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	content := strings.TrimSpace(strings.Join(parts, "\n\n"))
	if content == "" {
		return "# Lesson Plan\n_No content_"
	}
	return content
}

// RenderAssessment renders an assessment with lettered options, answers
// and a rubric table.
func RenderAssessment(v any) string {
	a, ok := v.(map[string]any)
	if !ok {
		return "### Error\nInvalid assessment payload."
	}
	if truthy(a["error"]) {
		return "### Error\n" + asString(a["error"])
	}

	title := "Assessment"
	if truthy(a["title"]) {
		title = asString(a["title"])
	}
	questions, _ := a["questions"].([]any)

	out := []string{"# " + title}
	var meta []string
	if t := a["type"]; truthy(t) {
		meta = append(meta, "- Type: "+asString(t))
	}
	if d := a["difficulty"]; truthy(d) {
		meta = append(meta, "- Difficulty: "+asString(d))
	}
	if len(questions) > 0 {
		meta = append(meta, fmt.Sprintf("- Questions: %d", len(questions)))
	}
	if len(meta) > 0 {
		out = append(out, strings.Join(meta, "\n"))
	}

	if len(questions) > 0 {
		out = append(out, "\n## Questions")
		for i, item := range questions {
			n := i + 1
			q, ok := item.(map[string]any)
			if !ok {
				out = append(out, fmt.Sprintf("**Q%d. %s**", n, asString(item)), "")
				continue
			}
			text := fmt.Sprintf("Question %d", n)
			if t := firstTruthy(q, "q", "question"); t != nil {
				text = asString(t)
			}
			out = append(out, fmt.Sprintf("**Q%d. %s**", n, text))

			opts, _ := firstTruthy(q, "options", "choices").([]any)
			for oi, opt := range opts {
				label := strconv.Itoa(oi + 1)
				if oi < 26 {
					label = string(rune('A' + oi))
				}
				out = append(out, fmt.Sprintf("- %s. %s", label, asString(opt)))
			}

			switch ans := q["answer"].(type) {
			case nil:
			case string:
				if ans != "" {
					out = append(out, fmt.Sprintf("\n> Answer: **%s**", ans))
				}
			case []any:
				vals := make([]string, len(ans))
				for j, x := range ans {
					vals[j] = asString(x)
				}
				out = append(out, fmt.Sprintf("\n> Answer: **%s**", strings.Join(vals, ", ")))
			default:
				out = append(out, fmt.Sprintf("\n> Answer: **%s**", asString(ans)))
			}
			out = append(out, "")
		}
	}

	if rubric := a["rubric"]; truthy(rubric) {
		out = append(out, "## Rubric")
		rows, ok := rubricRows(rubric)
		if ok {
			out = append(out, "| Criteria | Points |", "|---|---:|")
			for _, r := range rows {
				out = append(out, fmt.Sprintf("| %s | %s |",
					asString(firstTruthy(r, "criteria", "criterion", "desc")),
					asString(firstTruthy(r, "points", "score"))))
			}
		} else {
			out = append(out, asString(rubric))
		}
	}

	content := strings.TrimSpace(strings.Join(out, "\n"))
	if content == "" {
		return "# Assessment\n_No content_"
	}
	return content
}

func rubricRows(v any) ([]map[string]any, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	rows := make([]map[string]any, 0, len(list))
	for _, item := range list {
		r, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		rows = append(rows, r)
	}
	return rows, true
}

func renderWeeks(entries []any) []string {
	var out []string
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			out = append(out, "### Week entry", asString(e))
			continue
		}
		heading := "### Week " + asString(firstTruthy(entry, "week", "Week", "index", "id"))
		if topic := firstTruthy(entry, "topic", "title", "name"); topic != nil {
			heading += ": " + asString(topic)
		}
		out = append(out, strings.TrimRight(heading, " "))
		if block := kvBlock(entry, 0); block != "" {
			out = append(out, block)
		}
	}
	return out
}

func renderEntries(entries []any, prefix string) []string {
	var out []string
	for i, e := range entries {
		n := i + 1
		entry, ok := e.(map[string]any)
		if !ok {
			out = append(out, fmt.Sprintf("### %s %d", prefix, n), asString(e))
			continue
		}
		heading := fmt.Sprintf("### %s %d", prefix, n)
		if title := firstTruthy(entry, "title", "topic", "name"); title != nil {
			heading += ": " + asString(title)
		}
		out = append(out, heading)
		if block := kvBlock(entry, 0); block != "" {
			out = append(out, block)
		}
	}
	return out
}

func looksLikeWeeks(entries []any) bool {
	for _, e := range entries {
		if m, ok := e.(map[string]any); ok {
			if _, ok := m["week"]; ok {
				return true
			}
			if _, ok := m["Week"]; ok {
				return true
			}
		}
	}
	return false
}

// kvBlock renders an object as a nested "- Label: value" list.
func kvBlock(m map[string]any, indent int) string {
	pad := strings.Repeat("  ", indent)
	var lines []string
	for _, k := range sortedKeys(m) {
		label := humanizeKey(k)
		switch v := m[k].(type) {
		case []any:
			lines = append(lines, fmt.Sprintf("%s- %s:", pad, label))
			if len(v) > 0 {
				lines = append(lines, bulletList(v, indent+1))
			}
		case map[string]any:
			lines = append(lines, fmt.Sprintf("%s- %s:", pad, label))
			if nested := kvBlock(v, indent+1); nested != "" {
				lines = append(lines, nested)
			}
		default:
			val := asString(v)
			if strings.Contains(val, "\n") {
				lines = append(lines, fmt.Sprintf("%s- %s:", pad, label))
				for _, ln := range strings.Split(val, "\n") {
					lines = append(lines, pad+"  "+ln)
				}
			} else {
				lines = append(lines, fmt.Sprintf("%s- %s: %s", pad, label, val))
			}
		}
	}

	kept := lines[:0]
	for _, ln := range lines {
		if strings.TrimSpace(ln) != "" {
			kept = append(kept, ln)
		}
	}
	return strings.Join(kept, "\n")
}

func bulletList(items []any, indent int) string {
	pad := strings.Repeat("  ", indent)
	var lines []string
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			pairs := make([]string, 0, len(v))
			for _, k := range sortedKeys(v) {
				pairs = append(pairs, humanizeKey(k)+": "+asString(v[k]))
			}
			lines = append(lines, pad+"- "+strings.Join(pairs, ", "))
		case []any:
			vals := make([]string, len(v))
			for i, x := range v {
				vals[i] = asString(x)
			}
			lines = append(lines, pad+"- "+strings.Join(vals, ", "))
		default:
			val := asString(v)
			first, rest, multi := strings.Cut(val, "\n")
			lines = append(lines, pad+"- "+first)
			if multi {
				for _, ln := range strings.Split(rest, "\n") {
					lines = append(lines, pad+"  "+ln)
				}
			}
		}
	}
	return strings.Join(lines, "\n")
}

// humanizeKey turns snake_case and camelCase keys into a capitalised label.
func humanizeKey(k string) string {
	var b strings.Builder
	for i, r := range k {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	s := strings.TrimSpace(strings.ReplaceAll(b.String(), "_", " "))
	if s == "" {
		return ""
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case map[string]any, []any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, int, int64, float64:
		return true
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
