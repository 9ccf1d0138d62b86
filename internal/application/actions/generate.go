package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aescanero/classflow/pkg/domain"
	"go.uber.org/zap"
)

const lessonPlanPrompt = `Respond ONLY in valid JSON.
You are an expert pedagogy designer. Create a practical, well-structured lesson plan series using the provided source content.
Generate a structured lesson plan JSON including:
- title
- total_duration: %d (weeks)
- class_size: %d (students)
- sections_per_week: %d
- weekly_schedule (list of {week, topic, activities, resources})
- external_resources (books, websites, videos)

Requirements:
1) Provide an overview with goals and success criteria tailored to the class size.
2) Break down the plan by week with clear learning objectives, key topics and vocabulary.
3) For each week, divide into exactly %d section(s). For each section include activities, materials, differentiation and assessment.
4) Add homework or extension ideas.
5) Keep it concise and actionable.`

const assessmentPrompt = `Respond ONLY in valid JSON.
You are an assessment designer. Create an assessment based on the provided material.
The JSON object must include:
- title
- type (MCQ, ShortAnswer, Project)
- difficulty
- questions: [{q, options (if MCQ), answer}]
- rubric: [{criteria, points}] (if a rubric is requested)`

const emailPrompt = `Respond ONLY in valid JSON.
You write clear, friendly emails for a teacher.
Return an object with the fields: to, cc, subject, body.
Use an empty string for unknown recipients. Keep the body plain text.`

// generator backs the LLM actions.
type generator struct {
	deps Dependencies
}

// lessonPlan generates a lesson plan from the text sources in the input.
// Input: sources (object of name -> text), duration_weeks | total_duration
// (default 8), class_size (default 30), sections_per_week (default 1).
func (g *generator) lessonPlan(ctx context.Context, input any) (any, error) {
	in, err := inputMap(input)
	if err != nil {
		return nil, err
	}
	weeks, err := intField(in, 8, "duration_weeks", "total_duration")
	if err != nil {
		return nil, err
	}
	classSize, err := intField(in, 30, "class_size")
	if err != nil {
		return nil, err
	}
	sections, err := intField(in, 1, "sections_per_week")
	if err != nil {
		return nil, err
	}

	material := sourceText(objectField(in, "sources"))
	if strings.TrimSpace(material) == "" {
		return nil, fmt.Errorf("no source material provided")
	}

	plan, err := g.completeJSON(ctx, fmt.Sprintf(lessonPlanPrompt, weeks, classSize, sections, sections), material)
	if err != nil {
		return nil, err
	}

	// The requested shape wins over whatever the model omitted.
	if _, ok := plan["total_duration"]; !ok {
		if _, ok := plan["duration_weeks"]; !ok {
			plan["total_duration"] = weeks
		}
	}
	if _, ok := plan["sections_per_week"]; !ok {
		plan["sections_per_week"] = sections
	}
	if _, ok := plan["class_size"]; !ok {
		plan["class_size"] = classSize
	}

	g.deps.Logger.Info("Lesson plan generated",
		zap.Any("total_duration", plan["total_duration"]),
		zap.Any("sections_per_week", plan["sections_per_week"]))
	return plan, nil
}

// assessment generates an assessment. Input: source (material text) and
// spec {type, difficulty, count, rubric}.
func (g *generator) assessment(ctx context.Context, input any) (any, error) {
	in, err := inputMap(input)
	if err != nil {
		return nil, err
	}
	material := stringField(in, "source", "")
	if strings.TrimSpace(material) == "" {
		return nil, fmt.Errorf("no valid course material found")
	}

	spec := objectField(in, "spec")
	count, err := intField(spec, 5, "count")
	if err != nil {
		return nil, err
	}
	rubric := true
	if b, ok := spec["rubric"].(bool); ok {
		rubric = b
	}

	request := fmt.Sprintf("Create a %s assessment.\nDifficulty: %s.\nNumber of questions: %d.\nInclude rubric: %t.",
		stringField(spec, "type", "MCQ"), stringField(spec, "difficulty", "Medium"), count, rubric)

	return g.completeJSON(ctx, assessmentPrompt, material, request)
}

// emailDraft turns a free-form prompt into {to, cc, subject, body}.
func (g *generator) emailDraft(ctx context.Context, input any) (any, error) {
	in, err := inputMap(input)
	if err != nil {
		return nil, err
	}
	prompt := stringField(in, "prompt", "")
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("email prompt is required")
	}

	messages := []string{prompt}
	if tone := stringField(in, "tone", ""); tone != "" {
		messages = append(messages, "Tone: "+tone)
	}
	draft, err := g.completeJSON(ctx, emailPrompt, messages...)
	if err != nil {
		return nil, err
	}

	// Explicit fields in the input override what the model inferred.
	for _, key := range []string{"to", "cc", "bcc", "subject"} {
		if v := stringField(in, key, ""); v != "" {
			draft[key] = v
		}
	}
	return draft, nil
}

// completeJSON sends one system prompt and user messages and decodes the
// reply as a JSON object.
func (g *generator) completeJSON(ctx context.Context, system string, user ...string) (map[string]any, error) {
	req := &domain.LLMRequest{
		Model:       g.deps.Model,
		System:      system,
		Temperature: g.deps.Temperature,
		MaxTokens:   g.deps.MaxTokens,
	}
	for _, content := range user {
		req.Messages = append(req.Messages, domain.Message{Role: "user", Content: content})
	}

	resp, err := g.deps.LLM.GenerateCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llm completion: %w", err)
	}

	out, err := decodeObject(resp.Content)
	if err != nil {
		g.deps.Logger.Error("Model did not return valid JSON",
			zap.String("model", resp.Model),
			zap.Error(err))
		return nil, err
	}
	return out, nil
}

// decodeObject extracts the JSON object from a model reply, tolerating
// markdown code fences and surrounding prose.
func decodeObject(raw string) (map[string]any, error) {
	s := strings.TrimSpace(raw)
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("model did not return valid JSON: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("model did not return a JSON object")
	}
	return normalizeNumbers(out).(map[string]any), nil
}

// normalizeNumbers turns whole JSON numbers into ints so validators can
// tell integers from fractions.
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int(x)
		}
		return x
	case map[string]any:
		for k, item := range x {
			x[k] = normalizeNumbers(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = normalizeNumbers(item)
		}
		return x
	default:
		return v
	}
}

// sourceText concatenates the string sources in name order.
func sourceText(sources map[string]any) string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		text, ok := sources[name].(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n%s\n", name, text)
	}
	return b.String()
}
