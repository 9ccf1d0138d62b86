package actions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lessonReply = "Here is the plan:\n```json\n" + `{
  "title": "Fractions",
  "total_duration": 2,
  "sections_per_week": 1,
  "weekly_schedule": [
    {"week": 1, "topic": "Halves"},
    {"week": 2, "topic": "Quarters"}
  ]
}` + "\n```"

func TestGenerator_LessonPlan(t *testing.T) {
	llm := &fakeLLM{replies: []string{lessonReply}}
	gen := &generator{deps: testDeps(llm, nil)}
	gen.deps.setDefaults()

	out, err := gen.lessonPlan(context.Background(), map[string]any{
		"sources":        map[string]any{"course_outline": "Fractions unit outline"},
		"duration_weeks": 2,
		"class_size":     24.0,
	})
	require.NoError(t, err)

	plan := out.(map[string]any)
	assert.Equal(t, 2, plan["total_duration"])
	assert.Equal(t, 24, plan["class_size"])
	assert.True(t, ValidateLessonPlan(plan))

	require.Len(t, llm.requests, 1)
	req := llm.requests[0]
	assert.Equal(t, "test-model", req.Model)
	assert.Contains(t, req.System, "total_duration: 2 (weeks)")
	assert.Contains(t, req.System, "class_size: 24 (students)")
	assert.Contains(t, req.Messages[0].Content, "Fractions unit outline")
}

func TestGenerator_LessonPlanFillsMissingShape(t *testing.T) {
	llm := &fakeLLM{replies: []string{`{"weekly_schedule": [{"week": 1}]}`}}
	gen := &generator{deps: testDeps(llm, nil)}
	gen.deps.setDefaults()

	out, err := gen.lessonPlan(context.Background(), map[string]any{
		"sources": map[string]any{"notes": "text"},
	})
	require.NoError(t, err)

	plan := out.(map[string]any)
	assert.Equal(t, 8, plan["total_duration"])
	assert.Equal(t, 1, plan["sections_per_week"])
	assert.Equal(t, 30, plan["class_size"])
}

func TestGenerator_LessonPlanErrors(t *testing.T) {
	gen := &generator{deps: testDeps(&fakeLLM{replies: []string{"not json"}}, nil)}
	gen.deps.setDefaults()

	_, err := gen.lessonPlan(context.Background(), map[string]any{})
	assert.ErrorContains(t, err, "no source material")

	_, err = gen.lessonPlan(context.Background(), map[string]any{
		"sources": map[string]any{"notes": "text"},
	})
	assert.ErrorContains(t, err, "valid JSON")

	boom := errors.New("rate limited")
	gen = &generator{deps: testDeps(&fakeLLM{err: boom}, nil)}
	gen.deps.setDefaults()
	_, err = gen.lessonPlan(context.Background(), map[string]any{
		"sources": map[string]any{"notes": "text"},
	})
	assert.ErrorIs(t, err, boom)
}

func TestGenerator_Assessment(t *testing.T) {
	llm := &fakeLLM{replies: []string{`{"title": "Quiz", "questions": [{"q": "1/2 + 1/2?", "answer": "1"}]}`}}
	gen := &generator{deps: testDeps(llm, nil)}
	gen.deps.setDefaults()

	out, err := gen.assessment(context.Background(), map[string]any{
		"source": "Fractions",
		"spec":   map[string]any{"type": "ShortAnswer", "count": 3, "rubric": false},
	})
	require.NoError(t, err)
	assert.True(t, ValidateAssessment(out))

	require.Len(t, llm.requests[0].Messages, 2)
	request := llm.requests[0].Messages[1].Content
	assert.Contains(t, request, "Create a ShortAnswer assessment.")
	assert.Contains(t, request, "Difficulty: Medium.")
	assert.Contains(t, request, "Number of questions: 3.")
	assert.Contains(t, request, "Include rubric: false.")
}

func TestGenerator_EmailDraft(t *testing.T) {
	llm := &fakeLLM{replies: []string{`{"to": "guess@example.com", "subject": "Reminder", "body": "Hi"}`}}
	gen := &generator{deps: testDeps(llm, nil)}
	gen.deps.setDefaults()

	out, err := gen.emailDraft(context.Background(), map[string]any{
		"prompt": "remind parents about the trip",
		"to":     "parents@example.com",
	})
	require.NoError(t, err)

	draft := out.(map[string]any)
	assert.Equal(t, "parents@example.com", draft["to"])
	assert.Equal(t, "Reminder", draft["subject"])
	assert.True(t, ValidateEmailDraft(draft))

	_, err = gen.emailDraft(context.Background(), map[string]any{})
	assert.ErrorContains(t, err, "prompt is required")
}

func TestDecodeObject(t *testing.T) {
	out, err := decodeObject("```json\n{\"a\": 1, \"b\": [2.5, 3], \"c\": {\"d\": 4}}\n```")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": 1,
		"b": []any{2.5, 3},
		"c": map[string]any{"d": 4},
	}, out)

	_, err = decodeObject("[1, 2]")
	assert.Error(t, err)

	_, err = decodeObject("null")
	assert.Error(t, err)
}
