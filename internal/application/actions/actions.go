package actions

import (
	"fmt"
	"math"
	"time"

	"github.com/aescanero/classflow/internal/application/orchestrator"
	"github.com/aescanero/classflow/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Action names registered by RegisterDefaults.
const (
	GenerateLessonPlan       = "generate_lesson_plan"
	RenderLessonMarkdown     = "render_lesson_markdown"
	SuggestTimetable         = "suggest_timetable"
	ScheduleCalendar         = "schedule_calendar"
	GenerateAssessment       = "generate_assessment"
	RenderAssessmentMarkdown = "render_assessment_markdown"
	CreateGoogleForm         = "create_google_form"
	DraftEmail               = "draft_email"
	SendEmail                = "send_email"
)

const (
	defaultTemperature = 0.4
	defaultMaxTokens   = 4000
)

// Dependencies are the collaborators the default actions use. LLM and
// Outbox are optional: actions that need a missing collaborator are not
// registered.
type Dependencies struct {
	LLM         ports.LLMClient
	Model       string
	Temperature float64
	MaxTokens   int

	// Outbox receives integration requests (calendar, forms, email) for
	// provider workers to fulfil.
	Outbox ports.EventBus

	Logger *zap.Logger
	Clock  func() time.Time
	NewID  func() string
}

func (d *Dependencies) setDefaults() {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Temperature == 0 {
		d.Temperature = defaultTemperature
	}
	if d.MaxTokens == 0 {
		d.MaxTokens = defaultMaxTokens
	}
}

// RegisterDefaults registers the built-in classroom actions on reg and
// returns the names it registered.
func RegisterDefaults(reg *orchestrator.Registry, deps Dependencies) []string {
	deps.setDefaults()

	var registered []string
	register := func(name string, fn orchestrator.ActionFunc, v orchestrator.OutputValidator, opts ...orchestrator.RegisterOption) {
		opts = append(opts, orchestrator.WithValidator(v))
		reg.Register(name, fn, opts...)
		registered = append(registered, name)
	}

	register(RenderLessonMarkdown, renderLessonAction, ValidateMarkdown)
	register(SuggestTimetable, (&timetable{clock: deps.Clock}).suggest, ValidateTimetable)
	register(RenderAssessmentMarkdown, renderAssessmentAction, ValidateMarkdown)

	if deps.LLM != nil {
		gen := &generator{deps: deps}
		register(GenerateLessonPlan, gen.lessonPlan, ValidateLessonPlan, orchestrator.Retryable())
		register(GenerateAssessment, gen.assessment, ValidateAssessment, orchestrator.Retryable())
		register(DraftEmail, gen.emailDraft, ValidateEmailDraft, orchestrator.Retryable())
	} else {
		deps.Logger.Warn("No LLM client configured, generation actions disabled",
			zap.Strings("actions", []string{GenerateLessonPlan, GenerateAssessment, DraftEmail}))
	}

	if deps.Outbox != nil {
		ob := &outbox{deps: deps}
		register(ScheduleCalendar, ob.scheduleCalendar, ValidateSchedule)
		register(CreateGoogleForm, ob.createForm, ValidateForm)
		register(SendEmail, ob.sendEmail, ValidateEmailSend)
	} else {
		deps.Logger.Warn("No outbox configured, integration actions disabled",
			zap.Strings("actions", []string{ScheduleCalendar, CreateGoogleForm, SendEmail}))
	}

	deps.Logger.Info("Default actions registered", zap.Strings("actions", registered))
	return registered
}

// inputMap returns the task input as an object. A nil input is empty.
func inputMap(input any) (map[string]any, error) {
	switch v := input.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("expected object input, got %T", input)
	}
}

// objectField returns m[key] when it is an object, else an empty map.
func objectField(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

func stringField(m map[string]any, key, def string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return def
}

// intField reads the first truthy numeric field among keys.
func intField(m map[string]any, def int, keys ...string) (int, error) {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || !truthy(v) {
			continue
		}
		n, ok := toInt(v)
		if !ok {
			return 0, fmt.Errorf("%s must be an integer, got %v", key, v)
		}
		return n, nil
	}
	return def, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// isInt reports whether v holds a whole number.
func isInt(v any) bool {
	switch v.(type) {
	case int, int64:
		return true
	}
	return false
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case []string:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

func firstTruthy(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v := m[key]; truthy(v) {
			return v
		}
	}
	return nil
}
