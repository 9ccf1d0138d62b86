package planner

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/aescanero/classflow/pkg/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActionSet reports whether an action is registered.
type ActionSet interface {
	Has(name string) bool
}

// Option configures a Planner.
type Option func(*Planner)

// WithTemplates adds templates to the library. A template with the name of
// an existing one replaces it in place; new templates are appended.
func WithTemplates(templates ...Template) Option {
	return func(p *Planner) {
		for _, t := range templates {
			p.setTemplate(t)
		}
	}
}

// WithActionSet makes the planner warn about actions that are not registered.
func WithActionSet(actions ActionSet) Option {
	return func(p *Planner) {
		p.actions = actions
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// WithClock overrides the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		p.now = now
	}
}

// WithIDGenerator overrides job id generation.
func WithIDGenerator(newID func() string) Option {
	return func(p *Planner) {
		p.newID = newID
	}
}

// Planner builds jobs from templates. It never executes anything.
type Planner struct {
	templates []Template
	actions   ActionSet
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// New creates a planner with the builtin templates plus any added by opts.
func New(opts ...Option) (*Planner, error) {
	p := &Planner{
		templates: BuiltinTemplates(),
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, t := range p.templates {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("invalid template: %w", err)
		}
	}

	return p, nil
}

// Templates returns the template library in matching order.
func (p *Planner) Templates() []Template {
	return append([]Template(nil), p.templates...)
}

func (p *Planner) setTemplate(t Template) {
	for i := range p.templates {
		if p.templates[i].Name == t.Name {
			p.templates[i] = t
			return
		}
	}
	p.templates = append(p.templates, t)
}

// Match returns the templates selected for request.
func (p *Planner) Match(request string) []Template {
	req := strings.ToLower(request)

	var matched []Template
	for _, t := range p.templates {
		if t.Default {
			continue
		}
		for _, kw := range t.Keywords {
			if strings.Contains(req, strings.ToLower(kw)) {
				matched = append(matched, t)
				break
			}
		}
	}

	if len(matched) == 0 {
		for _, t := range p.templates {
			if t.Default {
				matched = append(matched, t)
			}
		}
	}

	return matched
}

// Plan creates a pending job for request. Option values are copied, never
// shared with the job.
func (p *Planner) Plan(request string, options map[string]any) (*domain.Job, error) {
	flows := p.Match(request)
	if len(flows) == 0 {
		return nil, fmt.Errorf("no template matches request and no default template is configured")
	}

	job := &domain.Job{
		ID:          p.newID(),
		Request:     request,
		Tasks:       []*domain.Task{},
		Checkpoints: []string{},
		State:       domain.JobState{Status: domain.JobStatusPending},
		Logs:        []domain.LogEntry{},
	}

	names := make([]string, 0, len(flows))
	seq := 0
	for _, flow := range flows {
		ids := make(map[string]string, len(flow.Steps))
		for _, step := range flow.Steps {
			seq++
			id := "t" + strconv.Itoa(seq)
			ids[step.Key] = id

			input, err := p.stepInput(step, options, ids)
			if err != nil {
				return nil, fmt.Errorf("flow %s, step %s: %w", flow.Name, step.Key, err)
			}

			deps := make([]string, len(step.DependsOn))
			for i, dep := range step.DependsOn {
				deps[i] = ids[dep]
			}

			job.Tasks = append(job.Tasks, &domain.Task{
				ID:        id,
				Action:    step.Action,
				Input:     input,
				DependsOn: deps,
				Status:    domain.TaskStatusPending,
			})
			if step.Checkpoint {
				job.Checkpoints = append(job.Checkpoints, id)
			}

			if p.actions != nil && !p.actions.Has(step.Action) {
				p.logger.Warn("planned action is not registered",
					zap.String("job_id", job.ID),
					zap.String("task_id", id),
					zap.String("action", step.Action))
			}
		}
		names = append(names, flow.Name)
	}

	job.Metadata = map[string]any{
		"created_at": p.now().UTC().Format(time.RFC3339),
		"flows":      names,
	}

	p.logger.Debug("job planned",
		zap.String("job_id", job.ID),
		zap.Strings("flows", names),
		zap.Int("tasks", len(job.Tasks)))

	return job, nil
}

// stepInput builds a step's input: the InputOption map, then the static
// input, then the MergeOption map, later layers overriding earlier ones.
func (p *Planner) stepInput(step StepTemplate, options map[string]any, ids map[string]string) (map[string]any, error) {
	input := map[string]any{}

	if step.InputOption != "" {
		base, err := optionMap(options, step.InputOption)
		if err != nil {
			return nil, err
		}
		input = base
	}

	if len(step.Input) > 0 {
		static := rewriteRefs(domain.CloneValue(step.Input), ids).(map[string]any)
		if err := mergo.Merge(&input, static, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge input: %w", err)
		}
	}

	if step.MergeOption != "" {
		extra, err := optionMap(options, step.MergeOption)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(&input, extra, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge option %s: %w", step.MergeOption, err)
		}
	}

	return input, nil
}

// optionMap returns a copy of options[key], which must be a map if present.
func optionMap(options map[string]any, key string) (map[string]any, error) {
	v, ok := options[key]
	if !ok || v == nil {
		return map[string]any{}, nil
	}
	m, ok := domain.CloneValue(v).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("option %s must be an object, got %T", key, v)
	}
	return m, nil
}

// rewriteRefs replaces step keys in placeholders with task ids.
func rewriteRefs(v any, ids map[string]string) any {
	switch val := v.(type) {
	case string:
		if ref, ok := domain.ParseReference(val); ok {
			if id, ok := ids[ref.TaskID]; ok {
				ref.TaskID = id
				return ref.String()
			}
		}
		return val
	case map[string]any:
		for k, item := range val {
			val[k] = rewriteRefs(item, ids)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = rewriteRefs(item, ids)
		}
		return val
	default:
		return v
	}
}
