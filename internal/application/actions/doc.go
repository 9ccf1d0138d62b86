// Package actions provides the built-in classroom actions: lesson plan and
// assessment generation through an LLM, markdown rendering, timetable
// suggestion, and calendar, form and email requests published to an
// outbox event bus.
//
// RegisterDefaults binds them to an orchestrator.Registry together with
// their output validators:
//
//	reg := orchestrator.NewRegistry()
//	actions.RegisterDefaults(reg, actions.Dependencies{
//	    LLM:    llmClient,
//	    Model:  "claude-sonnet-4-5",
//	    Outbox: eventBus,
//	    Logger: logger,
//	})
package actions
