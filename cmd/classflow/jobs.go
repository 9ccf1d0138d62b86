package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aescanero/classflow/internal/application/orchestrator"
	"github.com/aescanero/classflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// withApp wires the backends for one command and closes them afterwards.
// Metrics go to a private registry since nothing scrapes a CLI run.
func withApp(ctx context.Context, opts *globalOptions, fn func(a *app) error) error {
	a, err := newApp(ctx, opts.cfg, opts.logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

func newPlanCmd(opts *globalOptions) *cobra.Command {
	var (
		optionsFile string
		optionsJSON string
		run         bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "plan [request]",
		Short: "Plan a job from a natural-language request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := readOptions(optionsFile, optionsJSON)
			if err != nil {
				return err
			}
			request := strings.Join(args, " ")

			return withApp(cmd.Context(), opts, func(a *app) error {
				job, err := a.manager.Plan(cmd.Context(), request, options)
				if err != nil {
					return err
				}

				var res *orchestrator.RunResult
				if run {
					ctx, cancel := a.runContext(cmd.Context())
					defer cancel()
					if res, err = a.manager.Run(ctx, job); err != nil {
						return err
					}
					job = res.Job
				}

				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, job)
				}
				printJob(out, job)
				if res != nil {
					printOutcome(out, res)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&optionsFile, "options-file", "", "JSON file with planner options (lesson_input, timetable_opts, ...)")
	cmd.Flags().StringVar(&optionsJSON, "options", "", "Planner options as inline JSON")
	cmd.Flags().BoolVar(&run, "run", false, "Run the job up to its first checkpoint")
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON output")
	return cmd
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [job-id]",
		Short: "Resume a stored job until its next checkpoint or the end",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				ctx, cancel := a.runContext(cmd.Context())
				defer cancel()

				res, err := a.manager.Resume(ctx, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				printJob(out, res.Job)
				printOutcome(out, res)
				return nil
			})
		},
	}
}

func newShowCmd(opts *globalOptions) *cobra.Command {
	var (
		result string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "show [job-id]",
		Short: "Show a stored job, its summary, or one task result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				job, err := a.manager.GetJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if result != "" {
					task, ok := job.Task(result)
					if !ok {
						return fmt.Errorf("job %s has no task %s", job.ID, result)
					}
					// Rendered markdown prints as is.
					if s, ok := task.Result.(string); ok {
						_, err := fmt.Fprintln(out, s)
						return err
					}
					return writeJSON(out, task.Result)
				}

				if asJSON {
					return writeJSON(out, job)
				}
				printJob(out, job)
				printSummary(out, a.manager.Reflect(job))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&result, "result", "", "Print the result of this task id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON output")
	return cmd
}

func newJobsCmd(opts *globalOptions) *cobra.Command {
	var (
		status string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List stored jobs (optionally by status)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				jobs, err := a.manager.ListJobsByStatus(cmd.Context(), domain.JobStatus(status))
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, jobs)
				}
				for _, job := range jobs {
					fmt.Fprintf(out, "%s  %-9s  tasks=%d  wait_for=%q  request=%q\n",
						job.ID, job.State.Status, len(job.Tasks), job.State.WaitFor, job.Request)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending|running|paused|interrupted|succeeded|failed)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON output")
	return cmd
}

func newActionsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List the registered actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				out := cmd.OutOrStdout()
				for _, name := range a.registry.Names() {
					retry := ""
					if a.registry.IsRetryable(name) {
						retry = "  (retryable)"
					}
					fmt.Fprintf(out, "%s%s\n", name, retry)
				}
				return nil
			})
		},
	}
}

// readOptions decodes planner options from a file or inline JSON.
func readOptions(file, inline string) (map[string]any, error) {
	var data []byte
	switch {
	case file != "" && inline != "":
		return nil, fmt.Errorf("--options and --options-file are mutually exclusive")
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read options file: %w", err)
		}
		data = b
	case inline != "":
		data = []byte(inline)
	default:
		return nil, nil
	}

	var options map[string]any
	if err := json.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("options must be a JSON object: %w", err)
	}
	return options, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJob(w io.Writer, job *domain.Job) {
	fmt.Fprintf(w, "job %s  status=%s\n", job.ID, job.State.Status)
	fmt.Fprintf(w, "request: %s\n", job.Request)
	for _, t := range job.Tasks {
		line := fmt.Sprintf("  %-4s %-28s %-9s", t.ID, t.Action, t.Status)
		if len(t.DependsOn) > 0 {
			line += " after=" + strings.Join(t.DependsOn, ",")
		}
		if t.Error != nil {
			line += fmt.Sprintf(" error=%q", t.Error.Message)
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func printOutcome(w io.Writer, res *orchestrator.RunResult) {
	switch res.Outcome {
	case orchestrator.OutcomePaused:
		fmt.Fprintf(w, "outcome: paused after %s (run again to continue)\n", res.WaitFor)
		return
	case orchestrator.OutcomeInterrupted:
		fmt.Fprintln(w, "outcome: interrupted (run again to continue)")
		return
	}
	fmt.Fprintf(w, "outcome: %s\n", res.Outcome)
}

func printSummary(w io.Writer, s domain.Summary) {
	fmt.Fprintf(w, "succeeded: %s\n", strings.Join(s.Succeeded, ", "))
	fmt.Fprintf(w, "failed:    %s\n", strings.Join(s.Failed, ", "))
	fmt.Fprintf(w, "blocked:   %s\n", strings.Join(s.Blocked, ", "))
	if s.PausedAfter != "" {
		fmt.Fprintf(w, "paused after: %s\n", s.PausedAfter)
	}
}
