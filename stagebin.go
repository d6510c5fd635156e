// Package stagebin holds the building blocks shared by the release packaging
// pipeline and the command line tool: a fail-fast [Pipeline] that runs named
// steps with consistent, timed output, a small command runner and the
// coloured log helpers used everywhere else.
package stagebin

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
)

// Pipeline runs a sequence of steps, stopping at the first failure.
// It can be customized with pre- and post- execution hooks; the post hook
// runs whether the steps succeeded or not, which makes it the place for
// cleanup that must always happen.
type Pipeline struct {
	PreExecHook  Task
	PostExecHook Task

	quiet bool
}

// New constructs a pipeline.
func New(opts ...Option) *Pipeline {
	p := Pipeline{
		PreExecHook:  func(_ context.Context) error { return nil },
		PostExecHook: func(_ context.Context) error { return nil },
	}

	for _, opt := range opts {
		opt(&p)
	}

	return &p
}

// Execute runs the steps in order.
// Execution stops at the first step returning an error; that error is returned
// wrapped with the step name. The post exec hook runs regardless of outcome and
// its error is only returned when every step succeeded.
func (p *Pipeline) Execute(ctx context.Context, steps ...Step) (err error) {
	start := time.Now()

	if err := p.PreExecHook(ctx); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	defer func() {
		if hookerr := p.PostExecHook(ctx); hookerr != nil && err == nil {
			err = fmt.Errorf("failed to run post exec hook: %w", hookerr)
		}

		if p.quiet {
			return
		}

		elapsed := time.Since(start).Round(time.Millisecond)
		color.New(color.FgHiBlack).Printf("------------------------\n\n")

		if err != nil {
			color.Red(" ✘ failed after %s", elapsed)
			color.Red("   • %s\n\n", err.Error())
			return
		}
		color.Green(" ✔ all good after %s\n\n", elapsed)
	}()

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}

		if err := p.run(ctx, step); err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
	}

	return nil
}

func (p *Pipeline) run(ctx context.Context, step Step) (err error) {
	if p.quiet {
		return step.Run(ctx)
	}

	LogStep(step.Name)

	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.Red(" ✘ %s\n\n", elapsed)
			return
		}
		color.Green(" ✔ %s\n\n", elapsed)
	}()

	return step.Run(ctx)
}

// Task defines the basic function that the pipeline executes.
type Task func(ctx context.Context) error

// Step is a named [Task].
type Step struct {
	Name string
	Run  Task
}

// NewStep pairs a name with a task.
func NewStep(name string, task Task) Step {
	return Step{Name: name, Run: task}
}

type Option func(p *Pipeline)

// WithPreExecFunc allows specifying a task that will be run before the steps.
func WithPreExecFunc(hook Task) Option {
	return func(p *Pipeline) {
		p.PreExecHook = hook
	}
}

// WithPostExecFunc allows specifying a task that will be run after the steps,
// even when one of them failed.
func WithPostExecFunc(hook Task) Option {
	return func(p *Pipeline) {
		p.PostExecHook = hook
	}
}

// WithoutOutput disables step and summary output.
func WithoutOutput() Option {
	return func(p *Pipeline) {
		p.quiet = true
	}
}
