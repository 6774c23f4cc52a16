package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/sitecorpus/internal/model"
)

// Step is one stage of a crawl run. Steps share the *model.CrawlRun: the
// crawl step fills in records and outcomes, later steps read them.
//
// Design decision: Steps are an interface, not plain functions, so that a
// step can hold its dependencies (writer, database, metrics) and report a
// stable name in logs and errors.
type Step interface {
	// Do performs the stage. A returned error is run-fatal. Per-page
	// problems belong in the run's outcomes, never here.
	Do(ctx context.Context, run *model.CrawlRun) error

	// Name identifies the step in logs and in StepError.
	Name() string
}

// StepError records which step failed a run.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline runs steps in order against one run.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// When set, a failing step does not stop the remaining ones.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing after a step fails. Execute still
// returns the first failure.
//
// Design decision: Recorders run with this enabled, since a history database
// failure must not keep metrics from being written. Crawl and persist stop on
// the first error because a corpus must never be written from a failed crawl.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New returns an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps against run.
//
// A done context stops the pipeline before the next step starts; the
// context error is returned unless a step already failed. Step failures are
// returned as *StepError wrapping the step's error, so errors.Is and
// errors.As see through to the cause. Execute never sets the run's status:
// the caller decides what a failure means for the run.
func (p *Pipeline) Execute(ctx context.Context, run *model.CrawlRun) error {
	var firstErr error

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline stopped",
				"run", run.ID,
				"site", run.Site,
				"before", step.Name(),
				"reason", err,
			)
			if firstErr != nil {
				return firstErr
			}
			return err
		}

		err := p.runStep(ctx, step, run)
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
		if !p.continueOnError {
			break
		}
	}

	return firstErr
}

func (p *Pipeline) runStep(ctx context.Context, step Step, run *model.CrawlRun) error {
	start := time.Now()
	err := step.Do(ctx, run)
	elapsed := time.Since(start).Round(time.Millisecond)

	if err != nil {
		p.logger.Error("step failed",
			"run", run.ID,
			"site", run.Site,
			"step", step.Name(),
			"elapsed", elapsed,
			"error", err,
		)
		return &StepError{Step: step.Name(), Err: err}
	}

	p.logger.Debug("step done",
		"run", run.ID,
		"site", run.Site,
		"step", step.Name(),
		"elapsed", elapsed,
	)
	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
