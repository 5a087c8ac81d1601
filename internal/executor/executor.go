package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/gcursor/internal/browser"
)

// Default per-kind bounds
const (
	DefaultClickTimeout = 5 * time.Second
	DefaultFillTimeout  = 30 * time.Second
)

var (
	// ErrElementNotFound is returned when a click or type target never became available.
	ErrElementNotFound = browser.ErrElementNotFound

	// ErrInvalidStep is returned for a step whose payload cannot be executed,
	// such as a wait value that is not a whole number of seconds.
	ErrInvalidStep = errors.New("invalid step")

	// ErrUnknownStepKind is returned under FailUnknown for kinds outside click, type and wait.
	ErrUnknownStepKind = errors.New("unknown step kind")
)

// StepError reports which step aborted a run.
type StepError struct {
	Index int // zero-based position in the sequence
	Step  Step
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Step.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Options configures execution behavior
type Options struct {
	ClickTimeout time.Duration // bound on waiting for a click target to become visible
	FillTimeout  time.Duration // bound on waiting for a type target
	UnknownKind  UnknownKindPolicy
}

type outcome int

const (
	done outcome = iota
	skipped
)

// Result summarizes a completed run.
type Result struct {
	Executed int // steps that ran to completion
	Skipped  int // disabled clicks and unknown kinds under SkipUnknown
}

// Executor runs step sequences against a page it borrows from a session.
type Executor struct {
	opts   Options
	logger *zap.Logger
}

// New creates an executor, filling zero timeouts with the defaults.
func New(opts Options, logger *zap.Logger) *Executor {
	if opts.ClickTimeout <= 0 {
		opts.ClickTimeout = DefaultClickTimeout
	}
	if opts.FillTimeout <= 0 {
		opts.FillTimeout = DefaultFillTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{opts: opts, logger: logger.Named("executor")}
}

// Run executes steps strictly in order. Each step settles before the next
// begins. The first hard error aborts the run and is returned as *StepError;
// effects of earlier steps remain applied.
func (e *Executor) Run(ctx context.Context, page browser.Page, steps []Step) (Result, error) {
	var result Result
	if page == nil {
		return result, errors.New("browser not initialized")
	}

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return result, &StepError{Index: i, Step: step, Err: err}
		}

		log := e.logger.With(zap.Int("step", i+1), zap.Int("of", len(steps)), zap.String("kind", string(step.Kind)))
		log.Debug("Executing step", zap.String("value", step.Value), zap.String("target", step.Target))

		res, err := e.execute(ctx, page, step, log)
		if err != nil {
			log.Debug("Step failed", zap.Error(err))
			return result, &StepError{Index: i, Step: step, Err: err}
		}

		switch res {
		case skipped:
			result.Skipped++
		default:
			result.Executed++
		}
	}

	return result, nil
}

// execute dispatches a single step
func (e *Executor) execute(ctx context.Context, page browser.Page, step Step, log *zap.Logger) (outcome, error) {
	switch step.Kind {
	case KindClick:
		return e.executeClick(ctx, page, step, log)
	case KindType:
		return done, e.executeType(ctx, page, step)
	case KindWait:
		return done, e.executeWait(ctx, page, step)
	default:
		if e.opts.UnknownKind == SkipUnknown {
			log.Warn("Unknown step kind, skipping")
			return skipped, nil
		}
		return done, fmt.Errorf("%w: %q", ErrUnknownStepKind, step.Kind)
	}
}

// executeClick waits for a visible element labelled step.Value and clicks it
// unless the element is disabled. When no handle can be retrieved for the
// disabled check, or the check itself fails, the click goes ahead.
func (e *Executor) executeClick(ctx context.Context, page browser.Page, step Step, log *zap.Logger) (outcome, error) {
	if err := page.WaitForText(ctx, step.Value, e.opts.ClickTimeout); err != nil {
		return done, asNotFound(err, fmt.Sprintf("no visible element with text %q within %s", step.Value, e.opts.ClickTimeout))
	}

	el, err := page.QueryText(ctx, step.Value)
	switch {
	case err != nil:
		log.Debug("Disabled check skipped, element lookup failed", zap.Error(err))
	case el == nil:
		log.Debug("Disabled check skipped, no element handle")
	default:
		disabled, err := el.Disabled(ctx)
		if err != nil {
			log.Debug("Disabled check inconclusive", zap.Error(err))
		} else if disabled {
			log.Info("Button is disabled, skipping", zap.String("label", step.Value))
			return skipped, nil
		}
	}

	if err := page.ClickText(ctx, step.Value, e.opts.ClickTimeout); err != nil {
		return done, fmt.Errorf("click %q: %w", step.Value, err)
	}
	return done, nil
}

// executeType fills the input whose placeholder contains step.Target
func (e *Executor) executeType(ctx context.Context, page browser.Page, step Step) error {
	if err := page.FillPlaceholder(ctx, step.Target, step.Value, e.opts.FillTimeout); err != nil {
		return asNotFound(err, fmt.Sprintf("no input with placeholder containing %q", step.Target))
	}
	return nil
}

// executeWait pauses for step.Value whole seconds
func (e *Executor) executeWait(ctx context.Context, page browser.Page, step Step) error {
	d, err := WaitDuration(step.Value)
	if err != nil {
		return err
	}
	return page.WaitForTimeout(ctx, d)
}

// maxWaitSeconds is the largest wait a time.Duration can hold.
const maxWaitSeconds = math.MaxInt64 / int64(time.Second)

// WaitDuration parses a wait value: a non-negative whole number of seconds.
func WaitDuration(value string) (time.Duration, error) {
	secs, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || secs < 0 || secs > maxWaitSeconds {
		return 0, fmt.Errorf("%w: wait value %q is not a whole number of seconds", ErrInvalidStep, value)
	}
	return time.Duration(secs) * time.Second, nil
}

// asNotFound wraps a lookup failure so it matches ErrElementNotFound.
// Cancellation stays a cancellation.
func asNotFound(err error, msg string) error {
	if errors.Is(err, ErrElementNotFound) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, ErrElementNotFound, err)
}
