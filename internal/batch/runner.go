// Package batch drives prompt construction and completion calls over every
// record in a batch with bounded parallelism and per-record failure
// isolation.
package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Mo-420/Yacht-SEO/internal/domain"
	"github.com/Mo-420/Yacht-SEO/internal/infra"
	"github.com/Mo-420/Yacht-SEO/internal/prompt"
)

// Completer is the completion-service dependency. *groq.Client satisfies
// it; tests substitute deterministic fakes.
type Completer interface {
	Complete(ctx context.Context, p prompt.BuiltPrompt) domain.Outcome
}

// Runner executes batches. The gate is process-wide: every worker across
// all concurrently running jobs acquires it before calling out, capping
// total in-flight completion requests.
type Runner struct {
	completer Completer
	workers   int
	gate      *semaphore.Weighted
	logger    infra.Logger
}

// NewRunner builds a runner with at most workers records in flight per
// batch. A nil gate disables the process-wide cap.
func NewRunner(completer Completer, workers int, gate *semaphore.Weighted, logger infra.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{completer: completer, workers: workers, gate: gate, logger: logger}
}

// Run generates one outcome per record, in input order. A record-level
// failure never stops the rest of the batch; the only aborting condition
// is an unauthorized classification, which cancels everything still
// pending, marks never-started records aborted, and surfaces as
// domain.ErrUnauthorized so the caller can fail the whole job.
func (r *Runner) Run(ctx context.Context, records []domain.Record, cfg domain.PromptConfig) ([]domain.Outcome, error) {
	outcomes := make([]domain.Outcome, len(records))
	if len(records) == 0 {
		return outcomes, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for i := range records {
		// After a fatal failure the submission loop stops dispatching;
		// everything not yet started gets a uniform aborted outcome.
		if runCtx.Err() != nil {
			outcomes[i] = domain.Failed(domain.FailureAborted, "batch aborted")
			continue
		}
		i := i
		g.Go(func() error {
			if r.gate != nil {
				if err := r.gate.Acquire(runCtx, 1); err != nil {
					outcomes[i] = domain.Failed(domain.FailureAborted, "batch aborted")
					return nil
				}
				defer r.gate.Release(1)
			}

			built := prompt.Build(records[i], cfg)
			out := r.completer.Complete(runCtx, built)
			outcomes[i] = out

			if out.Kind == domain.FailureUnauthorized {
				cancel()
				return fmt.Errorf("record %d: %w: %s", i, domain.ErrUnauthorized, out.Message)
			}
			if !out.OK() {
				r.logger.Warn().Int("record", i).Str("kind", string(out.Kind)).Str("error", out.Message).Msg("batch: record failed")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}
