package batch

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Mo-420/Yacht-SEO/internal/domain"
	"github.com/Mo-420/Yacht-SEO/internal/infra"
	"github.com/Mo-420/Yacht-SEO/internal/prompt"
)

// fakeCompleter scripts per-record outcomes, keyed on the yacht name
// embedded in the built prompt.
type fakeCompleter struct {
	mu         sync.Mutex
	delay      time.Duration
	jitter     bool
	outcomes   map[string]domain.Outcome
	dispatched []string
}

func (f *fakeCompleter) Complete(ctx context.Context, p prompt.BuiltPrompt) domain.Outcome {
	if ctx.Err() != nil {
		return domain.Failed(domain.FailureAborted, ctx.Err().Error())
	}
	name := promptName(p)
	f.mu.Lock()
	f.dispatched = append(f.dispatched, name)
	f.mu.Unlock()

	delay := f.delay
	if f.jitter {
		delay = time.Duration(rand.Intn(10)) * time.Millisecond
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return domain.Failed(domain.FailureAborted, ctx.Err().Error())
		case <-time.After(delay):
		}
	}
	if out, ok := f.outcomes[name]; ok {
		return out
	}
	return domain.Success("described "+name, domain.TokenUsage{Prompt: 1, Completion: 1})
}

func (f *fakeCompleter) dispatchedNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dispatched...)
}

func promptName(p prompt.BuiltPrompt) string {
	for _, line := range strings.Split(p.User, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Name: "); ok {
			return rest
		}
	}
	return ""
}

func batchOf(names ...string) []domain.Record {
	records := make([]domain.Record, len(names))
	for i, n := range names {
		records[i] = domain.Record{Fields: []domain.Field{{Name: "name", Value: n}}}
	}
	return records
}

func newTestRunner(f *fakeCompleter, workers int) *Runner {
	logger := infra.NewLogger("test", "batch-test")
	return NewRunner(f, workers, semaphore.NewWeighted(16), logger)
}

func TestRunPreservesInputOrder(t *testing.T) {
	t.Parallel()
	names := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot"}
	fake := &fakeCompleter{jitter: true, outcomes: map[string]domain.Outcome{}}
	runner := newTestRunner(fake, 4)

	outcomes, err := runner.Run(context.Background(), batchOf(names...), domain.PromptConfig{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(outcomes) != len(names) {
		t.Fatalf("len(outcomes) = %d, want %d", len(outcomes), len(names))
	}
	for i, n := range names {
		if outcomes[i].Text != "described "+n {
			t.Fatalf("outcomes[%d].Text = %q, want %q", i, outcomes[i].Text, "described "+n)
		}
	}
}

func TestRunIsolatesRecordFailures(t *testing.T) {
	t.Parallel()
	fake := &fakeCompleter{outcomes: map[string]domain.Outcome{
		"Bravo": domain.Failed(domain.FailureRetryExhausted, "transient after 3 attempts"),
	}}
	runner := newTestRunner(fake, 2)

	outcomes, err := runner.Run(context.Background(), batchOf("Alpha", "Bravo", "Charlie"), domain.PromptConfig{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !outcomes[0].OK() || !outcomes[2].OK() {
		t.Fatalf("neighbouring outcomes affected: %+v", outcomes)
	}
	if outcomes[1].Kind != domain.FailureRetryExhausted {
		t.Fatalf("outcomes[1].Kind = %q", outcomes[1].Kind)
	}
}

func TestRunAbortsOnUnauthorized(t *testing.T) {
	t.Parallel()
	fake := &fakeCompleter{
		delay: 5 * time.Millisecond,
		outcomes: map[string]domain.Outcome{
			"Alpha": domain.Failed(domain.FailureUnauthorized, "invalid api key"),
		},
	}
	runner := newTestRunner(fake, 1)

	outcomes, err := runner.Run(context.Background(), batchOf("Alpha", "Bravo", "Charlie"), domain.PromptConfig{})
	if err == nil {
		t.Fatal("Run should surface the fatal failure")
	}
	if !strings.Contains(err.Error(), "unauthorized") {
		t.Fatalf("err = %v", err)
	}
	if outcomes[0].Kind != domain.FailureUnauthorized {
		t.Fatalf("outcomes[0].Kind = %q", outcomes[0].Kind)
	}
	for i := 1; i < 3; i++ {
		if outcomes[i].Kind != domain.FailureAborted {
			t.Fatalf("outcomes[%d].Kind = %q, want aborted", i, outcomes[i].Kind)
		}
	}
	for _, name := range fake.dispatchedNames() {
		if name != "Alpha" {
			t.Fatalf("record %q was dispatched after the fatal failure", name)
		}
	}
}

func TestRunEmptyBatch(t *testing.T) {
	t.Parallel()
	runner := newTestRunner(&fakeCompleter{}, 4)
	outcomes, err := runner.Run(context.Background(), nil, domain.PromptConfig{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("len(outcomes) = %d, want 0", len(outcomes))
	}
}

func TestRunEveryRecordGetsAnOutcome(t *testing.T) {
	t.Parallel()
	names := make([]string, 40)
	for i := range names {
		names[i] = "Yacht-" + strings.Repeat("x", i%7)
	}
	fake := &fakeCompleter{jitter: true, outcomes: map[string]domain.Outcome{}}
	runner := newTestRunner(fake, 8)

	outcomes, err := runner.Run(context.Background(), batchOf(names...), domain.PromptConfig{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	for i, out := range outcomes {
		if out.OK() && out.Text == "" {
			t.Fatalf("outcomes[%d] succeeded without text", i)
		}
		if !out.OK() && out.Message == "" {
			t.Fatalf("outcomes[%d] failed without a message", i)
		}
	}
}
