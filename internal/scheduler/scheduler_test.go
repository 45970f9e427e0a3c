package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobintake/internal/model"
)

// --- Fakes ---

type countingPoller struct {
	source string
	err    error
	calls  atomic.Int32
	order  *orderRecorder
}

func (p *countingPoller) Source() string { return p.source }

func (p *countingPoller) Poll(_ context.Context) (*model.RunSummary, error) {
	p.calls.Add(1)
	if p.order != nil {
		p.order.add(p.source)
	}
	if p.err != nil {
		return nil, p.err
	}
	return model.NewRunSummary("run-"+p.source, p.source, time.Now(), model.RunConfig{}), nil
}

type orderRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *orderRecorder) add(s string) {
	r.mu.Lock()
	r.order = append(r.order, s)
	r.mu.Unlock()
}

type recordingReporter struct {
	mu   sync.Mutex
	runs []string
	err  error
}

func (r *recordingReporter) Report(_ context.Context, s *model.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, s.RunID)
	return r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Tests ---

func TestRunOnce_SequentialInOrder(t *testing.T) {
	rec := &orderRecorder{}
	mail := &countingPoller{source: model.SourceMailbox, order: rec}
	feeds := &countingPoller{source: model.SourceFeeds, order: rec}
	reporter := &recordingReporter{}

	s := NewScheduler([]Poller{mail, feeds}, reporter, time.Hour, discardLogger())
	got := s.RunOnce(context.Background())

	if len(got) != 2 {
		t.Fatalf("summaries = %d, want 2", len(got))
	}
	if len(rec.order) != 2 || rec.order[0] != model.SourceMailbox || rec.order[1] != model.SourceFeeds {
		t.Errorf("poll order = %v", rec.order)
	}
	if len(reporter.runs) != 2 || reporter.runs[0] != "run-mailbox" {
		t.Errorf("reported = %v", reporter.runs)
	}
}

func TestRunOnce_FailureDoesNotStopOthers(t *testing.T) {
	failing := &countingPoller{source: model.SourceMailbox, err: errors.New("vault: not connected")}
	healthy := &countingPoller{source: model.SourceFeeds}
	reporter := &recordingReporter{}

	s := NewScheduler([]Poller{failing, healthy}, reporter, time.Hour, discardLogger())
	got := s.RunOnce(context.Background())

	if len(got) != 1 || got[0].Source != model.SourceFeeds {
		t.Fatalf("summaries = %+v", got)
	}
	if healthy.calls.Load() != 1 {
		t.Errorf("healthy poller calls = %d", healthy.calls.Load())
	}
	if len(reporter.runs) != 1 {
		t.Errorf("reported = %v, failed runs must not be reported", reporter.runs)
	}
}

func TestRunOnce_ReporterErrorIsLogged(t *testing.T) {
	p := &countingPoller{source: model.SourceFeeds}
	reporter := &recordingReporter{err: errors.New("slack down")}

	s := NewScheduler([]Poller{p}, reporter, time.Hour, discardLogger())
	if got := s.RunOnce(context.Background()); len(got) != 1 {
		t.Fatalf("summaries = %d, want 1", len(got))
	}
}

func TestRunOnce_NilReporter(t *testing.T) {
	p := &countingPoller{source: model.SourceFeeds}
	s := NewScheduler([]Poller{p}, nil, time.Hour, discardLogger())
	if got := s.RunOnce(context.Background()); len(got) != 1 {
		t.Fatalf("summaries = %d, want 1", len(got))
	}
}

func TestRunOnce_CancelledContext(t *testing.T) {
	p := &countingPoller{source: model.SourceFeeds}
	s := NewScheduler([]Poller{p}, nil, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.RunOnce(ctx)

	if p.calls.Load() != 0 {
		t.Errorf("poller ran after cancel")
	}
}

func TestRun_CancelReturnsPromptly(t *testing.T) {
	p := &countingPoller{source: model.SourceFeeds}
	s := NewScheduler([]Poller{p}, nil, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not return within 2s after cancel")
	}
}

func TestRun_PollsEachInterval(t *testing.T) {
	p := &countingPoller{source: model.SourceFeeds}
	s := NewScheduler([]Poller{p}, nil, 100*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	// Immediate run plus at least one tick.
	time.Sleep(250 * time.Millisecond)
	cancel()
	<-done

	if got := p.calls.Load(); got < 2 {
		t.Errorf("poll calls = %d, want >= 2", got)
	}
}
