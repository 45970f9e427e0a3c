package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobintake/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleSummary() *model.RunSummary {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	s := model.NewRunSummary("run-42", model.SourceMailbox, start, model.RunConfig{PerItemCap: 5, PerRunCap: 50})
	s.FinishedAt = start.Add(3 * time.Second)
	s.ItemsScanned = 4
	s.Processed = 2
	s.CandidatesKept = 3
	s.InsertedOrUpdated = 2
	s.JobKeysSample = []string{"linkedin:1", "lever:abc"}
	s.SourceDomains["linkedin.com"] = &model.DomainStats{Inserted: 1}
	s.SourceDomains["lever.co"] = &model.DomainStats{Updated: 1}
	return s
}

func TestSlackReporter_NilSummary(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	r := NewSlackReporter(srv.URL, srv.Client(), discardLogger())
	if err := r.Report(context.Background(), nil); err != nil {
		t.Errorf("Report(nil) = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestSlackReporter_PayloadFormat(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewSlackReporter(srv.URL, srv.Client(), discardLogger())
	if err := r.Report(context.Background(), sampleSummary()); err != nil {
		t.Fatalf("Report() = %v", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(payload.Blocks))
	}
	if got := payload.Blocks[0].Text.Text; got != "Job intake: mailbox run" {
		t.Errorf("header = %q", got)
	}
	if got := payload.Blocks[1].Fields[1].Text; got != "*Processed:*\n2" {
		t.Errorf("processed field = %q", got)
	}
	domains := payload.Blocks[3].Text.Text
	if strings.Index(domains, "lever.co") > strings.Index(domains, "linkedin.com") {
		t.Errorf("domains not sorted: %q", domains)
	}
	if !strings.Contains(payload.Blocks[4].Elements[0].Text, "`linkedin:1`, `lever:abc`") {
		t.Errorf("context = %q", payload.Blocks[4].Elements[0].Text)
	}
	if payload.Blocks[5].Type != "divider" {
		t.Errorf("last block = %q, want divider", payload.Blocks[5].Type)
	}
}

func TestSlackReporter_NoDomainsOmitsSection(t *testing.T) {
	s := sampleSummary()
	s.SourceDomains = map[string]*model.DomainStats{}
	s.StoppedAtGlobalCap = true

	p := buildPayload(s)
	if len(p.Blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(p.Blocks))
	}
	if got := p.Blocks[0].Text.Text; !strings.HasSuffix(got, "(stopped at cap)") {
		t.Errorf("header = %q", got)
	}
}

func TestSlackReporter_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewSlackReporter(srv.URL, srv.Client(), discardLogger())
	err := r.Report(context.Background(), sampleSummary())
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 500 {
		t.Fatalf("expected HTTPError 500, got %v", err)
	}
}

func TestSlackReporter_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewSlackReporter(srv.URL, srv.Client(), discardLogger())
	if err := r.Report(context.Background(), sampleSummary()); err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls, got %d", c)
	}
}

func TestSendTestMessage(t *testing.T) {
	var got *model.RunSummary
	rec := reporterFunc(func(_ context.Context, s *model.RunSummary) error {
		got = s
		return nil
	})
	if err := SendTestMessage(context.Background(), rec); err != nil {
		t.Fatalf("SendTestMessage() = %v", err)
	}
	if got == nil || got.Processed != 1 || len(got.JobKeysSample) != 1 {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

type reporterFunc func(context.Context, *model.RunSummary) error

func (f reporterFunc) Report(ctx context.Context, s *model.RunSummary) error { return f(ctx, s) }
