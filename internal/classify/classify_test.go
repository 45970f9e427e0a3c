package classify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amishk599/jobintake/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		name   string
		f      model.MessageFeatures
		reject bool
	}{
		{"job alert", model.MessageFeatures{Subject: "5 new jobs for Backend Engineer", From: "jobalerts-noreply@linkedin.com", URLCount: 12, JobURLCount: 5, Text: "unsubscribe"}, false},
		{"sale with no jobs", model.MessageFeatures{Subject: "50% off Premium this week", From: "LinkedIn <linkedin@e.linkedin.com>", URLCount: 4}, true},
		{"newsletter sender", model.MessageFeatures{Subject: "This week in tech", From: "newsletter@techweekly.test", URLCount: 9}, true},
		{"promo subject and sender despite job links", model.MessageFeatures{Subject: "Black Friday deals", From: "deals@shop.test", JobURLCount: 1}, true},
		{"bulk mail", model.MessageFeatures{Subject: "Your weekly update", From: "team@app.test", URLCount: 3, Text: "Click here. Unsubscribe at any time."}, true},
		{"recruiter note", model.MessageFeatures{Subject: "Quick question", From: "jane@acme.test", Text: "Would you be open to a job chat? unsubscribe"}, false},
		{"plain personal mail", model.MessageFeatures{Subject: "Lunch?", From: "friend@x.test"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewHeuristic().ClassifyMessage(context.Background(), tt.f)
			if err != nil {
				t.Fatalf("ClassifyMessage: %v", err)
			}
			if v.Reject != tt.reject {
				t.Errorf("Reject = %v (%s), want %v", v.Reject, v.Reason, tt.reject)
			}
			if v.Reject && v.By != model.VerdictByHeuristic {
				t.Errorf("By = %q, want heuristic", v.By)
			}
		})
	}
}

type stubProvider struct {
	response string
	err      error
	prompt   string
}

func (s *stubProvider) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func TestLLM_ClassifyMessage(t *testing.T) {
	p := &stubProvider{response: `{"reject":true,"reason":"course advertisement"}`}
	l := NewLLM(p, MessageCheckTemplate)

	v, err := l.ClassifyMessage(context.Background(), model.MessageFeatures{Subject: "Learn Go fast", From: "academy@x.test", Text: strings.Repeat("a", 5000)})
	if err != nil {
		t.Fatalf("ClassifyMessage: %v", err)
	}
	if !v.Reject || v.By != model.VerdictByAI || v.Reason != "course advertisement" {
		t.Errorf("verdict = %+v", v)
	}
	if !strings.Contains(p.prompt, "Subject: Learn Go fast") {
		t.Errorf("prompt missing subject:\n%s", p.prompt)
	}
	if strings.Count(p.prompt, "a") > maxPromptBody+200 {
		t.Error("prompt body should be truncated")
	}
}

func TestLLM_BadJSON(t *testing.T) {
	l := NewLLM(&stubProvider{response: "not json"}, MessageCheckTemplate)
	if _, err := l.ClassifyMessage(context.Background(), model.MessageFeatures{}); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

type fixedClassifier struct {
	v   model.Verdict
	err error
	n   int
}

func (f *fixedClassifier) ClassifyMessage(context.Context, model.MessageFeatures) (model.Verdict, error) {
	f.n++
	return f.v, f.err
}

func TestChain(t *testing.T) {
	heur := &fixedClassifier{v: model.Verdict{Reject: true, By: model.VerdictByHeuristic}}
	ai := &fixedClassifier{v: model.Verdict{Reject: true, By: model.VerdictByAI}}

	v, _ := NewChain(discardLogger(), heur, ai).ClassifyMessage(context.Background(), model.MessageFeatures{})
	if v.By != model.VerdictByHeuristic || ai.n != 0 {
		t.Errorf("verdict = %+v, ai calls = %d; heuristic should short-circuit", v, ai.n)
	}

	heur.v = model.Verdict{By: model.VerdictByNone}
	v, _ = NewChain(discardLogger(), heur, ai).ClassifyMessage(context.Background(), model.MessageFeatures{})
	if v.By != model.VerdictByAI || !v.Reject {
		t.Errorf("verdict = %+v, want ai rejection", v)
	}
}

func TestChain_ErrorMeansNoRejection(t *testing.T) {
	failing := &fixedClassifier{err: errors.New("llm down")}
	c := NewChain(discardLogger(), nil, failing)
	if c.Len() != 1 {
		t.Errorf("Len = %d, want nil entries skipped", c.Len())
	}

	v, err := c.ClassifyMessage(context.Background(), model.MessageFeatures{})
	if err != nil || v.Reject {
		t.Errorf("verdict = %+v, %v; want no rejection", v, err)
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ResponseFormat.JSONSchema.Name != verdictSchemaName || req.Model != "test-model" {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"reject\":false,\"reason\":\"job alert\"}"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "test-key", "test-model", srv.Client())
	got, err := p.Complete(context.Background(), "classify")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"reject":false,"reason":"job alert"}` {
		t.Errorf("got %q", got)
	}
}

func TestOpenAIProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "k", "m", srv.Client())
	_, err := p.Complete(context.Background(), "classify")
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("error = %v, want HTTPError 429", err)
	}
}
