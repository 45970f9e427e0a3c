package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/amishk599/jobintake/internal/model"
)

var _ model.Reporter = (*SlackReporter)(nil)

// SlackReporter posts run summaries to a Slack channel via Incoming Webhooks.
type SlackReporter struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackReporter returns a reporter that posts each summary to Slack.
func NewSlackReporter(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackReporter {
	return &SlackReporter{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Report sends s as a single Block Kit message. A 429 is retried once after
// the Retry-After delay.
func (r *SlackReporter) Report(ctx context.Context, s *model.RunSummary) error {
	if s == nil {
		return nil
	}

	body, err := json.Marshal(buildPayload(s))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := r.post(ctx, body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		r.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryAfter):
		}
		if status, _, err = r.post(ctx, body); err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
	}

	if status != http.StatusOK {
		return &model.HTTPError{StatusCode: status, Err: fmt.Errorf("slack webhook rejected summary")}
	}
	r.logger.Info("slack summary sent", "run_id", s.RunID, "source", s.Source)
	return nil
}

func (r *SlackReporter) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, model.ParseRetryAfter(resp.Header.Get("Retry-After")), nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTestMessage reports a sample summary to verify the integration works.
func SendTestMessage(ctx context.Context, r model.Reporter) error {
	now := time.Now()
	s := model.NewRunSummary("test-run", model.SourceFeeds, now.Add(-2*time.Second), model.RunConfig{MaxItems: 1})
	s.FinishedAt = now
	s.ItemsScanned = 1
	s.Processed = 1
	s.CandidatesKept = 1
	s.LinkOnly = 1
	s.JobKeysSample = []string{"greenhouse:1234567"}
	s.SourceDomains["greenhouse.io"] = &model.DomainStats{LinkOnly: 1}
	return r.Report(ctx, s)
}

func mrkdwn(label string, value any) slackText {
	return slackText{Type: "mrkdwn", Text: fmt.Sprintf("*%s:*\n%v", label, value)}
}

func buildPayload(s *model.RunSummary) slackPayload {
	title := fmt.Sprintf("Job intake: %s run", s.Source)
	if s.StoppedAtGlobalCap {
		title += " (stopped at cap)"
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: title},
		},
		{
			Type: "section",
			Fields: []slackText{
				mrkdwn("Scanned", s.ItemsScanned),
				mrkdwn("Processed", s.Processed),
				mrkdwn("Skipped (existing)", s.SkippedAlreadyIngested),
				mrkdwn("Skipped (promotional)", s.SkippedPromotional),
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				mrkdwn("Links kept", s.CandidatesKept),
				mrkdwn("Inserted/updated", s.InsertedOrUpdated),
				mrkdwn("Link only", s.LinkOnly),
				mrkdwn("Dropped by caps", s.DroppedItemCap+s.DroppedGlobalCap),
			},
		},
	}

	if lines := domainLines(s.SourceDomains); len(lines) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Domains*\n" + strings.Join(lines, "\n")},
		})
	}

	sample := "none"
	if len(s.JobKeysSample) > 0 {
		sample = "`" + strings.Join(s.JobKeysSample, "`, `") + "`"
	}
	blocks = append(blocks,
		slackBlock{
			Type: "context",
			Elements: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("run `%s` · %s · keys: %s",
					s.RunID, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond), sample)},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}

func domainLines(domains map[string]*model.DomainStats) []string {
	names := make([]string, 0, len(domains))
	for d := range domains {
		names = append(names, d)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, d := range names {
		st := domains[d]
		lines = append(lines, fmt.Sprintf("• %s: %d new, %d updated, %d ignored, %d link-only",
			d, st.Inserted, st.Updated, st.Ignored, st.LinkOnly))
	}
	return lines
}
