// Package mailbox reads job-alert messages from a Gmail mailbox.
package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/amishk599/jobintake/internal/model"
)

// maxPageSize is the largest page the Gmail list endpoint accepts.
const maxPageSize = 500

// GmailDialer opens Gmail mailboxes for an access token.
type GmailDialer struct {
	userID   string
	endpoint string       // empty selects the public API
	client   *http.Client // base transport; nil selects the default
	logger   *slog.Logger
}

// NewGmailDialer returns a dialer for userID ("me" for the token owner).
func NewGmailDialer(userID, endpoint string, client *http.Client, logger *slog.Logger) *GmailDialer {
	if userID == "" {
		userID = "me"
	}
	return &GmailDialer{userID: userID, endpoint: endpoint, client: client, logger: logger}
}

// Dial implements model.MailboxDialer.
func (d *GmailDialer) Dial(ctx context.Context, accessToken string) (model.Mailbox, error) {
	base := http.DefaultTransport
	if d.client != nil && d.client.Transport != nil {
		base = d.client.Transport
	}
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   base,
		},
	}
	if d.client != nil {
		httpClient.Timeout = d.client.Timeout
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if d.endpoint != "" {
		opts = append(opts, option.WithEndpoint(d.endpoint))
	}
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail: create service: %w", err)
	}
	return &Gmail{svc: svc, userID: d.userID, logger: d.logger}, nil
}

// Gmail is a model.Mailbox backed by the Gmail API.
type Gmail struct {
	svc    *gmail.Service
	userID string
	logger *slog.Logger
}

// ListMessageIDs returns up to max message ids matching query, newest first,
// following page tokens as needed.
func (g *Gmail) ListMessageIDs(ctx context.Context, query string, max int) ([]string, error) {
	var ids []string
	pageToken := ""
	for len(ids) < max {
		size := max - len(ids)
		if size > maxPageSize {
			size = maxPageSize
		}
		call := g.svc.Users.Messages.List(g.userID).Q(query).MaxResults(int64(size)).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("gmail: list messages: %w", err)
		}
		for _, m := range resp.Messages {
			if len(ids) == max {
				break
			}
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" || len(resp.Messages) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}
	return ids, nil
}

// FetchMessage retrieves one full message and decodes its bodies.
func (g *Gmail) FetchMessage(ctx context.Context, id string) (*model.SourceItem, error) {
	m, err := g.svc.Users.Messages.Get(g.userID, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail: get message %s: %w", id, err)
	}
	return toItem(m), nil
}
