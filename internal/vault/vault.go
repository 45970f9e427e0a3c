// Package vault stores the mailbox refresh token encrypted at rest and hands
// out access tokens, refreshing them through the OAuth token endpoint.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/amishk599/jobintake/internal/model"
)

var (
	// ErrNotConnected means no refresh token has been stored yet.
	ErrNotConnected = errors.New("vault: mailbox not connected")
	// ErrCorruptVault means the stored payload cannot be parsed or decrypted.
	ErrCorruptVault = errors.New("vault: stored token is corrupted")
	// ErrTokenRefresh wraps failures of the OAuth refresh exchange.
	ErrTokenRefresh = errors.New("vault: token refresh failed")
)

// expiryMargin is how long before expiry a cached access token stops being used.
const expiryMargin = 60 * time.Second

// Scope requested for the mailbox.
const gmailReadonlyScope = "https://www.googleapis.com/auth/gmail.readonly"

// OAuthConfig identifies the OAuth client used for refresh.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string // empty selects the Google endpoint
}

// Vault implements model.TokenProvider on top of a VaultStore.
type Vault struct {
	store  model.VaultStore
	sealer *Sealer
	oauth  *oauth2.Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex // serializes refreshes within the process
}

// New returns a Vault. client is used for the token endpoint; nil selects
// http.DefaultClient.
func New(store model.VaultStore, sealer *Sealer, cfg OAuthConfig, client *http.Client, logger *slog.Logger) (*Vault, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, &model.ConfigError{Field: "mailbox.client_id", Reason: "client_id and client_secret are required"}
	}
	if sealer == nil {
		return nil, &model.ConfigError{Field: "mailbox.encryption_key", Reason: "missing"}
	}
	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint = oauth2.Endpoint{TokenURL: cfg.TokenURL, AuthStyle: oauth2.AuthStyleInParams}
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Vault{
		store:  store,
		sealer: sealer,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{gmailReadonlyScope},
		},
		client: client,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Connect seals refreshToken and stores it as the vault singleton, dropping
// any cached access token.
func (v *Vault) Connect(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return &model.ConfigError{Field: "refresh_token", Reason: "empty"}
	}
	sealed, err := v.sealer.Seal(refreshToken)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.store.PutVault(ctx, model.VaultEntry{RefreshCiphertext: sealed, UpdatedAt: v.now()}); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	v.logger.Info("mailbox connected")
	return nil
}

// AccessToken returns a cached access token when it is still valid for more
// than a minute, and otherwise refreshes it.
func (v *Vault) AccessToken(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry, err := v.store.GetVault(ctx)
	if err != nil {
		return "", fmt.Errorf("read vault: %w", err)
	}
	if entry == nil {
		return "", ErrNotConnected
	}
	if entry.AccessToken != "" && !entry.ExpiresAt.IsZero() && entry.ExpiresAt.Sub(v.now()) > expiryMargin {
		return entry.AccessToken, nil
	}

	refresh, err := v.sealer.Open(entry.RefreshCiphertext)
	if err != nil {
		return "", err
	}

	tok, err := v.refresh(ctx, refresh)
	if err != nil {
		return "", err
	}

	updated := model.VaultEntry{
		RefreshCiphertext: entry.RefreshCiphertext,
		AccessToken:       tok.AccessToken,
		ExpiresAt:         tok.Expiry,
		UpdatedAt:         v.now(),
	}
	rotated := tok.RefreshToken != "" && tok.RefreshToken != refresh
	if rotated {
		sealed, err := v.sealer.Seal(tok.RefreshToken)
		if err != nil {
			return "", fmt.Errorf("seal rotated refresh token: %w", err)
		}
		updated.RefreshCiphertext = sealed
	}
	if err := v.store.PutVault(ctx, updated); err != nil {
		return "", fmt.Errorf("store refreshed token: %w", err)
	}
	v.logger.Debug("access token refreshed", "expires_at", tok.Expiry, "rotated", rotated)
	return tok.AccessToken, nil
}

func (v *Vault) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.client)
	tok, err := v.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: response has no access token", ErrTokenRefresh)
	}
	return tok, nil
}

// Status describes the vault without revealing secrets.
type Status struct {
	Connected bool
	Corrupt   bool
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// Status reports whether a refresh token is stored and decryptable.
func (v *Vault) Status(ctx context.Context) (Status, error) {
	entry, err := v.store.GetVault(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("read vault: %w", err)
	}
	if entry == nil {
		return Status{}, nil
	}
	st := Status{Connected: true, ExpiresAt: entry.ExpiresAt, UpdatedAt: entry.UpdatedAt}
	if _, err := v.sealer.Open(entry.RefreshCiphertext); err != nil {
		st.Corrupt = true
	}
	return st, nil
}
