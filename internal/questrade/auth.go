package questrade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trading-journal-go/internal/config"
	"trading-journal-go/internal/snapshot"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNoStoredSession is returned when no usable access token is on disk.
var ErrNoStoredSession = errors.New("no stored questrade session")

// Token is the OAuth token as returned by the login server, plus the
// absolute expiry we compute when storing it.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	APIServer    string `json:"api_server"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Expired reports whether the access token can no longer be used at now.
func (t *Token) Expired(now time.Time) bool {
	return t.AccessToken == "" || t.APIServer == "" || t.ExpiresAt <= now.Unix()
}

// TokenStore persists the current token to a JSON file.
type TokenStore struct {
	path string
}

// NewTokenStore creates a store backed by path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the file backing the store.
func (s *TokenStore) Path() string {
	return s.path
}

// Load reads the stored token.
func (s *TokenStore) Load() (*Token, error) {
	var t Token
	if err := snapshot.Load(s.path, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Save replaces the stored token.
func (s *TokenStore) Save(t *Token) error {
	return snapshot.SavePerm(s.path, t, 0o600)
}

// Authenticator opens API sessions, either from the stored token or by
// exchanging a refresh token with the login server.
type Authenticator struct {
	login   *resty.Client
	store   *TokenStore
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuthenticator creates an Authenticator from the Questrade configuration.
func NewAuthenticator(cfg *config.Questrade, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		login:   resty.New().SetBaseURL(cfg.LoginURL),
		store:   NewTokenStore(cfg.TokenFile),
		limiter: NewLimiter(cfg.RateLimit, cfg.RateLimitBurst),
		logger:  logger.Named("questrade"),
		now:     time.Now,
	}
}

// Open returns a client for a session. With an empty refreshToken it reuses
// the session held in the token store; otherwise it redeems refreshToken.
func (a *Authenticator) Open(ctx context.Context, refreshToken string) (Client, error) {
	if refreshToken == "" {
		t, err := a.store.Load()
		if err != nil {
			if errors.Is(err, snapshot.ErrNotExists) {
				return nil, ErrNoStoredSession
			}
			return nil, fmt.Errorf("failed to read token store: %w", err)
		}
		if t.Expired(a.now()) {
			return nil, fmt.Errorf("%w: stored access token expired", ErrNoStoredSession)
		}
		a.logger.Debug("Reusing stored session", zap.String("api_server", t.APIServer))
		return NewRestClient(t.APIServer, t.AccessToken, a.limiter, a.logger), nil
	}

	t, err := a.redeem(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if err := a.store.Save(t); err != nil {
		// The session is usable; only the next run loses it.
		a.logger.Warn("Failed to persist token", zap.String("path", a.store.Path()), zap.Error(err))
	}
	return NewRestClient(t.APIServer, t.AccessToken, a.limiter, a.logger), nil
}

func (a *Authenticator) redeem(ctx context.Context, refreshToken string) (*Token, error) {
	resp, err := a.login.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
		}).
		SetResult(&Token{}).
		Get("/oauth2/token")
	if err != nil {
		return nil, fmt.Errorf("failed to redeem refresh token: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to redeem refresh token: status %s: %s", resp.Status(), resp.String())
	}

	t := resp.Result().(*Token)
	if t.AccessToken == "" || t.APIServer == "" {
		return nil, errors.New("failed to redeem refresh token: incomplete token response")
	}
	t.ExpiresAt = a.now().Unix() + t.ExpiresIn
	return t, nil
}
