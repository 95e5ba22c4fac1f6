// Package credentials establishes a validated Questrade session.
//
// The Resolver walks an ordered list of providers and stops at the first one
// whose session answers the server-time probe. Failures never escape the
// resolver: each provider yields an Attempt, and the caller receives either a
// validated Credential or a Resolution whose Credential is not validated.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"trading-journal-go/internal/questrade"
	"trading-journal-go/internal/snapshot"

	"go.uber.org/zap"
)

// ErrNotValidated is reported by components that need a validated session.
var ErrNotValidated = errors.New("questrade session not validated")

// Source identifies where a credential came from.
type Source int

const (
	SourceNone Source = iota
	SourceExplicit
	SourceImplicit
	SourceDefaultFile
)

func (s Source) String() string {
	switch s {
	case SourceExplicit:
		return "explicit"
	case SourceImplicit:
		return "implicit"
	case SourceDefaultFile:
		return "default-file"
	default:
		return "none"
	}
}

// Credential is the outcome of resolution. It is never written to disk here.
type Credential struct {
	Token     string
	Validated bool
	Source    Source
}

// Opener opens a session; an empty refresh token means "use the session the
// client already holds".
type Opener interface {
	Open(ctx context.Context, refreshToken string) (questrade.Client, error)
}

// Provider supplies the refresh token for one tier of the chain.
type Provider interface {
	Source() Source
	Token() (string, error)
}

// Attempt records how one provider fared.
type Attempt struct {
	Source Source
	Err    error
}

// Resolution is the result of Resolve.
type Resolution struct {
	Credential Credential
	Client     questrade.Client
	Attempts   []Attempt
}

// Validated reports whether a session was established.
func (r *Resolution) Validated() bool {
	return r.Credential.Validated
}

// Resolver runs the provider chain.
type Resolver struct {
	opener    Opener
	providers []Provider
	logger    *zap.Logger
}

// NewResolver creates a resolver over an explicit provider list.
func NewResolver(opener Opener, providers []Provider, logger *zap.Logger) *Resolver {
	return &Resolver{
		opener:    opener,
		providers: providers,
		logger:    logger.Named("credentials"),
	}
}

// DefaultProviders builds the standard chain. An explicit token is the only
// tier when given; otherwise the implicit session is tried before the
// refresh token stored in defaultFile.
func DefaultProviders(explicitToken, defaultFile string) []Provider {
	if explicitToken != "" {
		return []Provider{staticProvider{source: SourceExplicit, token: explicitToken}}
	}
	return []Provider{
		staticProvider{source: SourceImplicit},
		fileProvider{path: defaultFile},
	}
}

// Resolve tries each provider in order and returns at the first success.
func (r *Resolver) Resolve(ctx context.Context) *Resolution {
	res := &Resolution{}

	for _, p := range r.providers {
		client, token, err := r.attempt(ctx, p)
		res.Attempts = append(res.Attempts, Attempt{Source: p.Source(), Err: err})
		if err != nil {
			r.logger.Debug("Credential attempt failed",
				zap.Stringer("source", p.Source()), zap.Error(err))
			continue
		}

		res.Credential = Credential{Token: token, Validated: true, Source: p.Source()}
		res.Client = client
		r.logger.Info("Questrade API validated", zap.Stringer("source", p.Source()))
		return res
	}

	fields := make([]zap.Field, 0, len(res.Attempts))
	for _, a := range res.Attempts {
		fields = append(fields, zap.NamedError(a.Source.String(), a.Err))
	}
	r.logger.Error("Questrade API not validated", fields...)
	return res
}

func (r *Resolver) attempt(ctx context.Context, p Provider) (client questrade.Client, token string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			client, token, err = nil, "", fmt.Errorf("panic during %s attempt: %v", p.Source(), rec)
		}
	}()

	token, err = p.Token()
	if err != nil {
		return nil, "", err
	}

	client, err = r.opener.Open(ctx, token)
	if err != nil {
		return nil, "", err
	}

	st, err := client.ServerTime(ctx)
	if err != nil {
		return nil, "", err
	}
	if st == nil || st.Time == "" {
		return nil, "", errors.New("server time response has no time field")
	}
	return client, token, nil
}

type staticProvider struct {
	source Source
	token  string
}

func (p staticProvider) Source() Source { return p.source }

func (p staticProvider) Token() (string, error) { return p.token, nil }

// fileProvider reads the refresh_token key of a JSON file.
type fileProvider struct {
	path string
}

func (p fileProvider) Source() Source { return SourceDefaultFile }

func (p fileProvider) Token() (string, error) {
	var stored struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := snapshot.Load(p.path, &stored); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", p.path, err)
	}
	if stored.RefreshToken == "" {
		return "", fmt.Errorf("no refresh_token in %s", p.path)
	}
	return stored.RefreshToken, nil
}
