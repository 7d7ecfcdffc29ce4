// Package gauth holds the Google OAuth plumbing shared by the provider
// clients: code exchange, refresh-token exchange, per-call HTTP clients over
// a static token, and mapping of Google API failures onto internal/errs.
package gauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"privatezone-backend/internal/errs"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Credentials are passed into every provider call; clients never hold them.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Token is the result of a code exchange or a refresh.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// OAuth is an immutable OAuth client configuration for one scope set.
type OAuth struct {
	config  oauth2.Config
	timeout time.Duration
}

func New(clientID, clientSecret, redirectURI string, timeout time.Duration) *OAuth {
	return &OAuth{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint:     google.Endpoint,
		},
		timeout: timeout,
	}
}

// WithEndpoint returns a copy talking to another token endpoint.
func (o *OAuth) WithEndpoint(ep oauth2.Endpoint) *OAuth {
	cp := *o
	cp.config.Endpoint = ep
	return &cp
}

// WithScopes returns a copy requesting the given scopes.
func (o *OAuth) WithScopes(scopes ...string) *OAuth {
	cp := *o
	cp.config.Scopes = append([]string(nil), scopes...)
	return &cp
}

func (o *OAuth) Timeout() time.Duration { return o.timeout }

// CallContext bounds one outbound call.
func (o *OAuth) CallContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}

// AuthCodeURL builds the consent URL. Offline access with forced consent so
// Google always hands out a refresh token.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token pair.
func (o *OAuth) Exchange(ctx context.Context, code string) (*Token, error) {
	ctx, cancel := o.CallContext(ctx)
	defer cancel()

	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, errs.Auth("authorization code rejected", err)
		}
		return nil, errs.Remote("google-oauth", 0, err)
	}
	return fromOAuth2(tok), nil
}

// RefreshAccessToken exchanges a refresh token for a new access token. A
// revoked or unknown refresh token yields an AuthError.
func (o *OAuth) RefreshAccessToken(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, errs.Auth("no refresh token stored", nil)
	}

	ctx, cancel := o.CallContext(ctx)
	defer cancel()

	// Expired on purpose so the source goes straight to the token endpoint.
	src := o.config.TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, errs.Auth("refresh token rejected", err)
		}
		return nil, errs.Remote("google-oauth", 0, err)
	}
	return fromOAuth2(tok), nil
}

// Client returns an HTTP client that presents creds as-is. It never refreshes;
// refreshing is the caller's job.
func (o *OAuth) Client(ctx context.Context, creds Credentials) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: creds.AccessToken,
		TokenType:   "Bearer",
	}))
}

// UserEmail reads the account email behind creds.
func (o *OAuth) UserEmail(ctx context.Context, creds Credentials, opts ...option.ClientOption) (string, error) {
	ctx, cancel := o.CallContext(ctx)
	defer cancel()

	opts = append([]option.ClientOption{option.WithHTTPClient(o.Client(ctx, creds))}, opts...)
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("create userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", Classify("google-userinfo", err)
	}
	return info.Email, nil
}

// Classify maps a Google API failure onto the error taxonomy. A 401 means the
// access token was rejected; everything else is a RemoteError carrying the
// provider status.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusUnauthorized {
			return errs.Auth(provider+" rejected the access token", err)
		}
		return errs.Remote(provider, gerr.Code, err)
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return errs.Auth(provider+" token refresh failed", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Remote(provider, http.StatusGatewayTimeout, err)
	}

	return errs.Remote(provider, 0, err)
}

func fromOAuth2(tok *oauth2.Token) *Token {
	t := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		t.ExpiresAt = &exp
	}
	return t
}
