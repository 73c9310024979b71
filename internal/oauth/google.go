// Package oauth implements the Google authorization-code grant client.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/and161185/authgate/internal/errs"
)

// Config carries provider endpoints and client credentials. Endpoints are
// configurable so tests can point the client at a local server.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
	Timeout      time.Duration
}

// Provider performs the authorization-code and refresh-token grants against
// the external identity provider.
type Provider struct {
	cfg  Config
	http *http.Client
}

// NewProvider constructs a provider client with a bounded request timeout.
func NewProvider(cfg Config) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

// Tokens is the provider token endpoint response.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
	IDToken      string `json:"id_token"`
}

// Profile is the provider userinfo response.
type Profile struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// AuthCodeURL builds the provider authorization URL. access_type=offline and
// prompt=consent are required to receive a provider refresh token.
func (p *Provider) AuthCodeURL() string {
	params := url.Values{}
	params.Set("client_id", p.cfg.ClientID)
	params.Set("redirect_uri", p.cfg.RedirectURI)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(p.cfg.Scopes, " "))
	params.Set("access_type", "offline")
	params.Set("prompt", "consent")
	return p.cfg.AuthURL + "?" + params.Encode()
}

// Exchange trades an authorization code for provider tokens. It performs a
// single POST and never retries: authorization codes are single-use.
func (p *Provider) Exchange(ctx context.Context, code string) (*Tokens, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("redirect_uri", p.cfg.RedirectURI)
	form.Set("grant_type", "authorization_code")
	return p.postToken(ctx, form)
}

// RefreshAccessToken trades a stored provider refresh token for a new
// provider access token.
func (p *Provider) RefreshAccessToken(ctx context.Context, refreshToken string) (*Tokens, error) {
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("grant_type", "refresh_token")
	return p.postToken(ctx, form)
}

func (p *Provider) postToken(ctx context.Context, form url.Values) (*Tokens, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrOAuthExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: token endpoint status %d: %s", errs.ErrOAuthExchange, resp.StatusCode, body)
	}
	var tokens Tokens
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %v", errs.ErrOAuthExchange, err)
	}
	return &tokens, nil
}

// FetchProfile loads the user's profile with the provider access token.
func (p *Provider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrOAuthExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", errs.ErrOAuthExchange, resp.StatusCode)
	}
	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %v", errs.ErrOAuthExchange, err)
	}
	return &profile, nil
}
