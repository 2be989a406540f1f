package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// naverEndpoint is Naver's OAuth 2.0 authorization-code endpoints.
// x/oauth2 ships presets for GitHub, Google and friends but not Naver,
// so the URLs are spelled out here.
var naverEndpoint = oauth2.Endpoint{
	AuthURL:  "https://nid.naver.com/oauth2.0/authorize",
	TokenURL: "https://nid.naver.com/oauth2.0/token",
}

const naverProfileURL = "https://openapi.naver.com/v1/nid/me"

// NaverUser is the slice of the Naver profile response we keep.
//
// Naver wraps the profile in an envelope: resultcode "00" means success,
// anything else is a failure even when the HTTP status is 200.
type NaverUser struct {
	ID       string `json:"id"`       // Naver's opaque user identifier — stable across logins
	Nickname string `json:"nickname"` // may be empty if the user hid it
	Email    string `json:"email"`
}

type naverProfileResponse struct {
	ResultCode string    `json:"resultcode"`
	Message    string    `json:"message"`
	Response   NaverUser `json:"response"`
}

// NaverProvider wraps golang.org/x/oauth2 for the Naver authorization
// code flow: redirect the browser to Naver, receive the callback code,
// exchange it server-to-server for an access token, then fetch the
// profile. The client secret and access token never reach the browser.
type NaverProvider struct {
	config *oauth2.Config
	// client fetches the profile; overridable in tests and bounded by a
	// timeout so a stalled provider can't pin a request goroutine.
	client *http.Client

	profileURL string
}

// NewNaverProvider creates a NaverProvider. callbackURL must match the
// redirect URI registered with the Naver application exactly.
func NewNaverProvider(clientID, clientSecret, callbackURL string) *NaverProvider {
	return &NaverProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Endpoint:     naverEndpoint,
		},
		client:     &http.Client{Timeout: 10 * time.Second},
		profileURL: naverProfileURL,
	}
}

// AuthURL returns the Naver authorization URL for the given anti-forgery
// state. The caller stores the state in a short-lived cookie and checks
// it when the callback arrives.
func (p *NaverProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange completes the flow: trades the callback code for an access
// token and fetches the Naver profile with it.
//
// Failure modes, all of which abort the login:
//   - the token endpoint rejects the code (expired, reused, wrong secret)
//   - the profile endpoint returns a non-200 status
//   - the envelope's resultcode is not "00"
//   - the profile has no user ID
func (p *NaverProvider) Exchange(ctx context.Context, code string) (*NaverUser, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building profile request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Naver profile API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Naver profile API returned status %d", resp.StatusCode)
	}

	var envelope naverProfileResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("auth: decoding Naver profile response: %w", err)
	}

	if envelope.ResultCode != "00" {
		return nil, fmt.Errorf("auth: Naver profile lookup failed: %s (%s)",
			envelope.ResultCode, envelope.Message)
	}
	if envelope.Response.ID == "" {
		return nil, fmt.Errorf("auth: Naver returned a profile with no user id")
	}

	return &envelope.Response, nil
}
