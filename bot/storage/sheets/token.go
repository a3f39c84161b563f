package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultTokenURI = "https://oauth2.googleapis.com/token"

// storedToken mirrors the authorized-user credential JSON written by the
// Google OAuth consent flow.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	TokenURI     string    `json:"token_uri"`
	Expiry       time.Time `json:"expiry"`
}

// tokenSource loads the credential file once and refreshes the access token
// when it nears expiry.
type tokenSource struct {
	path string
	http *http.Client

	mu  sync.Mutex
	tok storedToken
}

func newTokenSource(path string, httpClient *http.Client) (*tokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sheets: read token file: %w", err)
	}
	var tok storedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("sheets: parse token file: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("sheets: token file %s holds no usable token", path)
	}
	if tok.TokenURI == "" {
		tok.TokenURI = defaultTokenURI
	}
	return &tokenSource{path: path, http: httpClient, tok: tok}, nil
}

// Token returns a valid bearer token, refreshing it if needed.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.tok.AccessToken != "" && (ts.tok.Expiry.IsZero() || time.Until(ts.tok.Expiry) > time.Minute) {
		return ts.tok.AccessToken, nil
	}
	if ts.tok.RefreshToken == "" {
		return "", fmt.Errorf("sheets: access token expired and no refresh token available")
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {ts.tok.RefreshToken},
		"client_id":     {ts.tok.ClientID},
		"client_secret": {ts.tok.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tok.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("sheets: build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sheets: token refresh: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sheets: token refresh status %s", resp.Status)
	}

	var refreshed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &refreshed); err != nil {
		return "", fmt.Errorf("sheets: parse refresh response: %w", err)
	}
	if refreshed.AccessToken == "" {
		return "", fmt.Errorf("sheets: refresh response without access token")
	}

	ts.tok.AccessToken = refreshed.AccessToken
	if refreshed.ExpiresIn > 0 {
		ts.tok.Expiry = time.Now().Add(time.Duration(refreshed.ExpiresIn) * time.Second)
	}
	return ts.tok.AccessToken, nil
}
