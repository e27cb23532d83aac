package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// tokenExpiryMargin treats a token this close to expiry as already expired,
// so a nearly dead token is never raced against the server's clock.
const tokenExpiryMargin = 60 * time.Second

var ErrNoAccessToken = errors.New("access token missing from token response")

// tokenSource exchanges signed assertions for bearer tokens and caches the
// result until expiry. The check-and-refresh step is serialized under a
// mutex so concurrent appends trigger a single exchange.
type tokenSource struct {
	creds      *Credentials
	httpClient *http.Client
	now        func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func newTokenSource(creds *Credentials, client *http.Client) *tokenSource {
	return &tokenSource{
		creds:      creds,
		httpClient: client,
		now:        time.Now,
	}
}

// Token returns the cached bearer token, refreshing it first when absent or
// within the expiry margin.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Add(tokenExpiryMargin).Before(ts.expiry) {
		return ts.token, nil
	}
	return ts.refreshLocked(ctx)
}

// Invalidate drops the cached token after the API rejects it, forcing a
// fresh exchange on the next call.
func (ts *tokenSource) Invalidate() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.token = ""
	ts.expiry = time.Time{}
}

// refreshLocked performs the assertion-for-token exchange. Callers hold the
// mutex.
func (ts *tokenSource) refreshLocked(ctx context.Context) (string, error) {
	assertion, err := signAssertion(ts.creds, ts.now())
	if err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		ts.creds.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange rejected: %d: %s", resp.StatusCode, string(body))
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", ErrNoAccessToken
	}

	ts.token = tr.AccessToken
	ts.expiry = ts.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return ts.token, nil
}
