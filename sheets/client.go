package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/njacques/newsclip/article"
	"github.com/njacques/newsclip/sink"
)

// Append retry policy: transient failures get a few attempts with doubling
// backoff; authorization failures get exactly one re-exchange.
const (
	maxAppendAttempts = 3
	backoffBase       = 500 * time.Millisecond
)

// AppendError reports a failed append call with enough detail to decide
// whether retrying is worthwhile.
type AppendError struct {
	StatusCode int
	Body       string
}

func (e *AppendError) Error() string {
	return fmt.Sprintf("append rejected: %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the failure is worth retrying. Rate limits and
// server errors are; malformed ranges and permission denials are not.
func (e *AppendError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// authFailure reports an expired or invalid token. 403 is excluded: a
// permission denial outlives any token, so a re-exchange cannot fix it and it
// is surfaced as permanent instead.
func (e *AppendError) authFailure() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// Client appends article rows to one spreadsheet range. It implements
// sink.Sink so the pipeline can treat the sheet like any other destination.
type Client struct {
	// BaseURL is overridable for tests; it defaults to the public API.
	BaseURL       string
	SpreadsheetID string
	SheetName     string
	CellRange     string

	httpClient *http.Client
	tokens     *tokenSource
	sleep      func(time.Duration)
}

var _ sink.Sink = (*Client)(nil)

// NewClient builds a client for the given spreadsheet coordinates.
func NewClient(creds *Credentials, spreadsheetID, sheetName, cellRange string) *Client {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	return &Client{
		BaseURL:       DefaultBaseURL,
		SpreadsheetID: spreadsheetID,
		SheetName:     sheetName,
		CellRange:     cellRange,
		httpClient:    httpClient,
		tokens:        newTokenSource(creds, httpClient),
		sleep:         time.Sleep,
	}
}

// Name identifies the sink in run reports.
func (c *Client) Name() string { return "sheets" }

// Write serializes articles into rows (title, link, date, source) and
// appends them.
func (c *Client) Write(ctx context.Context, articles []article.Article) error {
	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, []string{a.Title, a.Link, a.Date.Format("2006-01-02"), a.Source})
	}
	return c.Append(ctx, rows)
}

// Append appends rows after the existing content of the configured range.
// The operation is not idempotent: re-running with the same rows appends
// them again, because the pipeline's dedupe protects a single run only.
func (c *Client) Append(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	body, err := json.Marshal(map[string][][]string{"values": rows})
	if err != nil {
		return fmt.Errorf("failed to marshal append body: %w", err)
	}

	reauthed := false
	backoff := backoffBase
	for attempt := 1; ; attempt++ {
		err := c.post(ctx, body)
		if err == nil {
			return nil
		}

		var apErr *AppendError
		if errors.As(err, &apErr) {
			if apErr.authFailure() && !reauthed {
				// Expired or invalid token: re-exchange once, then give up.
				reauthed = true
				c.tokens.Invalidate()
				continue
			}
			if apErr.Transient() && attempt < maxAppendAttempts {
				c.sleep(backoff)
				backoff *= 2
				continue
			}
		}
		return err
	}
}

// post issues one authenticated append request.
func (c *Client) post(ctx context.Context, body []byte) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	rangeName := url.PathEscape(fmt.Sprintf("%s!%s", c.SheetName, c.CellRange))
	appendURL := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED",
		c.BaseURL, c.SpreadsheetID, rangeName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, appendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create append request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("append request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return &AppendError{StatusCode: resp.StatusCode, Body: string(respBody)}
}
