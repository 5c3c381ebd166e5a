package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// doCapture issues the single /ingest POST for a snapshot. One attempt,
// terminal outcome.
func (c *Client) doCapture(ctx context.Context, req Request) Result {
	if req.Snapshot == nil {
		c.logger.Warn("relay: capture request without snapshot")
		return Result{Status: StatusError}
	}
	return c.post(ctx, c.ingestURL, req.Snapshot.Wire())
}

// doPing issues the diagnostic /process_interaction POST.
func (c *Client) doPing(ctx context.Context, req Request) Result {
	body := struct {
		Text     string `json:"text"`
		Platform string `json:"platform"`
	}{Text: req.Text, Platform: string(req.Platform)}
	return c.post(ctx, c.pingURL, body)
}

// post serialises body, POSTs it, and folds every failure mode — marshal,
// network, non-2xx, unparseable acknowledgment — into StatusError.
// Nothing escapes as a Go error or panic.
func (c *Client) post(ctx context.Context, url string, body any) Result {
	payload, err := json.Marshal(body)
	if err != nil {
		c.logger.Error("relay: marshal request", "url", url, "error", err)
		return Result{Status: StatusError}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		c.logger.Error("relay: build request", "url", url, "error", err)
		return Result{Status: StatusError}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		c.logger.Warn("relay: request failed", "url", url, "error", err)
		return Result{Status: StatusError}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.logger.Warn("relay: read response", "url", url, "error", err)
		return Result{Status: StatusError}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("relay: bad status", "url", url, "status", resp.StatusCode)
		return Result{Status: StatusError}
	}

	if !json.Valid(data) {
		c.logger.Warn("relay: unparseable acknowledgment", "url", url)
		return Result{Status: StatusError}
	}

	return Result{Status: StatusOK, Data: data}
}
