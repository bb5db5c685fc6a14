package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

//go:generate mockgen -destination=mock_clients.go -package=clients . HTTPClientI

const (
	timeout = time.Second * 15
	// maxResponseBody caps how much of a relay reply is kept for logging.
	maxResponseBody = 64 << 10
)

var ErrFailedCloseResponseBody = errors.New("failed close response body")

type HTTPClientI interface {
	PostJSON(ctx context.Context, url string, payload any) (statusCode int, respBody []byte, err error)
}

type HTTPClient struct {
	client    *http.Client
	userAgent string
}

func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: "fundsledger",
	}
}

// PostJSON encodes payload and posts it with the deadline of ctx.
func (h *HTTPClient) PostJSON(ctx context.Context, url string, payload any) (statusCode int, respBody []byte, err error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		if e := resp.Body.Close(); e != nil {
			err = errors.Join(err, ErrFailedCloseResponseBody)
		}
	}()

	respBody, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}
