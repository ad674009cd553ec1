package api

import (
	"context"
	"errors"
	"net/http"
)

// Status fetches /status.json. A 503 answer still carries a status body and
// is returned without error so the caller can inspect which part is down.
func (s ServerService) Status(ctx context.Context) (Status, error) {
	return getStatus(ctx, s)
}

func getStatus(ctx context.Context, r Requester) (Status, error) {
	body, resp, err := r.doRaw(ctx, http.MethodGet, r.serverPath("/status.json"), nil, "")
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
			return Status{}, err
		}
		if m, decodeErr := decodeResponse(resp, body); decodeErr == nil {
			return NewStatus(m), nil
		}
		return Status{}, err
	}
	m, err := decodeResponse(resp, body)
	if err != nil {
		return Status{}, err
	}
	return NewStatus(m), nil
}

// Stats fetches /stats.json.
func (s ServerService) Stats(ctx context.Context) (Stats, error) {
	m, err := s.do(ctx, http.MethodGet, s.serverPath("/stats.json"), nil)
	if err != nil {
		return Stats{}, err
	}
	return NewStats(m), nil
}

// HealthCheck reports whether the server answers its status endpoint with
// both database and storage up.
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	status, err := getStatus(ctx, c)
	if err != nil {
		return false, err
	}
	return status.Healthy(), nil
}
