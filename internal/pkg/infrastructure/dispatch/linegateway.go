package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/logging"
)

type lineGateway struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewLineGateway creates a Dispatcher that pushes messages through a
// LINE-style messaging API. The channel side owns message rendering and
// delivery timeouts; the core only hands over the structured payload.
func NewLineGateway(baseURL, accessToken string) Dispatcher {
	return &lineGateway{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type pushRequest struct {
	To      string  `json:"to"`
	Kind    Kind    `json:"kind"`
	Payload Payload `json:"payload"`
}

func (g *lineGateway) Dispatch(ctx context.Context, kind Kind, recipientRef string, payload Payload) error {
	log := logging.GetLoggerFromContext(ctx)

	body, err := json.Marshal(pushRequest{
		To:      recipientRef,
		Kind:    kind,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to marshal payload: %s", ErrPermanent, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/push", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPermanent, err.Error())
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTransient, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: channel returned status %d", ErrTransient, resp.StatusCode)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: channel returned status %d", ErrPermanent, resp.StatusCode)
	}

	log.Debug().
		Str("kind", string(kind)).
		Str("recipient", recipientRef).
		Msg("message dispatched")

	return nil
}

// NewNoOpDispatcher returns a Dispatcher that silently accepts everything.
// Used in dev mode.
func NewNoOpDispatcher() Dispatcher {
	return &noopDispatcher{}
}

type noopDispatcher struct{}

func (d *noopDispatcher) Dispatch(ctx context.Context, kind Kind, recipientRef string, payload Payload) error {
	return nil
}
