// Package forward relays a request body to an upstream service, carrying
// the bound correlation id along.
package forward

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/eskrenkovic/correlation-go/internal/modules/core"
	"github.com/eskrenkovic/correlation-go/internal/modules/propagation"

	"github.com/eskrenkovic/mediator-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxRelayedBody = 1 << 20

type ForwardCommand struct {
	Upstream    *url.URL
	HeaderName  string
	ContentType string
	Body        []byte
}

func (c ForwardCommand) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if c.Upstream != nil {
		enc.AddString("upstream", c.Upstream.String())
	}
	enc.AddString("header_name", c.HeaderName)
	enc.AddString("content_type", c.ContentType)
	enc.AddInt("body_size", len(c.Body))
	return nil
}

type ForwardResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func HandleForward(upstream *url.URL, headerName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRelayedBody))
		if err != nil {
			core.WriteBadRequest(w, r, core.NewResponseError(http.StatusBadRequest, "failed to read request body"))
			return
		}

		command := ForwardCommand{
			Upstream:    upstream,
			HeaderName:  headerName,
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		}

		response, err := mediator.Send[ForwardCommand, ForwardResponse](ctx, command)
		if err != nil {
			core.WriteError(w, r, err)
			return
		}

		if response.ContentType != "" {
			w.Header().Set("Content-Type", response.ContentType)
		}
		w.WriteHeader(response.StatusCode)
		if _, err := w.Write(response.Body); err != nil {
			core.LogError(ctx, "failed to relay upstream response", zap.Error(err))
		}
	}
}

// ForwardCommandHandler keeps one propagating client per header name.
type ForwardCommandHandler struct {
	timeout time.Duration
	clients sync.Map
}

func NewForwardCommandHandler(timeout time.Duration) *ForwardCommandHandler {
	return &ForwardCommandHandler{timeout: timeout}
}

func (h *ForwardCommandHandler) Handle(ctx context.Context, request ForwardCommand) (ForwardResponse, error) {
	if request.Upstream == nil {
		return ForwardResponse{}, core.NewResponseError(http.StatusServiceUnavailable, "no upstream configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, request.Upstream.String(), bytes.NewReader(request.Body))
	if err != nil {
		return ForwardResponse{}, err
	}
	if request.ContentType != "" {
		req.Header.Set("Content-Type", request.ContentType)
	}

	resp, err := h.client(request.HeaderName).Do(req)
	if err != nil {
		return ForwardResponse{}, core.NewResponseError(
			http.StatusBadGateway,
			"upstream request failed",
			core.WithReason(err.Error()),
		)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayedBody))
	if err != nil {
		return ForwardResponse{}, core.NewResponseError(
			http.StatusBadGateway,
			"failed to read upstream response",
			core.WithReason(err.Error()),
		)
	}

	return ForwardResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (h *ForwardCommandHandler) client(headerName string) *http.Client {
	if c, ok := h.clients.Load(headerName); ok {
		return c.(*http.Client)
	}

	c, _ := h.clients.LoadOrStore(headerName, propagation.NewClient(headerName, propagation.WithTimeout(h.timeout)))
	return c.(*http.Client)
}
