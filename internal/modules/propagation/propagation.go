// Package propagation forwards the correlation id of the current request on
// outbound HTTP calls so one id follows a request across services.
package propagation

import (
	"net/http"
	"time"

	"github.com/eskrenkovic/correlation-go/internal/modules/correlation"
)

// SetHeader assigns id to headerName on req and returns req.
func SetHeader(req *http.Request, headerName string, id correlation.ID) *http.Request {
	req.Header.Set(headerName, id.String())
	return req
}

var _ http.RoundTripper = (*Transport)(nil)

// Transport sets the id bound to an outbound request's context, unless the
// caller already set the header explicitly.
type Transport struct {
	base       http.RoundTripper
	headerName string
}

func NewTransport(base http.RoundTripper, headerName string) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &Transport{base: base, headerName: headerName}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	id, ok := correlation.FromContext(req.Context())
	if !ok || req.Header.Get(t.headerName) != "" {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the request they are given.
	out := req.Clone(req.Context())
	return t.base.RoundTrip(SetHeader(out, t.headerName, id))
}

type ClientOption func(*clientOptions)

type clientOptions struct {
	base    http.RoundTripper
	timeout time.Duration
}

func WithBaseTransport(base http.RoundTripper) ClientOption {
	return func(o *clientOptions) {
		o.base = base
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

func NewClient(headerName string, opts ...ClientOption) *http.Client {
	options := clientOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	return &http.Client{
		Transport: NewTransport(options.base, headerName),
		Timeout:   options.timeout,
	}
}
