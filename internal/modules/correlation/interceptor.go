package correlation

import (
	"fmt"
	"io"
	"net/http"

	"github.com/eskrenkovic/correlation-go/internal/modules/core"

	"github.com/felixge/httpsnoop"
	"go.uber.org/zap"
)

// Outcome describes how the id of a request was resolved.
type Outcome string

const (
	OutcomeAdopted   Outcome = "adopted"
	OutcomeGenerated Outcome = "generated"
	// OutcomeReplaced means a malformed inbound value was discarded and a
	// fresh id generated in its place.
	OutcomeReplaced Outcome = "replaced"
	OutcomeRejected Outcome = "rejected"
)

type Observer interface {
	Observe(Outcome)
}

type Option func(*Interceptor)

func WithConfig(config Config) Option {
	return func(i *Interceptor) {
		i.config = config
	}
}

func WithHeaderName(name string) Option {
	return func(i *Interceptor) {
		i.config.HeaderName = name
	}
}

func WithEnforceHeader(enforce bool) Option {
	return func(i *Interceptor) {
		i.config.EnforceHeader = enforce
	}
}

func WithResponseHeaderName(name string) Option {
	return func(i *Interceptor) {
		i.config.ResponseHeaderName = name
	}
}

func WithIncludeInResponse(include bool) Option {
	return func(i *Interceptor) {
		i.config.IncludeInResponse = include
	}
}

func WithGenerator(generator Generator) Option {
	return func(i *Interceptor) {
		i.generator = generator
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(i *Interceptor) {
		i.logger = logger
	}
}

func WithObserver(observer Observer) Option {
	return func(i *Interceptor) {
		i.observer = observer
	}
}

var _ core.Filter = (*Interceptor)(nil)

// Interceptor binds a correlation id to every request passing through it.
// It is immutable after construction and safe for concurrent use.
type Interceptor struct {
	config    Config
	generator Generator
	logger    *zap.Logger
	observer  Observer
}

func NewInterceptor(opts ...Option) (*Interceptor, error) {
	i := &Interceptor{
		config:    DefaultConfig(),
		generator: UUIDGenerator,
	}

	for _, opt := range opts {
		opt(i)
	}

	if err := i.config.Validate(); err != nil {
		return nil, err
	}

	if i.generator == nil {
		i.generator = UUIDGenerator
	}

	if i.logger == nil {
		i.logger = zap.NewNop()
	}

	return i, nil
}

func (i *Interceptor) Config() Config {
	return i.config
}

func (i *Interceptor) Middleware() func(http.Handler) http.Handler {
	return core.Middleware(i)
}

func (i *Interceptor) Intercept(w http.ResponseWriter, r *http.Request, next http.Handler) {
	id, outcome, err := i.resolve(r)
	if i.observer != nil {
		i.observer.Observe(outcome)
	}

	if err != nil {
		i.reject(w, r, err)
		return
	}

	r = r.WithContext(WithID(r.Context(), id))

	name, ok := i.config.EffectiveResponseHeader()
	if !ok {
		next.ServeHTTP(w, r)
		return
	}

	e := &echo{header: w.Header(), name: name, value: id.String()}
	// Also covers handlers that write nothing and handlers that panic
	// before an outer recoverer writes the error response.
	defer e.stamp()

	next.ServeHTTP(httpsnoop.Wrap(w, e.hooks()), r)
}

func (i *Interceptor) resolve(r *http.Request) (ID, Outcome, error) {
	name := i.config.HeaderName

	values := r.Header.Values(name)
	if len(values) == 0 {
		if i.config.EnforceHeader {
			return ID{}, OutcomeRejected, errMissingRequiredHeader(name)
		}

		return i.generator.Generate(), OutcomeGenerated, nil
	}

	id, err := Parse(values[0])
	if err == nil {
		return id, OutcomeAdopted, nil
	}

	i.logger.Debug(
		"discarding malformed correlation id",
		zap.String("header", name),
		zap.Error(err),
	)

	if i.config.EnforceHeader {
		return ID{}, OutcomeRejected, fmt.Errorf("%w: %w", err, errMissingRequiredHeader(name))
	}

	return i.generator.Generate(), OutcomeReplaced, nil
}

func (i *Interceptor) reject(w http.ResponseWriter, r *http.Request, err error) {
	i.logger.Debug(
		"rejecting request without correlation id",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)

	reason := "missing"
	if len(r.Header.Values(i.config.HeaderName)) > 0 {
		reason = "malformed"
	}

	core.WriteBadRequest(w, r, core.NewResponseError(
		http.StatusBadRequest,
		fmt.Sprintf("header '%s' is required", i.config.HeaderName),
		core.WithReason(reason),
	))
}

// echo stamps the response header right before the status line goes out,
// so its value wins over anything downstream set.
type echo struct {
	header  http.Header
	name    string
	value   string
	written bool
}

func (e *echo) stamp() {
	if e.written {
		return
	}

	e.header.Set(e.name, e.value)
}

func (e *echo) hooks() httpsnoop.Hooks {
	return httpsnoop.Hooks{
		WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return func(code int) {
				e.stamp()
				if code >= http.StatusOK {
					e.written = true
				}
				next(code)
			}
		},
		Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return func(b []byte) (int, error) {
				e.stamp()
				e.written = true
				return next(b)
			}
		},
		ReadFrom: func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
			return func(src io.Reader) (int64, error) {
				e.stamp()
				e.written = true
				return next(src)
			}
		},
		Flush: func(next httpsnoop.FlushFunc) httpsnoop.FlushFunc {
			return func() {
				e.stamp()
				e.written = true
				next()
			}
		},
	}
}
