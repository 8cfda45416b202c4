package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/eskrenkovic/correlation-go/internal/config"
	"github.com/eskrenkovic/correlation-go/internal/modules/accesslog"
	"github.com/eskrenkovic/correlation-go/internal/modules/core"
	"github.com/eskrenkovic/correlation-go/internal/modules/correlation"
	"github.com/eskrenkovic/correlation-go/internal/modules/forward"
	"github.com/eskrenkovic/correlation-go/internal/modules/logtoken"
	"github.com/eskrenkovic/correlation-go/internal/modules/metrics"

	"github.com/eskrenkovic/mediator-go"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const upstreamTimeout = 10 * time.Second

// The mediator keeps a process-wide registry, so handlers and behaviors
// are registered once no matter how many servers get built.
var registerHandlers = sync.OnceValue(func() error {
	fields := []core.FieldFunc{logtoken.Field}

	mediator.RegisterPipelineBehavior(&core.RequestLoggingBehavior{Fields: fields})
	mediator.RegisterPipelineBehavior(&core.HandlerErrorLoggingBehavior{Fields: fields})

	return mediator.RegisterRequestHandler[forward.ForwardCommand, forward.ForwardResponse](
		forward.NewForwardCommandHandler(upstreamTimeout),
	)
})

type Server interface {
	Start() error
	Stop(ctx context.Context) error
}

var _ Server = &HTTPServer{}

// HTTPServer acts as the composition root for an application.
type HTTPServer struct {
	server *http.Server
	logger *zap.Logger
	config config.Config
}

func NewHTTPServer(conf config.Config) (*HTTPServer, error) {
	logger := conf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()

	interceptorOptions := []correlation.Option{
		correlation.WithConfig(conf.Correlation),
		correlation.WithLogger(logger),
	}

	if conf.MetricsEnabled {
		collector, err := metrics.NewCollector(registry)
		if err != nil {
			return nil, err
		}
		interceptorOptions = append(interceptorOptions, correlation.WithObserver(collector))
	}

	interceptor, err := correlation.NewInterceptor(interceptorOptions...)
	if err != nil {
		return nil, err
	}

	accessLogFormat := conf.AccessLogFormat
	if accessLogFormat == "" {
		accessLogFormat = config.DefaultAccessLogFormat
	}

	accessLog, err := accesslog.New(accessLogFormat, logger.Named("access"))
	if err != nil {
		return nil, err
	}
	logtoken.Register(accessLog)

	if err := registerHandlers(); err != nil {
		return nil, err
	}

	mux := chi.NewRouter()

	// Access log sits outside the recoverer so panics are logged as 500s.
	mux.Use(
		accessLog.Middleware(),
		middleware.Recoverer,
		core.Middleware(core.LoggerMiddleware(logger)),
	)

	mux.Group(func(app chi.Router) {
		app.Use(interceptor.Middleware())

		r := router{mux: app}

		// http

		r.register(http.MethodGet, "/correlation-id", handleGetCorrelationID)
		r.register(http.MethodPost, "/simple", forward.HandleForward(conf.UpstreamURL, conf.Correlation.HeaderName))
	})

	// Scrapes never carry a correlation id, so they bypass the interceptor.
	if conf.MetricsEnabled {
		mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	server := &http.Server{
		Addr:    net.JoinHostPort("", strconv.Itoa(conf.Port)),
		Handler: mux,
	}

	return &HTTPServer{server: server, logger: logger, config: conf}, nil
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks until the server is stopped.
func (s *HTTPServer) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	s.logger.Info("stopping http server")
	return s.server.Shutdown(ctx)
}

type router struct {
	mux chi.Router
}

func (r *router) register(method, pattern string, handler http.HandlerFunc) {
	r.mux.Method(method, pattern, handler)
}
