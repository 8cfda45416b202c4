package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/eskrenkovic/correlation-go/internal/modules/accesslog"
	"github.com/eskrenkovic/correlation-go/internal/modules/correlation"
	"github.com/eskrenkovic/correlation-go/internal/modules/logtoken"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

const (
	PortEnv     = "PORT"
	RootPathEnv = "ROOT_PATH"
)

// DefaultAccessLogFormat puts the correlation id first on every line.
const DefaultAccessLogFormat = "%{" + logtoken.Token + "}xi " + accesslog.DefaultFormat

type environment struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	HeaderName         string `env:"CORRELATION_HEADER_NAME" envDefault:"x-correlation-id"`
	EnforceHeader      bool   `env:"CORRELATION_ENFORCE_HEADER" envDefault:"false"`
	ResponseHeaderName string `env:"CORRELATION_RESPONSE_HEADER_NAME"`
	IncludeInResponse  bool   `env:"CORRELATION_INCLUDE_IN_RESPONSE" envDefault:"false"`

	AccessLogFormat string `env:"ACCESS_LOG_FORMAT"`
	UpstreamURL     string `env:"UPSTREAM_URL"`
	MetricsEnabled  bool   `env:"METRICS_ENABLED" envDefault:"true"`
}

type Config struct {
	Logger *zap.Logger

	Port            int
	ShutdownTimeout time.Duration

	Correlation correlation.Config

	AccessLogFormat string
	// UpstreamURL is nil when no upstream is configured.
	UpstreamURL    *url.URL
	MetricsEnabled bool
}

func Load() (Config, error) {
	var e environment
	if err := env.Parse(&e); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	level, err := zap.ParseAtomicLevel(e.LogLevel)
	if err != nil {
		return Config{}, fmt.Errorf("key: LOG_LEVEL: %w", err)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = level
	logger, err := zapConfig.Build()
	if err != nil {
		return Config{}, err
	}

	correlationConfig := correlation.Config{
		HeaderName:         e.HeaderName,
		EnforceHeader:      e.EnforceHeader,
		ResponseHeaderName: e.ResponseHeaderName,
		IncludeInResponse:  e.IncludeInResponse,
	}
	if err := correlationConfig.Validate(); err != nil {
		return Config{}, err
	}

	accessLogFormat := e.AccessLogFormat
	if accessLogFormat == "" {
		accessLogFormat = DefaultAccessLogFormat
	}

	var upstream *url.URL
	if e.UpstreamURL != "" {
		upstream, err = url.Parse(e.UpstreamURL)
		if err != nil {
			return Config{}, fmt.Errorf("key: UPSTREAM_URL: %w", err)
		}
	}

	return Config{
		Logger:          logger,
		Port:            e.Port,
		ShutdownTimeout: e.ShutdownTimeout,
		Correlation:     correlationConfig,
		AccessLogFormat: accessLogFormat,
		UpstreamURL:     upstream,
		MetricsEnabled:  e.MetricsEnabled,
	}, nil
}
