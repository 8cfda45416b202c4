// Package accesslog writes one formatted line per completed request.
//
// Formats use Apache style directives:
//
//	%%         literal percent sign
//	%a         remote IP address
//	%t         time the request started (RFC 3339)
//	%r         first line of the request
//	%s         response status code
//	%b         response body size in bytes
//	%T         time taken to serve the request, in seconds
//	%D         time taken to serve the request, in milliseconds
//	%U         URL path
//	%{NAME}i   request header NAME
//	%{NAME}o   response header NAME
//	%{NAME}e   environment variable NAME
//	%{LABEL}xi value of the custom request replacement registered as LABEL
//
// Empty values render as "-".
package accesslog

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eskrenkovic/correlation-go/internal/modules/core"

	"github.com/felixge/httpsnoop"
	"go.uber.org/zap"
)

const (
	DefaultFormat = `%a "%r" %s %b "%{Referer}i" "%{User-Agent}i" %T`
	placeholder   = "-"
)

var _ core.Filter = (*Logger)(nil)

// Logger is configured once, before it serves requests; the builder
// methods are not safe to call concurrently with Intercept.
type Logger struct {
	units     []unit
	logger    *zap.Logger
	replacers map[string]func(*http.Request) string
	prepare   []func(*http.Request) *http.Request
}

func New(format string, logger *zap.Logger) (*Logger, error) {
	units, err := parse(format)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Logger{
		units:     units,
		logger:    logger,
		replacers: map[string]func(*http.Request) string{},
	}, nil
}

// CustomRequestReplace makes %{label}xi render fn's result for the request.
func (l *Logger) CustomRequestReplace(label string, fn func(*http.Request) string) *Logger {
	l.replacers[label] = fn
	return l
}

// PrepareRequest registers fn to run on each request before it is passed
// downstream. The request fn returns is the one later replacements see.
func (l *Logger) PrepareRequest(fn func(*http.Request) *http.Request) *Logger {
	l.prepare = append(l.prepare, fn)
	return l
}

func (l *Logger) Middleware() func(http.Handler) http.Handler {
	return core.Middleware(l)
}

func (l *Logger) Intercept(w http.ResponseWriter, r *http.Request, next http.Handler) {
	for _, fn := range l.prepare {
		r = fn(r)
	}

	start := time.Now()
	metrics := httpsnoop.CaptureMetricsFn(w, func(ww http.ResponseWriter) {
		next.ServeHTTP(ww, r)
	})

	line := l.render(record{
		request:        r,
		responseHeader: w.Header(),
		start:          start,
		metrics:        metrics,
	})

	l.logger.Info(line,
		zap.Int("status", metrics.Code),
		zap.Duration("duration", metrics.Duration),
	)
}

type record struct {
	request        *http.Request
	responseHeader http.Header
	start          time.Time
	metrics        httpsnoop.Metrics
}

func (l *Logger) render(rec record) string {
	var b strings.Builder
	for _, u := range l.units {
		if u.directive == literal {
			b.WriteString(u.text)
			continue
		}

		value := l.value(u, rec)
		if value == "" {
			value = placeholder
		}
		b.WriteString(value)
	}

	return b.String()
}

func (l *Logger) value(u unit, rec record) string {
	r := rec.request

	switch u.directive {
	case remoteIP:
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	case startTime:
		return rec.start.Format(time.RFC3339)
	case requestLine:
		return r.Method + " " + r.URL.RequestURI() + " " + r.Proto
	case status:
		return strconv.Itoa(rec.metrics.Code)
	case bytesWritten:
		return strconv.FormatInt(rec.metrics.Written, 10)
	case durationSeconds:
		return strconv.FormatFloat(rec.metrics.Duration.Seconds(), 'f', 6, 64)
	case durationMillis:
		ms := float64(rec.metrics.Duration) / float64(time.Millisecond)
		return strconv.FormatFloat(ms, 'f', 6, 64)
	case urlPath:
		return r.URL.Path
	case requestHeader:
		return r.Header.Get(u.text)
	case responseHeader:
		return rec.responseHeader.Get(u.text)
	case environment:
		return os.Getenv(u.text)
	case customRequest:
		if fn, ok := l.replacers[u.text]; ok {
			return fn(r)
		}
		return ""
	default:
		return ""
	}
}
