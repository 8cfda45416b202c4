package core

import (
	"context"
	"net/http"

	"github.com/eskrenkovic/mediator-go"

	"go.uber.org/zap"
)

type loggerContextKey struct{}

// WithLogger attaches logger to ctx so helpers deep in a request can log
// without having it passed around.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// Logger returns the logger attached to ctx, or a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return zap.NewNop()
	}

	logger, ok := ctx.Value(loggerContextKey{}).(*zap.Logger)
	if !ok || logger == nil {
		return zap.NewNop()
	}

	return logger
}

func LogError(ctx context.Context, msg string, fields ...zap.Field) {
	Logger(ctx).Error(msg, fields...)
}

func LoggerMiddleware(logger *zap.Logger) Filter {
	return FilterFunc(func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
	})
}

// FieldFunc derives a log field from the request context.
type FieldFunc func(ctx context.Context) zap.Field

var _ mediator.PipelineBehavior = (*RequestLoggingBehavior)(nil)

type RequestLoggingBehavior struct {
	Fields []FieldFunc
}

func (b *RequestLoggingBehavior) Handle(
	ctx context.Context,
	request interface{},
	next mediator.RequestHandlerFunc,
) (interface{}, error) {
	logFields := contextFields(ctx, b.Fields)

	if request != nil {
		logFields = append(logFields, zap.Any("request_body", request))
	}

	Logger(ctx).Info("processing request", logFields...)

	return next(ctx, request)
}

var _ mediator.PipelineBehavior = (*HandlerErrorLoggingBehavior)(nil)

type HandlerErrorLoggingBehavior struct {
	Fields []FieldFunc
}

func (b *HandlerErrorLoggingBehavior) Handle(
	ctx context.Context,
	request interface{},
	next mediator.RequestHandlerFunc,
) (interface{}, error) {
	response, err := next(ctx, request)
	if err != nil {
		Logger(ctx).Error("handler returned error", append(contextFields(ctx, b.Fields), zap.Error(err))...)
	}

	return response, err
}

func contextFields(ctx context.Context, fns []FieldFunc) []zap.Field {
	fields := make([]zap.Field, 0, len(fns)+1)
	for _, fn := range fns {
		fields = append(fields, fn(ctx))
	}

	return fields
}
