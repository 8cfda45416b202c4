// Package logtoken exposes the bound correlation id to access logs and
// structured handler logs.
package logtoken

import (
	"context"
	"net/http"

	"github.com/eskrenkovic/correlation-go/internal/modules/accesslog"
	"github.com/eskrenkovic/correlation-go/internal/modules/correlation"

	"go.uber.org/zap"
)

// Token is the label used in formats as %{corr-id}xi.
const Token = "corr-id"

const FieldKey = "correlation_id"

// Register makes Token available to l. Requests that never had an id
// bound, such as ones rejected for a missing header, render as "-".
func Register(l *accesslog.Logger) *accesslog.Logger {
	return l.
		PrepareRequest(func(r *http.Request) *http.Request {
			return r.WithContext(correlation.Scope(r.Context()))
		}).
		CustomRequestReplace(Token, func(r *http.Request) string {
			id, ok := correlation.FromContext(r.Context())
			if !ok {
				return ""
			}
			return id.String()
		})
}

func Field(ctx context.Context) zap.Field {
	id, ok := correlation.FromContext(ctx)
	if !ok {
		return zap.Skip()
	}

	return zap.Stringer(FieldKey, id)
}
