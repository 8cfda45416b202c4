package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// WriteText writes body verbatim as text/plain.
func WriteText(w http.ResponseWriter, r *http.Request, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(body)); err != nil {
		LogError(r.Context(), "failed to write response", zap.Error(err))
	}
}

func WriteBadRequest(w http.ResponseWriter, r *http.Request, body interface{}) {
	WriteResponse(w, r, http.StatusBadRequest, body)
}

func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var responseErr ResponseError
	if errors.As(err, &responseErr) {
		WriteResponse(w, r, responseErr.StatusCode, responseErr)
		return
	}

	WriteResponse(w, r, http.StatusInternalServerError, err)
}

func WriteResponse(w http.ResponseWriter, r *http.Request, statusCode int, body interface{}) {
	if body != nil {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(statusCode)
	writeBodyIfPresent(r.Context(), w, body)
}

func writeBodyIfPresent(ctx context.Context, w http.ResponseWriter, body interface{}) {
	if body == nil {
		return
	}

	// Plain errors marshal into an empty object.
	if err, ok := body.(error); ok {
		if _, isResponseErr := err.(ResponseError); !isResponseErr {
			body = struct {
				Message string `json:"message"`
			}{Message: err.Error()}
		}
	}

	responseBytes, err := json.Marshal(body)
	if err != nil {
		LogError(ctx, "failed to serialize response", zap.Error(err))
		return
	}

	if _, err := w.Write(responseBytes); err != nil {
		LogError(ctx, "failed to write response", zap.Error(err))
	}
}
