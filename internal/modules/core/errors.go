package core

import "fmt"

type ResponseError struct {
	StatusCode int     `json:"status_code"`
	Message    string  `json:"message"`
	Reason     *string `json:"reason,omitempty"`
}

type ResponseErrorOption func(*ResponseError)

func WithReason(reason string) ResponseErrorOption {
	return func(e *ResponseError) {
		e.Reason = &reason
	}
}

func NewResponseError(statusCode int, message string, opts ...ResponseErrorOption) ResponseError {
	e := ResponseError{
		StatusCode: statusCode,
		Message:    message,
	}

	for _, opt := range opts {
		opt(&e)
	}

	return e
}

func (e ResponseError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("%d: %s: %s", e.StatusCode, e.Message, *e.Reason)
	}

	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}
