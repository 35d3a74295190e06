package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/subsync/pkg/logger"
	"github.com/dmitrymomot/subsync/pkg/requestid"
)

// ErrorMapper translates domain errors into HTTPError values. It returns the
// input unchanged when it does not recognise the error.
type ErrorMapper func(error) error

// ErrorInfo contains classified error information.
type ErrorInfo struct {
	StatusCode int
	Key        string
	Message    string
	Fields     map[string][]string
	LogLevel   slog.Level
}

func (i ErrorInfo) body() errorBody {
	return errorBody{Error: i.Message, Code: i.Key, Fields: i.Fields}
}

func classify(err error) ErrorInfo {
	info := ErrorInfo{
		StatusCode: http.StatusInternalServerError,
		Key:        ErrInternalServerError.Key,
		Message:    "Internal server error",
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		info.StatusCode = httpErr.Code
		info.Key = httpErr.Key
		info.Message = httpErr.Error()
	}

	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		info.StatusCode = http.StatusBadRequest
		info.Key = "validation_error"
		info.Message = validationErr.Error()
		info.Fields = validationErr
	}

	info.LogLevel = slog.LevelError
	if info.StatusCode < http.StatusInternalServerError {
		info.LogLevel = slog.LevelWarn
	}
	return info
}

// NewErrorHandler logs every failure (4xx at WARN, 5xx at ERROR) and renders
// it as {"error": message, "code": key}. Server error messages are never
// exposed unless they come from an HTTPError.
func NewErrorHandler(log *slog.Logger, mappers ...ErrorMapper) ErrorHandler {
	if log == nil {
		log = logger.Discard()
	}
	return func(ctx Context, err error) {
		mapped := err
		for _, m := range mappers {
			mapped = m(mapped)
		}
		info := classify(mapped)

		r := ctx.Request()
		log.LogAttrs(r.Context(), info.LogLevel, "request error",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", info.StatusCode),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		if werr := writeJSON(ctx.ResponseWriter(), info.StatusCode, info.body()); werr != nil {
			log.ErrorContext(r.Context(), "failed to write error response", logger.Error(werr))
		}
	}
}
