package middlewares

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the id generated for every outgoing request.
const RequestIDHeader = "X-Request-ID"

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls f(r).
func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// LoggingTransport returns a middleware that logs outgoing requests and their responses
// using the provided SugaredLogger. It also tags each request with a unique request ID.
func LoggingTransport(log *zap.SugaredLogger) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			reqID := uuid.New().String()

			// RoundTrippers must not modify the caller's request
			r = r.Clone(r.Context())
			r.Header.Set(RequestIDHeader, reqID)

			start := time.Now()
			log.Infow("request",
				"request_id", reqID,
				"method", r.Method,
				"uri", r.URL.String(),
			)

			resp, err := next.RoundTrip(r)
			duration := time.Since(start)

			if err != nil {
				log.Errorw("request failed",
					"request_id", reqID,
					"duration", duration,
					"error", err,
				)
				return nil, err
			}

			log.Infow("response",
				"request_id", reqID,
				"status", resp.StatusCode,
				"duration", duration,
				"content_length", resp.ContentLength,
			)
			return resp, nil
		})
	}
}
