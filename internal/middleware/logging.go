package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/gigboard/internal/metrics"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It logs the procedure name, user ID, duration, and any error codes/messages,
// and counts the call in the HTTP request metrics when m is non-nil.
func LoggingInterceptor(logger *slog.Logger, m *metrics.Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			userID := GetUserID(ctx) // empty if anonymous
			requestID := GetRequestID(ctx)

			resp, err := next(ctx, req)

			elapsed := time.Since(start)
			code := "ok"
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					code = connectErr.Code().String()
					logger.Warn("RPC error",
						"procedure", procedure,
						"code", connectErr.Code(),
						"error", connectErr.Message(),
						"user_id", userID,
						"request_id", requestID,
						"duration_ms", elapsed.Milliseconds(),
					)
				} else {
					code = connect.CodeUnknown.String()
					logger.Error("RPC error",
						"procedure", procedure,
						"error", err,
						"user_id", userID,
						"request_id", requestID,
						"duration_ms", elapsed.Milliseconds(),
					)
				}
			} else {
				logger.Info("RPC ok",
					"procedure", procedure,
					"user_id", userID,
					"request_id", requestID,
					"duration_ms", elapsed.Milliseconds(),
				)
			}

			if m != nil {
				m.HTTPRequests.WithLabelValues("POST", procedure, code).Inc()
				m.HTTPDuration.WithLabelValues("POST", procedure).Observe(elapsed.Seconds())
			}

			return resp, err
		}
	}
}
