// Package middleware holds the HTTP middleware that needs the domain stack:
// signature verification, panic recovery, and request logging.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"landlock/internal/platform/replay"
	"landlock/internal/tokens"
	dErrors "landlock/pkg/domain-errors"
	"landlock/pkg/platform/httputil"
	"landlock/pkg/requestcontext"
)

// RequireSignature verifies the self-certifying bearer token and pins its jti
// against the replay guard. The verified caller key lands in the request
// context; downstream services trust it as the signature oracle's answer.
func RequireSignature(guard replay.Guard, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := tokens.Validate(raw)
			if err != nil {
				logger.WarnContext(ctx, "rejected bearer token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			if guard != nil {
				first, err := guard.FirstUse(ctx, claims.JTI, time.Until(claims.ExpiresAt))
				if err != nil {
					logger.ErrorContext(ctx, "replay guard unavailable",
						"error", err,
						"request_id", requestcontext.RequestID(ctx),
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to validate token"))
					return
				}
				if !first {
					logger.WarnContext(ctx, "replayed bearer token",
						"jti", claims.JTI,
						"request_id", requestcontext.RequestID(ctx),
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token already used"))
					return
				}
			}

			ctx = requestcontext.WithCaller(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
