package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	request "charity/pkg/platform/middleware/request"
	"charity/pkg/requestcontext"
)

// RoleVerifier is the role a token must carry to verify projects.
const RoleVerifier = "verifier"

// VerifierValidator validates bearer tokens presented by verification authorities.
type VerifierValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims represents the claims the middleware needs from a validated token.
type Claims struct {
	Subject string
	Role    string
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireVerifier admits only requests carrying a valid bearer token with the
// verifier role. The token subject is stored as the request caller.
func RequireVerifier(validator VerifierValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized verification - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized verification - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}
			if claims.Role != RoleVerifier {
				logger.WarnContext(ctx, "forbidden verification - missing verifier role",
					"subject", claims.Subject,
					"role", claims.Role,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Verifier role required")
				return
			}

			ctx = requestcontext.WithCaller(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
