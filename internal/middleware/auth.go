package middleware

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/database"
	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/request"
	"github.com/taskping/taskping/internal/services/oidc"
)

// Auth creates authentication middleware that validates bearer tokens and
// provisions accounts lazily: the first verified token for an unknown
// subject creates the user row.
func Auth(verifier *oidc.Verifier, users database.UserRepositoryInterface, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondAuthError(w, http.StatusUnauthorized, "Missing Authorization header", logger)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondAuthError(w, http.StatusUnauthorized, "Invalid Authorization header format", logger)
				return
			}

			ctx := r.Context()
			claims, err := verifier.Verify(ctx, parts[1])
			if err != nil {
				logger.Warn("token_verification_failed", zap.Error(err))
				respondAuthError(w, http.StatusUnauthorized, "Invalid or expired token", logger)
				return
			}

			user, err := users.GetByProviderID(ctx, claims.Sub)
			switch {
			case err == nil:
				// known user, fall through
			case errors.Is(err, sql.ErrNoRows):
				user = &models.User{
					ID:            uuid.New(),
					Email:         claims.Email,
					ProviderID:    &claims.Sub,
					EmailVerified: true,
				}
				if claims.Name != "" {
					name := claims.Name
					user.Name = &name
				}
				if err := users.Create(ctx, user); err != nil {
					logger.Error("user_provisioning_failed", zap.Error(err))
					respondAuthError(w, http.StatusInternalServerError, "Failed to create user", logger)
					return
				}
				logger.Info("user_provisioned", zap.String("user_id", user.ID.String()))
			default:
				logger.Error("user_lookup_failed", zap.Error(err))
				respondAuthError(w, http.StatusInternalServerError, "Database error", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func respondAuthError(w http.ResponseWriter, status int, message string, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed_to_encode_error_response", zap.Error(err))
	}
}
