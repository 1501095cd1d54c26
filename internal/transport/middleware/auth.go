package middleware

import (
	"net/http"

	"github.com/frahmantamala/school-management/internal"
	"github.com/frahmantamala/school-management/pkg/logger"
)

// UserContext tags the request logger with the session user resolved by the auth middleware.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := internal.UserFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(), "userID", user.ID, "role", user.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
