package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"classfees/internal/log"
)

type contextKey struct{}

// RequireOperator rejects requests without a valid operator token with 401.
func (a *Authenticator) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.Verify(BearerToken(r.Header.Get("Authorization")))
		if err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected unauthorized request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldError, err.Error())
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer realm="classfees"`)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": err.Error(),
				"kind":  "authorization",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
	})
}

// ClaimsFrom returns the verified claims stored by RequireOperator.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok
}
