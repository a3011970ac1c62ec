package http

import (
	"net/http"
	"strconv"
	"strings"

	"bolsya/internal/auth"
	"bolsya/internal/log"
)

// requireAuth admits requests carrying a valid bearer token and stores the
// user id on the context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="bolsya"`)
			writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}

		claims, err := s.issuer.Parse(strings.TrimSpace(token))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="bolsya", error="invalid_token"`)
			log.FromContext(r.Context()).WithComponent(log.ComponentAuth).
				WarnContext(r.Context(), "Rejected token", log.FieldError, err.Error())
			writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "invalid or expired token"})
			return
		}

		ctx := auth.WithUserID(r.Context(), claims.UserID)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, claims.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authUserID(r *http.Request) (int64, bool) {
	return auth.UserIDFromContext(r.Context())
}

// chatLimitKey keys the chat limiter by authenticated user.
func chatLimitKey(r *http.Request) string {
	if id, ok := authUserID(r); ok {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return ""
}
