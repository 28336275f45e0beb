package auth

import (
	"context"
	"net/http"
	"strings"

	"payboard/internal/core"
)

type contextKey struct{}

// WithSession stores info in ctx.
func WithSession(ctx context.Context, info *core.SessionInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// SessionFromContext returns the session stored by Require.
func SessionFromContext(ctx context.Context) (*core.SessionInfo, bool) {
	info, ok := ctx.Value(contextKey{}).(*core.SessionInfo)
	return info, ok && info != nil
}

// Require rejects requests without a session. API and JSON requests get a
// 401 JSON body; browser requests are redirected to loginPath.
func Require(g Gate, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, ok := g.CurrentSession(r)
			if !ok {
				if wantsJSON(r) {
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusUnauthorized)
					_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
					return
				}
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), info)))
		})
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
