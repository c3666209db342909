package middleware

import (
	"net/http"
	"strings"

	"github.com/prepjourney/prepjourney-backend/pkg/logger"
)

// VisitorIDHeader carries the anonymous or authenticated visitor identifier
// minted by the web client.
const VisitorIDHeader = "X-PJ-User"

// VisitorContext seeds the request context with the visitor identifier when
// the header is present. Missing identifiers are not rejected here; handlers
// that need one validate it themselves.
func VisitorContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(VisitorIDHeader))
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
