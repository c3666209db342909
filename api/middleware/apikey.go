package middleware

import (
	"net/http"
	"strings"

	"github.com/prepjourney/prepjourney-backend/api/responses"
	"github.com/prepjourney/prepjourney-backend/pkg/config"
	pkgerrors "github.com/prepjourney/prepjourney-backend/pkg/errors"
	"github.com/prepjourney/prepjourney-backend/pkg/logger"
	"github.com/prepjourney/prepjourney-backend/pkg/security"
)

// ServiceKeyHeader carries the server-to-server API key for visitor endpoints.
const ServiceKeyHeader = "X-PJ-API-Key"

// ServiceKey gates requests behind the configured Argon2id service key hash.
// When no hash is configured the middleware is a pass-through, which keeps
// local development and sandbox deployments key-free.
func ServiceKey(cfg config.APIKeyConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.ServiceKeyHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get(ServiceKeyHeader))
			if key == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "service api key required"))
				return
			}

			ok, err := security.VerifyAPIKey(key, cfg.ServiceKeyHash)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify service api key"))
				return
			}
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid service api key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
