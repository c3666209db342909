package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/prepjourney/prepjourney-backend/api/middleware"
	"github.com/prepjourney/prepjourney-backend/api/responses"
	"github.com/prepjourney/prepjourney-backend/api/validators"
	"github.com/prepjourney/prepjourney-backend/internal/assignments"
	pkgerrors "github.com/prepjourney/prepjourney-backend/pkg/errors"
	"github.com/prepjourney/prepjourney-backend/pkg/logger"
)

// Caps free-form visitor identifiers before they reach storage keys.
const maxUserIDLen = 128

type variantService interface {
	GetUnifiedVariant(ctx context.Context, userID, experimentName string) assignments.VariantResult
	SyncAllVariantsToRemote(ctx context.Context, userID string, experimentNames []string) ([]assignments.SyncOutcome, error)
}

type resolveVariantRequest struct {
	UserID string `json:"user_id"`
}

type resolveVariantResponse struct {
	Variant string `json:"variant"`
	IsNew   bool   `json:"is_new"`
	Source  string `json:"source"`
	Warning string `json:"warning,omitempty"`
}

// ResolveVariant answers the visitor-facing variant lookup. Storage trouble
// never fails the request; the caller always gets a usable variant.
func ResolveVariant(svc variantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		experimentName := strings.TrimSpace(chi.URLParam(r, "experimentName"))
		if experimentName == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "experiment name is required"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" && r.ContentLength != 0 {
			var payload resolveVariantRequest
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			userID = validators.SanitizeString(payload.UserID, maxUserIDLen)
		}
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user identifier is required"))
			return
		}

		result := svc.GetUnifiedVariant(r.Context(), userID, experimentName)

		resp := resolveVariantResponse{
			Variant: result.Variant,
			IsNew:   result.IsNew,
			Source:  string(result.Source),
		}
		if result.Err != nil {
			resp.Warning = result.Err.Error()
		}
		responses.WriteSuccess(w, resp)
	}
}

type syncVariantsRequest struct {
	UserID      string   `json:"user_id"`
	Experiments []string `json:"experiments"`
}

// SyncVariants pushes a user's cached assignments to the authoritative store,
// typically right after login ties an anonymous id to an account.
func SyncVariants(svc variantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		var payload syncVariantsRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			userID = validators.SanitizeString(payload.UserID, maxUserIDLen)
		}
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user identifier is required"))
			return
		}

		outcomes, err := svc.SyncAllVariantsToRemote(r.Context(), userID, payload.Experiments)

		resp := map[string]any{"results": outcomes}
		if err != nil {
			// Sync is best-effort: partial failure is reported, not raised.
			resp["warning"] = err.Error()
		}
		responses.WriteSuccess(w, resp)
	}
}
