package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prepjourney/prepjourney-backend/api/middleware"
	"github.com/prepjourney/prepjourney-backend/api/responses"
	"github.com/prepjourney/prepjourney-backend/api/validators"
	"github.com/prepjourney/prepjourney-backend/internal/assignments"
	pkgerrors "github.com/prepjourney/prepjourney-backend/pkg/errors"
	"github.com/prepjourney/prepjourney-backend/pkg/logger"
)

type assignmentAdminService interface {
	ListByExperiment(ctx context.Context, experimentName string, since, until time.Time) ([]assignments.AssignmentView, error)
	ListByUser(ctx context.Context, userID string) ([]assignments.AssignmentView, error)
	ForceAssignVariant(ctx context.Context, userID, experimentName, variant, adminID string) (*assignments.AssignmentView, error)
}

// AssignmentList shows the stored assignments for one experiment, forced
// overrides included and flagged.
func AssignmentList(svc assignmentAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		since, err := validators.ParseQueryTime(r, "start")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		until, err := validators.ParseQueryTime(r, "end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views, err := svc.ListByExperiment(r.Context(), chi.URLParam(r, "experimentName"), since, until)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"assignments": views})
	}
}

// AssignmentListByUser shows one user's assignments across experiments,
// typically for support lookups.
func AssignmentListByUser(svc assignmentAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		views, err := svc.ListByUser(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"assignments": views})
	}
}

type forceAssignRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Variant string `json:"variant" validate:"required"`
}

// AssignmentForce pins a user to a variant for QA, bypassing the bucketer.
func AssignmentForce(svc assignmentAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		var payload forceAssignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ForceAssignVariant(
			r.Context(),
			validators.SanitizeString(payload.UserID, maxUserIDLen),
			chi.URLParam(r, "experimentName"),
			payload.Variant,
			middleware.AdminIDFromContext(r.Context()),
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}
