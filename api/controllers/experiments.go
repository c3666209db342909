package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/prepjourney/prepjourney-backend/api/middleware"
	"github.com/prepjourney/prepjourney-backend/api/responses"
	"github.com/prepjourney/prepjourney-backend/api/validators"
	"github.com/prepjourney/prepjourney-backend/internal/experiments"
	"github.com/prepjourney/prepjourney-backend/pkg/enums"
	pkgerrors "github.com/prepjourney/prepjourney-backend/pkg/errors"
	"github.com/prepjourney/prepjourney-backend/pkg/logger"
	"github.com/prepjourney/prepjourney-backend/pkg/pagination"
)

type experimentService interface {
	Create(ctx context.Context, params experiments.CreateParams) (*experiments.View, error)
	Get(ctx context.Context, name string) (*experiments.View, error)
	List(ctx context.Context, params experiments.ListParams) (*experiments.ListResult, error)
	UpdateSplit(ctx context.Context, params experiments.UpdateSplitParams) (*experiments.View, error)
	Transition(ctx context.Context, params experiments.TransitionParams) (*experiments.View, error)
}

type experimentCreateRequest struct {
	Name         string         `json:"name" validate:"required,min=3,max=120"`
	Description  *string        `json:"description"`
	TrafficSplit map[string]int `json:"traffic_split"`
}

// ExperimentCreate registers a draft experiment. An omitted traffic split
// gets the default even four-way paywall split.
func ExperimentCreate(svc experimentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "experiment service unavailable"))
			return
		}

		var payload experimentCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Create(r.Context(), experiments.CreateParams{
			Name:         payload.Name,
			Description:  payload.Description,
			TrafficSplit: payload.TrafficSplit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func ExperimentGet(svc experimentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "experiment service unavailable"))
			return
		}

		view, err := svc.Get(r.Context(), chi.URLParam(r, "experimentName"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func ExperimentList(svc experimentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "experiment service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := experiments.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseExperimentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid experiment status"))
				return
			}
			params.Status = &status
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type experimentSplitRequest struct {
	TrafficSplit map[string]int `json:"traffic_split" validate:"required"`
}

func ExperimentUpdateSplit(svc experimentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "experiment service unavailable"))
			return
		}

		var payload experimentSplitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.UpdateSplit(r.Context(), experiments.UpdateSplitParams{
			Name:         chi.URLParam(r, "experimentName"),
			TrafficSplit: payload.TrafficSplit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type experimentTransitionRequest struct {
	To string `json:"to" validate:"required"`
}

func ExperimentTransition(svc experimentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "experiment service unavailable"))
			return
		}

		var payload experimentTransitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		to, err := enums.ParseExperimentStatus(strings.TrimSpace(payload.To))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status"))
			return
		}

		view, err := svc.Transition(r.Context(), experiments.TransitionParams{
			Name:    chi.URLParam(r, "experimentName"),
			To:      to,
			AdminID: middleware.AdminIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
