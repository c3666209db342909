package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prepjourney/prepjourney-backend/api/responses"
	"github.com/prepjourney/prepjourney-backend/api/validators"
	"github.com/prepjourney/prepjourney-backend/internal/insights"
	pkgerrors "github.com/prepjourney/prepjourney-backend/pkg/errors"
	"github.com/prepjourney/prepjourney-backend/pkg/logger"
)

type insightsService interface {
	Report(ctx context.Context, params insights.Params) (*insights.Report, error)
}

func reportParams(r *http.Request) (insights.Params, error) {
	start, err := validators.ParseQueryTime(r, "start")
	if err != nil {
		return insights.Params{}, err
	}
	end, err := validators.ParseQueryTime(r, "end")
	if err != nil {
		return insights.Params{}, err
	}
	return insights.Params{
		ExperimentName: chi.URLParam(r, "experimentName"),
		Start:          start,
		End:            end,
	}, nil
}

// ExperimentMetrics computes the per-variant conversion report with the
// significance verdict, fresh on every call.
func ExperimentMetrics(svc insightsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "insights service unavailable"))
			return
		}

		params, err := reportParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Report(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// ExperimentMetricsExport streams the report as a CSV download.
func ExperimentMetricsExport(svc insightsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "insights service unavailable"))
			return
		}

		params, err := reportParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Report(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+insights.CSVFilename(report.ExperimentName)+`"`)
		if err := insights.WriteCSV(w, report); err != nil && logg != nil {
			logg.Error(r.Context(), "stream metrics csv", err)
		}
	}
}
