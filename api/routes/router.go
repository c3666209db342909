package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prepjourney/prepjourney-backend/api/controllers"
	webhookcontrollers "github.com/prepjourney/prepjourney-backend/api/controllers/webhooks"
	"github.com/prepjourney/prepjourney-backend/api/middleware"
	"github.com/prepjourney/prepjourney-backend/internal/assignments"
	"github.com/prepjourney/prepjourney-backend/internal/conversions"
	"github.com/prepjourney/prepjourney-backend/internal/experiments"
	"github.com/prepjourney/prepjourney-backend/internal/insights"
	"github.com/prepjourney/prepjourney-backend/pkg/config"
	"github.com/prepjourney/prepjourney-backend/pkg/db"
	"github.com/prepjourney/prepjourney-backend/pkg/logger"
	"github.com/prepjourney/prepjourney-backend/pkg/metrics"
	"github.com/prepjourney/prepjourney-backend/pkg/redis"
	"github.com/prepjourney/prepjourney-backend/pkg/square"
)

// Params bundles the dependencies the router wires into handlers.
type Params struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *redis.Client
	Gatherer     prometheus.Gatherer
	Metrics      *metrics.ExperimentMetrics
	Experiments  *experiments.Service
	Assignments  *assignments.Service
	Insights     *insights.Service
	Conversions  *conversions.Service
	Square       *square.Client
	WebhookGuard *conversions.Guard
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/v1/ping", controllers.PublicPing())

	r.Route("/v1/webhooks", func(r chi.Router) {
		r.Post("/square", webhookcontrollers.SquareWebhook(p.Conversions, p.Square, p.WebhookGuard, p.Metrics, logg))
	})

	// Visitor-facing variant resolution. Never admin-gated; identity comes
	// from the X-PJ-User header or the request body.
	r.Route("/v1/experiments", func(r chi.Router) {
		r.Use(middleware.ServiceKey(cfg.APIKey, logg))
		r.Use(middleware.VisitorContext(logg))
		r.Post("/{experimentName}/variant", controllers.ResolveVariant(p.Assignments, logg))
		r.Post("/variants/sync", controllers.SyncVariants(p.Assignments, logg))
	})

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))
		r.Get("/ping", controllers.AdminPing())

		r.Get("/users/{userID}/assignments", controllers.AssignmentListByUser(p.Assignments, logg))

		r.Route("/experiments", func(r chi.Router) {
			r.Get("/", controllers.ExperimentList(p.Experiments, logg))
			r.With(middleware.RequireWrite(logg)).Post("/", controllers.ExperimentCreate(p.Experiments, logg))

			r.Route("/{experimentName}", func(r chi.Router) {
				r.Get("/", controllers.ExperimentGet(p.Experiments, logg))
				r.With(middleware.RequireWrite(logg)).Put("/split", controllers.ExperimentUpdateSplit(p.Experiments, logg))
				r.With(middleware.RequireWrite(logg)).Post("/transition", controllers.ExperimentTransition(p.Experiments, logg))

				r.Get("/metrics", controllers.ExperimentMetrics(p.Insights, logg))
				r.Get("/metrics/export", controllers.ExperimentMetricsExport(p.Insights, logg))

				r.Route("/assignments", func(r chi.Router) {
					r.Get("/", controllers.AssignmentList(p.Assignments, logg))
					r.With(middleware.RequireWrite(logg)).Post("/force", controllers.AssignmentForce(p.Assignments, logg))
				})
			})
		})
	})

	return r
}
