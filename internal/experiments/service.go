package experiments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/prepjourney/prepjourney-backend/internal/bucketing"
	dbpkg "github.com/prepjourney/prepjourney-backend/pkg/db"
	"github.com/prepjourney/prepjourney-backend/pkg/db/models"
	"github.com/prepjourney/prepjourney-backend/pkg/enums"
	pkgerrors "github.com/prepjourney/prepjourney-backend/pkg/errors"
	"github.com/prepjourney/prepjourney-backend/pkg/logger"
	"github.com/prepjourney/prepjourney-backend/pkg/outbox"
	"github.com/prepjourney/prepjourney-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages experiment configuration and lifecycle.
type Service struct {
	repo   Repository
	db     txRunner
	events eventEmitter
	logg   *logger.Logger
}

// NewService wires the experiment service.
func NewService(repo Repository, db txRunner, events eventEmitter, logg *logger.Logger) *Service {
	return &Service{repo: repo, db: db, events: events, logg: logg}
}

// Create registers a new experiment in draft state. The traffic split is
// validated the same way the assigner will consume it, so a stored experiment
// can always be bucketed.
func (s *Service) Create(ctx context.Context, params CreateParams) (*View, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "experiment name is required")
	}
	if _, err := bucketing.NewAssigner(params.TrafficSplit); err != nil {
		return nil, err
	}

	splitJSON, err := json.Marshal(params.TrafficSplit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding traffic split")
	}

	experiment := &models.Experiment{
		Name:         name,
		Description:  params.Description,
		Status:       enums.ExperimentStatusDraft,
		TrafficSplit: splitJSON,
	}
	if err := s.repo.Create(ctx, experiment); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("experiment %q already exists", name))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating experiment")
	}

	logCtx := s.logg.WithExperiment(ctx, name)
	s.logg.Info(logCtx, "experiment created")
	return viewFromModel(experiment)
}

// Get returns one experiment by name.
func (s *Service) Get(ctx context.Context, name string) (*View, error) {
	experiment, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading experiment")
	}
	if experiment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("experiment %q not found", name))
	}
	return viewFromModel(experiment)
}

// List returns a cursor-paginated page of experiments.
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.List(ctx, ListQuery{
		Status: params.Status,
		Limit:  params.Limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing experiments")
	}

	result := &ListResult{Experiments: make([]View, 0, len(rows))}
	for i := range rows {
		view, err := viewFromModel(&rows[i])
		if err != nil {
			return nil, err
		}
		result.Experiments = append(result.Experiments, *view)
	}
	if next != nil {
		encoded := pagination.EncodeCursor(*next)
		result.NextCursor = &encoded
	}
	return result, nil
}

// UpdateSplit replaces the traffic split. Concluded experiments are frozen;
// running ones may change their split, which only affects users who have not
// been assigned yet.
func (s *Service) UpdateSplit(ctx context.Context, params UpdateSplitParams) (*View, error) {
	if _, err := bucketing.NewAssigner(params.TrafficSplit); err != nil {
		return nil, err
	}

	experiment, err := s.repo.FindByName(ctx, params.Name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading experiment")
	}
	if experiment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("experiment %q not found", params.Name))
	}
	if experiment.Status == enums.ExperimentStatusConcluded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "concluded experiments cannot change their split")
	}

	splitJSON, err := json.Marshal(params.TrafficSplit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding traffic split")
	}
	experiment.TrafficSplit = splitJSON
	if err := s.repo.Save(ctx, experiment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving experiment")
	}

	logCtx := s.logg.WithExperiment(ctx, experiment.Name)
	s.logg.Info(logCtx, "experiment split updated")
	return viewFromModel(experiment)
}

// Transition moves the experiment along draft -> running -> concluded and
// emits a status-changed event atomically with the update.
func (s *Service) Transition(ctx context.Context, params TransitionParams) (*View, error) {
	if !params.To.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid target status %q", params.To))
	}

	experiment, err := s.repo.FindByName(ctx, params.Name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading experiment")
	}
	if experiment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("experiment %q not found", params.Name))
	}
	if !experiment.Status.CanTransitionTo(params.To) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot transition experiment from %s to %s", experiment.Status, params.To))
	}

	from := experiment.Status
	experiment.Status = params.To

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, experiment); err != nil {
			return err
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventExperimentStatusChanged,
			AggregateType: enums.AggregateExperiment,
			AggregateID:   experiment.ID,
			Version:       1,
			Data: outbox.ExperimentStatusChangedV1{
				ExperimentName: experiment.Name,
				FromStatus:     string(from),
				ToStatus:       string(params.To),
			},
		}
		if params.AdminID != "" {
			event.Actor = &outbox.ActorRef{AdminID: params.AdminID, Role: string(enums.AdminRoleAdmin)}
		}
		return s.events.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transitioning experiment")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"experiment": experiment.Name,
		"from":       from,
		"to":         params.To,
	})
	s.logg.Info(logCtx, "experiment status changed")
	return viewFromModel(experiment)
}

// AssignerFor builds the assigner from the stored split. The boolean reports
// whether the experiment is currently accepting new assignments.
func (s *Service) AssignerFor(ctx context.Context, name string) (*bucketing.Assigner, bool, error) {
	experiment, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading experiment")
	}
	if experiment == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("experiment %q not found", name))
	}

	var split map[string]int
	if err := json.Unmarshal(experiment.TrafficSplit, &split); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding traffic split")
	}
	assigner, err := bucketing.NewAssigner(split)
	if err != nil {
		return nil, false, err
	}
	return assigner, experiment.Status == enums.ExperimentStatusRunning, nil
}

func viewFromModel(experiment *models.Experiment) (*View, error) {
	var split map[string]int
	if len(experiment.TrafficSplit) > 0 {
		if err := json.Unmarshal(experiment.TrafficSplit, &split); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding traffic split")
		}
	}
	return &View{
		ID:           experiment.ID,
		Name:         experiment.Name,
		Description:  experiment.Description,
		Status:       experiment.Status,
		TrafficSplit: split,
		CreatedAt:    experiment.CreatedAt,
		UpdatedAt:    experiment.UpdatedAt,
	}, nil
}
