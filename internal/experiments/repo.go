package experiments

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/prepjourney/prepjourney-backend/internal/repo"
	"github.com/prepjourney/prepjourney-backend/pkg/db/models"
	"github.com/prepjourney/prepjourney-backend/pkg/enums"
	"github.com/prepjourney/prepjourney-backend/pkg/pagination"
)

// Repository handles experiment persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, experiment *models.Experiment) error
	FindByName(ctx context.Context, name string) (*models.Experiment, error)
	List(ctx context.Context, params ListQuery) ([]models.Experiment, *pagination.Cursor, error)
	Save(ctx context.Context, experiment *models.Experiment) error
}

// ListQuery configures experiment list queries.
type ListQuery struct {
	Status *enums.ExperimentStatus
	Limit  int
	Cursor *pagination.Cursor
}

type repository struct {
	repo.Base
}

// NewRepository returns an experiment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.With(tx)}
}

func (r *repository) Create(ctx context.Context, experiment *models.Experiment) error {
	return r.DB(ctx).Create(experiment).Error
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.Experiment, error) {
	var experiment models.Experiment
	if err := r.DB(ctx).
		Where("name = ?", name).
		First(&experiment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &experiment, nil
}

func (r *repository) List(ctx context.Context, params ListQuery) ([]models.Experiment, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.DB(ctx).Model(&models.Experiment{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var rows []models.Experiment
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

func (r *repository) Save(ctx context.Context, experiment *models.Experiment) error {
	return r.DB(ctx).Save(experiment).Error
}
