package assignments

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepjourney/prepjourney-backend/internal/repo"
	"github.com/prepjourney/prepjourney-backend/pkg/db/models"
)

// Repository handles the authoritative variant_assignments table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, userID, experimentName string) (*models.VariantAssignment, error)
	ListByUser(ctx context.Context, userID string) ([]models.VariantAssignment, error)
	ListByExperiment(ctx context.Context, experimentName string, since, until time.Time) ([]models.VariantAssignment, error)
	Upsert(ctx context.Context, assignment *models.VariantAssignment) error
}

type repository struct {
	repo.Base
}

// NewRepository returns an assignment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.With(tx)}
}

func (r *repository) Find(ctx context.Context, userID, experimentName string) (*models.VariantAssignment, error) {
	var assignment models.VariantAssignment
	if err := r.DB(ctx).
		Where("user_id = ? AND experiment_name = ?", userID, experimentName).
		First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]models.VariantAssignment, error) {
	var rows []models.VariantAssignment
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("experiment_name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByExperiment(ctx context.Context, experimentName string, since, until time.Time) ([]models.VariantAssignment, error) {
	query := r.DB(ctx).
		Where("experiment_name = ?", experimentName)
	if !since.IsZero() {
		query = query.Where("assigned_at >= ?", since)
	}
	if !until.IsZero() {
		query = query.Where("assigned_at <= ?", until)
	}
	var rows []models.VariantAssignment
	err := query.Order("assigned_at ASC").Find(&rows).Error
	return rows, err
}

// Upsert inserts or refreshes the row keyed (user_id, experiment_name).
// Replaying the same assignment is a no-op-shaped update, which keeps sync
// idempotent.
func (r *repository) Upsert(ctx context.Context, assignment *models.VariantAssignment) error {
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "experiment_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"variant", "bucket", "assigned_at", "updated_at",
			}),
		}).
		Create(assignment).Error
}
