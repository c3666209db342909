package conversions

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/prepjourney/prepjourney-backend/internal/repo"
	"github.com/prepjourney/prepjourney-backend/pkg/db/models"
)

// Repository handles the append-only purchase_records table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.PurchaseRecord) error
	FindBySquarePaymentID(ctx context.Context, squarePaymentID string) (*models.PurchaseRecord, error)
	ListByUsersInRange(ctx context.Context, userIDs []string, since, until time.Time) ([]models.PurchaseRecord, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a purchase repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.With(tx)}
}

func (r *repository) Create(ctx context.Context, record *models.PurchaseRecord) error {
	return r.DB(ctx).Create(record).Error
}

func (r *repository) FindBySquarePaymentID(ctx context.Context, squarePaymentID string) (*models.PurchaseRecord, error) {
	var record models.PurchaseRecord
	if err := r.DB(ctx).
		Where("square_payment_id = ?", squarePaymentID).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListByUsersInRange(ctx context.Context, userIDs []string, since, until time.Time) ([]models.PurchaseRecord, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	query := r.DB(ctx).
		Where("user_id IN ?", userIDs)
	if !since.IsZero() {
		query = query.Where("occurred_at >= ?", since)
	}
	if !until.IsZero() {
		query = query.Where("occurred_at <= ?", until)
	}
	var rows []models.PurchaseRecord
	err := query.Order("occurred_at ASC").Find(&rows).Error
	return rows, err
}
