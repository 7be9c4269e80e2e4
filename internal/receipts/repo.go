package receipts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/readerpos/internal/repo"
	"github.com/angelmondragon/readerpos/pkg/db/models"
	"github.com/angelmondragon/readerpos/pkg/pagination"
)

// Repository persists receipts.
type Repository struct {
	repo.Base
}

// NewRepository constructs a receipts repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, receipt *models.Receipt) error {
	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now().UTC()
	}
	return r.DB(ctx).Create(receipt).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := r.DB(ctx).Where("id = ?", id).First(&receipt).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *Repository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := r.DB(ctx).Where("payment_id = ?", paymentID).First(&receipt).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ListBySession returns a session's receipts newest first, one row past the
// limit so callers can detect another page.
func (r *Repository) ListBySession(ctx context.Context, sessionID string, cursor *pagination.Cursor, limit int) ([]models.Receipt, error) {
	query := r.DB(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit))
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID.String())
	}

	var rows []models.Receipt
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
