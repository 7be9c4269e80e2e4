package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/readerpos/internal/cart"
	"github.com/angelmondragon/readerpos/pkg/db"
	"github.com/angelmondragon/readerpos/pkg/db/models"
	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
	"github.com/angelmondragon/readerpos/pkg/logger"
	"github.com/angelmondragon/readerpos/pkg/pagination"
)

const cacheTTL = 10 * time.Minute

type receiptStore interface {
	Create(ctx context.Context, receipt *models.Receipt) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*models.Receipt, error)
	ListBySession(ctx context.Context, sessionID string, cursor *pagination.Cursor, limit int) ([]models.Receipt, error)
}

// Cache is the optional read-through cache (pkg/redis satisfies it).
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ReceiptKey(id string) string
}

// RecordInput describes a completed payment to store.
type RecordInput struct {
	SessionID string
	PaymentID string
	Status    string
	Cart      cart.Cart
}

type Service interface {
	Record(ctx context.Context, input RecordInput) (*ReceiptDTO, error)
	Get(ctx context.Context, id string) (*ReceiptDTO, error)
	ListBySession(ctx context.Context, sessionID string, params pagination.Params) (pagination.Page[ReceiptDTO], error)
}

type service struct {
	repo   receiptStore
	cache  Cache
	logger *logger.Logger
}

// NewService builds the receipts service. cache may be nil.
func NewService(repo receiptStore, cache Cache, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("receipts repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &service{repo: repo, cache: cache, logger: logg}, nil
}

// Record stores a receipt for a completed payment. Recording the same payment
// twice returns the existing receipt.
func (s *service) Record(ctx context.Context, input RecordInput) (*ReceiptDTO, error) {
	if strings.TrimSpace(input.PaymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	items := input.Cart.Items()
	lines := make([]models.ReceiptLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.ReceiptLine{Name: item.Name, Amount: item.Price.Amount})
	}
	total := input.Cart.Total()
	record := &models.Receipt{
		SessionID:   input.SessionID,
		PaymentID:   input.PaymentID,
		Status:      input.Status,
		Currency:    total.Currency.String(),
		TotalAmount: total.Amount,
		ItemCount:   len(items),
		Lines:       lines,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store receipt")
		}
		existing, findErr := s.repo.FindByPaymentID(ctx, input.PaymentID)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load existing receipt")
		}
		record = existing
	}

	dto := toDTO(record)
	ctx = s.logger.WithFields(ctx, map[string]any{
		"receipt_id": dto.ID,
		"payment_id": dto.PaymentID,
		"session_id": dto.SessionID,
	})
	s.logger.Info(ctx, "receipt.recorded")
	s.store(ctx, dto)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id string) (*ReceiptDTO, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid receipt id")
	}
	if cached, ok := s.load(ctx, parsed.String()); ok {
		return cached, nil
	}

	record, err := s.repo.FindByID(ctx, parsed)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
	}
	dto := toDTO(record)
	s.store(ctx, dto)
	return &dto, nil
}

func (s *service) ListBySession(ctx context.Context, sessionID string, params pagination.Params) (pagination.Page[ReceiptDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[ReceiptDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListBySession(ctx, sessionID, cursor, params.Limit)
	if err != nil {
		return pagination.Page[ReceiptDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list receipts")
	}
	dtos := make([]ReceiptDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, toDTO(&rows[i]))
	}
	return pagination.Trim(dtos, params.Limit, func(r ReceiptDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: uuid.MustParse(r.ID)}
	}), nil
}

func (s *service) load(ctx context.Context, id string) (*ReceiptDTO, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.ReceiptKey(id))
	if err != nil || raw == "" {
		return nil, false
	}
	var dto ReceiptDTO
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return nil, false
	}
	return &dto, true
}

func (s *service) store(ctx context.Context, dto ReceiptDTO) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(dto)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.ReceiptKey(dto.ID), string(payload), cacheTTL); err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "receipt.cache_write_failed")
	}
}
