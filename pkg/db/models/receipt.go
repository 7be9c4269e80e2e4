package models

import (
	"time"

	"github.com/google/uuid"
)

// Receipt records a completed reader payment and the cart it settled.
type Receipt struct {
	ID          uuid.UUID     `gorm:"column:id;primaryKey"`
	SessionID   string        `gorm:"column:session_id;not null"`
	PaymentID   string        `gorm:"column:payment_id;not null;uniqueIndex:idx_receipts_payment_id"`
	Status      string        `gorm:"column:status;not null"`
	Currency    string        `gorm:"column:currency;not null"`
	TotalAmount int64         `gorm:"column:total_amount;not null"`
	ItemCount   int           `gorm:"column:item_count;not null"`
	Lines       []ReceiptLine `gorm:"column:lines;serializer:json;not null"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
}

// ReceiptLine is one cart item as charged.
type ReceiptLine struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

func (Receipt) TableName() string {
	return "receipts"
}
