package receipts

import (
	"time"

	"github.com/angelmondragon/readerpos/pkg/db/models"
	"github.com/angelmondragon/readerpos/pkg/money"
)

// ReceiptDTO is the API shape of a stored receipt.
type ReceiptDTO struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	PaymentID string      `json:"payment_id"`
	Status    string      `json:"status"`
	Total     money.Money `json:"total"`
	TotalText string      `json:"total_text"`
	ItemCount int         `json:"item_count"`
	Lines     []LineDTO   `json:"lines"`
	CreatedAt time.Time   `json:"created_at"`
}

type LineDTO struct {
	Name      string      `json:"name"`
	Price     money.Money `json:"price"`
	PriceText string      `json:"price_text"`
}

func toDTO(m *models.Receipt) ReceiptDTO {
	currency := money.Currency(m.Currency)
	total := money.Money{Amount: m.TotalAmount, Currency: currency}
	lines := make([]LineDTO, 0, len(m.Lines))
	for _, line := range m.Lines {
		price := money.Money{Amount: line.Amount, Currency: currency}
		lines = append(lines, LineDTO{Name: line.Name, Price: price, PriceText: price.String()})
	}
	return ReceiptDTO{
		ID:        m.ID.String(),
		SessionID: m.SessionID,
		PaymentID: m.PaymentID,
		Status:    m.Status,
		Total:     total,
		TotalText: total.String(),
		ItemCount: m.ItemCount,
		Lines:     lines,
		CreatedAt: m.CreatedAt,
	}
}
