package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/saji-pos/api/internal/database"
)

// Event names are the contract real-time subscribers rely on.
const (
	EventNewOrder           = "newOrder"
	EventOrderUpdated       = "orderUpdated"
	EventOrderDeleted       = "orderDeleted"
	EventTableStatusUpdated = "tableStatusUpdated"
	EventTablesMoved        = "tablesMoved"
	EventTablesMerged       = "tablesMerged"
)

// EventPublisher fans state-change events out to subscribed terminals.
// Satisfied by *ws.Hub. Services call it strictly after commit.
type EventPublisher interface {
	Broadcast(eventType string, payload any)
}

// TableSnapshot is the table shape embedded in events.
type TableSnapshot struct {
	ID           uuid.UUID `json:"id"`
	Number       int32     `json:"number"`
	Status       string    `json:"status"`
	Capacity     int32     `json:"capacity"`
	RunningTotal string    `json:"runningTotal"`
}

// ItemSummary is the flattened order-item shape embedded in events.
type ItemSummary struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Quantity  int32     `json:"quantity"`
	Note      string    `json:"note,omitempty"`
}

type NewOrderEvent struct {
	ID        uuid.UUID     `json:"id"`
	Table     TableSnapshot `json:"table"`
	Items     []ItemSummary `json:"items"`
	Total     string        `json:"total"`
	CreatedAt time.Time     `json:"createdAt"`
}

type OrderUpdatedEvent struct {
	ID            uuid.UUID     `json:"id"`
	Status        string        `json:"status"`
	Total         string        `json:"total"`
	Items         []ItemSummary `json:"items"`
	PaymentMethod *string       `json:"paymentMethod,omitempty"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`
}

type OrderDeletedEvent struct {
	ID uuid.UUID `json:"id"`
}

type TableStatusUpdatedEvent struct {
	ID          uuid.UUID `json:"id"`
	Status      string    `json:"status"`
	Number      int32     `json:"number"`
	TotalAmount string    `json:"totalAmount"`
}

type TablesMovedEvent struct {
	SourceTable TableSnapshot `json:"sourceTable"`
	TargetTable TableSnapshot `json:"targetTable"`
}

type TablesMergedEvent struct {
	MainTable  TableSnapshot `json:"mainTable"`
	MergeTable TableSnapshot `json:"mergeTable"`
}

func tableSnapshot(t database.Table) TableSnapshot {
	return TableSnapshot{
		ID:           t.ID,
		Number:       t.Number,
		Status:       t.Status,
		Capacity:     t.Capacity,
		RunningTotal: numericToDecimal(t.RunningTotal).StringFixed(2),
	}
}

func itemSummaries(items []database.OrderItem) []ItemSummary {
	out := make([]ItemSummary, len(items))
	for i, it := range items {
		out[i] = ItemSummary{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     numericToDecimal(it.Price).StringFixed(2),
			Quantity:  it.Quantity,
			Note:      it.Note.String,
		}
	}
	return out
}
