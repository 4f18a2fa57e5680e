package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Area struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type Table struct {
	ID           uuid.UUID
	Number       int32
	Capacity     int32
	Status       string
	RunningTotal pgtype.Numeric
	AreaID       pgtype.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Category struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type Product struct {
	ID         uuid.UUID
	Name       string
	Price      pgtype.Numeric
	Stock      int32
	MinStock   int32
	CategoryID pgtype.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Supplier struct {
	ID        uuid.UUID
	Name      string
	Phone     pgtype.Text
	CreatedAt time.Time
}

type Order struct {
	ID            uuid.UUID
	TableID       uuid.UUID
	CreatedBy     uuid.UUID
	Status        string
	Total         pgtype.Numeric
	PaymentMethod pgtype.Text
	CashAmount    pgtype.Numeric
	CreditAmount  pgtype.Numeric
	Printed       bool
	PaidAt        pgtype.Timestamptz
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Name      string
	Price     pgtype.Numeric
	Quantity  int32
	Note      pgtype.Text
	CreatedAt time.Time
}

type StockLog struct {
	ID         uuid.UUID
	ProductID  uuid.UUID
	Quantity   int32
	Type       string
	SupplierID pgtype.UUID
	Note       pgtype.Text
	CreatedAt  time.Time
}

type User struct {
	ID           uuid.UUID
	FullName     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}
