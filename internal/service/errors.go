package service

import "errors"

// Errors returned by the services. Handlers map these to HTTP statuses via
// Classify, so every business failure carries a stable, checkable reason.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidQuantity      = errors.New("quantity must be >= 1")
	ErrInvalidTableID       = errors.New("invalid table_id")
	ErrInvalidProductID     = errors.New("invalid product_id")
	ErrInvalidOrderID       = errors.New("invalid order_id")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrSplitAmounts         = errors.New("cash_amount and credit_amount must sum to the order total")
	ErrCashBelowTotal       = errors.New("cash_amount must cover the order total")

	ErrTableNotFound   = errors.New("table not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrUserNotFound    = errors.New("user not found")

	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyPaid       = errors.New("order already paid")
	ErrTableNotOccupied  = errors.New("table is not occupied")
	ErrTableNotAvailable = errors.New("table is not available")
	ErrTableNotReserved  = errors.New("table is not reserved")
	ErrSameTable         = errors.New("source and target table are the same")
	ErrStockBelowZero    = errors.New("adjustment would drive stock negative")
)

// Kind buckets a service error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

var (
	validationErrs = []error{
		ErrEmptyItems, ErrInvalidQuantity, ErrInvalidTableID, ErrInvalidProductID,
		ErrInvalidOrderID, ErrInvalidStatus, ErrInvalidPaymentMethod,
		ErrInvalidAmount, ErrSplitAmounts, ErrCashBelowTotal,
	}
	notFoundErrs = []error{
		ErrTableNotFound, ErrProductNotFound, ErrOrderNotFound, ErrUserNotFound,
	}
	conflictErrs = []error{
		ErrInsufficientStock, ErrAlreadyPaid, ErrTableNotOccupied,
		ErrTableNotAvailable, ErrTableNotReserved, ErrSameTable, ErrStockBelowZero,
	}
)

// Classify maps an error (possibly wrapped) to its Kind. Anything not
// recognized is internal: storage failures, broken transactions.
func Classify(err error) Kind {
	for _, e := range validationErrs {
		if errors.Is(err, e) {
			return KindValidation
		}
	}
	for _, e := range notFoundErrs {
		if errors.Is(err, e) {
			return KindNotFound
		}
	}
	for _, e := range conflictErrs {
		if errors.Is(err, e) {
			return KindConflict
		}
	}
	return KindInternal
}
