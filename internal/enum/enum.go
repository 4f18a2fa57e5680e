package enum

// Table statuses.
const (
	TableStatusAvailable = "AVAILABLE"
	TableStatusOccupied  = "OCCUPIED"
	TableStatusReserved  = "RESERVED"
)

// Order statuses.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusServed    = "SERVED"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
)

// Stock movement types.
const (
	StockTypeIn         = "IN"
	StockTypeOut        = "OUT"
	StockTypeAdjustment = "ADJUSTMENT"
)

// User roles.
const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
	UserRoleFloor   = "FLOOR"
)

// Payment methods.
const (
	PaymentMethodCash   = "CASH"
	PaymentMethodCredit = "CREDIT"
	PaymentMethodSplit  = "SPLIT"
)

// OrderActiveStatuses are the order states that still count against a table:
// everything except PAID and CANCELLED.
var OrderActiveStatuses = []string{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusServed,
}

// ValidTableStatus reports whether s is a known table status.
func ValidTableStatus(s string) bool {
	switch s {
	case TableStatusAvailable, TableStatusOccupied, TableStatusReserved:
		return true
	}
	return false
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusServed, OrderStatusPaid, OrderStatusCancelled:
		return true
	}
	return false
}
