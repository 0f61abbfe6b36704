package models

// OrderStatus is the closed set of order lifecycle states.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus validates a raw status value against the closed set.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	switch s := OrderStatus(raw); s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return s, true
	}
	return "", false
}

// AssignmentStatus is the closed set of delivery assignment states.
type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentDelivered  AssignmentStatus = "delivered"
	AssignmentPostponed  AssignmentStatus = "postponed"
	AssignmentCancelled  AssignmentStatus = "cancelled"
)

// ParseAssignmentStatus validates a raw status value against the closed set.
func ParseAssignmentStatus(raw string) (AssignmentStatus, bool) {
	switch s := AssignmentStatus(raw); s {
	case AssignmentAssigned, AssignmentInProgress, AssignmentDelivered, AssignmentPostponed, AssignmentCancelled:
		return s, true
	}
	return "", false
}

// PayoutStatus tracks whether an assignment's commission has been settled.
type PayoutStatus string

const (
	PayoutPending PayoutStatus = "pending"
	PayoutPaid    PayoutStatus = "paid"
)

// DelivererStatus is a courier's self-reported availability.
type DelivererStatus string

const (
	DelivererAvailable DelivererStatus = "available"
	DelivererBusy      DelivererStatus = "busy"
	DelivererOffline   DelivererStatus = "offline"
)

// ParseDelivererStatus validates a raw availability value against the closed set.
func ParseDelivererStatus(raw string) (DelivererStatus, bool) {
	switch s := DelivererStatus(raw); s {
	case DelivererAvailable, DelivererBusy, DelivererOffline:
		return s, true
	}
	return "", false
}
