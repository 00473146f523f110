package model

import "time"

// NotificationType classifies what a notification is about.
type NotificationType string

const (
	NotificationTypeOrderPlaced NotificationType = "order_placed"
	NotificationTypeOrderStatus NotificationType = "order_status"
)

// Notification is a per-user message produced as an order side effect.
type Notification struct {
	ID        int64
	UserID    int64
	Type      NotificationType
	Message   string
	Read      bool
	CreatedAt time.Time
}
