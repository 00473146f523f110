package repository

import (
	"context"

	"github.com/campuseats/canteen/internal/domain/model"
)

// NotificationRepository describes persistence operations with notifications.
type NotificationRepository interface {
	Create(ctx context.Context, note *model.Notification) (*model.Notification, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
	Delete(ctx context.Context, id, userID int64) error
}
