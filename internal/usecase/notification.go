package usecase

import (
	"context"

	"github.com/campuseats/canteen/internal/domain/model"
	"github.com/campuseats/canteen/internal/domain/repository"
)

// NotificationUseCase exposes the user-facing notification lifecycle.
type NotificationUseCase struct {
	notes repository.NotificationRepository
}

// NewNotificationUseCase constructs NotificationUseCase.
func NewNotificationUseCase(notes repository.NotificationRepository) *NotificationUseCase {
	return &NotificationUseCase{notes: notes}
}

// ListByUser returns the user's notifications, newest first.
func (u *NotificationUseCase) ListByUser(ctx context.Context, userID int64) ([]model.Notification, error) {
	return u.notes.ListByUser(ctx, userID)
}

// MarkRead flags one of the user's notifications as read.
func (u *NotificationUseCase) MarkRead(ctx context.Context, id, userID int64) error {
	return u.notes.MarkRead(ctx, id, userID)
}

// Delete removes one of the user's notifications.
func (u *NotificationUseCase) Delete(ctx context.Context, id, userID int64) error {
	return u.notes.Delete(ctx, id, userID)
}
