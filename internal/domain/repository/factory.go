package repository

// Factory produces domain repositories backed by the same storage.
type Factory interface {
	Payments() PaymentRepository
	Orders() OrderRepository
	Notifications() NotificationRepository
	Menu() MenuRepository
}
