package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainErrors "github.com/campuseats/canteen/internal/domain/errors"
	"github.com/campuseats/canteen/internal/domain/model"
	"github.com/campuseats/canteen/internal/domain/repository"
)

// DBPool is the subset of pgxpool.Pool the storage relies on. Tests substitute
// a pgxmock pool through it.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   DBPool
	logger *slog.Logger
}

type paymentRepository struct {
	storage *Storage
}

type orderRepository struct {
	storage *Storage
}

type notificationRepository struct {
	storage *Storage
}

type menuRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Payments() repository.PaymentRepository {
	return &paymentRepository{storage: s}
}

func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Notifications() repository.NotificationRepository {
	return &notificationRepository{storage: s}
}

func (s *Storage) Menu() repository.MenuRepository {
	return &menuRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS payments (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            amount NUMERIC(12,2) NOT NULL,
            method TEXT NOT NULL,
            status TEXT NOT NULL,
            session_id TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            total NUMERIC(12,2) NOT NULL,
            status TEXT NOT NULL,
            payment_id BIGINT UNIQUE REFERENCES payments(id),
            ordered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            eta TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            menu_item_id BIGINT NOT NULL,
            name TEXT NOT NULL,
            unit_price NUMERIC(12,2) NOT NULL,
            quantity INT NOT NULL,
            subtotal NUMERIC(12,2) NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            type TEXT NOT NULL,
            message TEXT NOT NULL,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS menu_items (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            price NUMERIC(12,2) NOT NULL,
            available BOOLEAN NOT NULL DEFAULT TRUE
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, ordered_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_pending ON payments(status, updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// --- PaymentRepository implementation ---

func (r *paymentRepository) Create(ctx context.Context, userID int64, amount decimal.Decimal, method model.PaymentMethod) (*model.Payment, error) {
	const query = `INSERT INTO payments (user_id, amount, method, status)
                   VALUES ($1, $2, $3, $4)
                   RETURNING id, created_at, updated_at`
	p := model.Payment{
		UserID: userID,
		Amount: amount,
		Method: method,
		Status: model.PaymentStatusPending,
	}
	err := r.storage.pool.QueryRow(ctx, query, userID, amount, method, model.PaymentStatusPending).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	const query = `SELECT id, user_id, amount, method, status, COALESCE(session_id, ''), created_at, updated_at
                   FROM payments WHERE id=$1`
	return r.scanPayment(r.storage.pool.QueryRow(ctx, query, id))
}

func (r *paymentRepository) GetBySession(ctx context.Context, sessionID string) (*model.Payment, error) {
	const query = `SELECT id, user_id, amount, method, status, COALESCE(session_id, ''), created_at, updated_at
                   FROM payments WHERE session_id=$1`
	return r.scanPayment(r.storage.pool.QueryRow(ctx, query, sessionID))
}

func (r *paymentRepository) scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Method, &p.Status, &p.SessionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) AttachSession(ctx context.Context, id int64, sessionID string) error {
	const query = `UPDATE payments SET session_id=$2, updated_at=NOW() WHERE id=$1`
	tag, err := r.storage.pool.Exec(ctx, query, id, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// TransitionFromPending matches the pending row only, so a terminal payment
// never regresses and exactly one concurrent caller wins the transition.
func (r *paymentRepository) TransitionFromPending(ctx context.Context, id int64, status model.PaymentStatus) (bool, error) {
	const query = `UPDATE payments SET status=$2, updated_at=NOW() WHERE id=$1 AND status=$3`
	tag, err := r.storage.pool.Exec(ctx, query, id, status, model.PaymentStatusPending)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *paymentRepository) SelectStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]model.Payment, error) {
	const query = `SELECT id, user_id, amount, method, status, COALESCE(session_id, ''), created_at, updated_at
                   FROM payments
                   WHERE status=$1 AND session_id IS NOT NULL AND updated_at < NOW() - $2::interval
                   ORDER BY updated_at
                   LIMIT $3`
	rows, err := r.storage.pool.Query(ctx, query, model.PaymentStatusPending, olderThan.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &p.Method, &p.Status, &p.SessionID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- OrderRepository implementation ---

func (r *orderRepository) Create(ctx context.Context, order *model.Order, items []model.OrderItem, note *model.Notification) (*model.Order, bool, error) {
	created := true
	result := *order
	result.Items = nil

	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const insertOrder = `INSERT INTO orders (user_id, total, status, payment_id)
                             VALUES ($1, $2, $3, $4)
                             ON CONFLICT (payment_id) DO NOTHING
                             RETURNING id, ordered_at`
		err := tx.QueryRow(ctx, insertOrder, order.UserID, order.Total, order.Status, order.PaymentID).
			Scan(&result.ID, &result.OrderedAt)
		if err != nil {
			// No row back from DO NOTHING: a concurrent delivery already
			// created the order for this payment.
			if errors.Is(err, pgx.ErrNoRows) && order.PaymentID != nil {
				existing, getErr := r.getByPaymentIDTx(ctx, tx, *order.PaymentID)
				if getErr != nil {
					return getErr
				}
				result = *existing
				created = false
				return nil
			}
			return err
		}

		const insertItem = `INSERT INTO order_items (order_id, menu_item_id, name, unit_price, quantity, subtotal)
                            VALUES ($1, $2, $3, $4, $5, $6)
                            RETURNING id`
		for _, item := range items {
			item.OrderID = result.ID
			if err := tx.QueryRow(ctx, insertItem, result.ID, item.MenuItemID, item.Name, item.UnitPrice, item.Quantity, item.Subtotal).Scan(&item.ID); err != nil {
				return err
			}
			result.Items = append(result.Items, item)
		}

		if note != nil {
			if err := r.storage.insertNotificationTx(ctx, tx, note); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &result, created, nil
}

func (r *orderRepository) getByPaymentIDTx(ctx context.Context, tx pgx.Tx, paymentID int64) (*model.Order, error) {
	const query = `SELECT id, user_id, total, status, payment_id, ordered_at, eta
                   FROM orders WHERE payment_id=$1`
	var o model.Order
	err := tx.QueryRow(ctx, query, paymentID).
		Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.PaymentID, &o.OrderedAt, &o.ETA)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	items, err := r.loadItems(ctx, tx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	const query = `SELECT id, user_id, total, status, payment_id, ordered_at, eta
                   FROM orders WHERE id=$1`
	return r.getOne(ctx, query, id)
}

func (r *orderRepository) GetByPaymentID(ctx context.Context, paymentID int64) (*model.Order, error) {
	const query = `SELECT id, user_id, total, status, payment_id, ordered_at, eta
                   FROM orders WHERE payment_id=$1`
	return r.getOne(ctx, query, paymentID)
}

func (r *orderRepository) getOne(ctx context.Context, query string, arg any) (*model.Order, error) {
	var o model.Order
	err := r.storage.pool.QueryRow(ctx, query, arg).
		Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.PaymentID, &o.OrderedAt, &o.ETA)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	items, err := r.loadItems(ctx, r.storage.pool, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	const query = `SELECT id, user_id, total, status, payment_id, ordered_at, eta
                   FROM orders WHERE user_id=$1 ORDER BY ordered_at DESC`
	return r.list(ctx, query, userID)
}

func (r *orderRepository) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	const query = `SELECT id, user_id, total, status, payment_id, ordered_at, eta
                   FROM orders WHERE status=$1 ORDER BY ordered_at DESC`
	return r.list(ctx, query, status)
}

func (r *orderRepository) list(ctx context.Context, query string, arg any) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Order
	var ids []int64
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.PaymentID, &o.OrderedAt, &o.ETA); err != nil {
			return nil, err
		}
		result = append(result, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return result, nil
	}

	items, err := r.loadItems(ctx, r.storage.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Items = items[result[i].ID]
	}
	return result, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *orderRepository) loadItems(ctx context.Context, q querier, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	const query = `SELECT id, order_id, menu_item_id, name, unit_price, quantity, subtotal
                   FROM order_items WHERE order_id = ANY($1) ORDER BY id`
	rows, err := q.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64][]model.OrderItem, len(orderIDs))
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Name, &item.UnitPrice, &item.Quantity, &item.Subtotal); err != nil {
			return nil, err
		}
		result[item.OrderID] = append(result[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus, note *model.Notification) (*model.Order, error) {
	var updated model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const query = `UPDATE orders SET status=$1 WHERE id=$2 AND status=$3
                       RETURNING id, user_id, total, status, payment_id, ordered_at, eta`
		err := tx.QueryRow(ctx, query, to, orderID, from).
			Scan(&updated.ID, &updated.UserID, &updated.Total, &updated.Status, &updated.PaymentID, &updated.OrderedAt, &updated.ETA)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			// Either the order is gone or another writer moved it off the
			// observed status first.
			const check = `SELECT status FROM orders WHERE id=$1`
			var current model.OrderStatus
			if err := tx.QueryRow(ctx, check, orderID).Scan(&current); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return domainErrors.ErrNotFound
				}
				return err
			}
			return fmt.Errorf("%w: order %d is %s, not %s", domainErrors.ErrInvalidTransition, orderID, current, from)
		}

		if note != nil {
			note.UserID = updated.UserID
			if err := r.storage.insertNotificationTx(ctx, tx, note); err != nil {
				return err
			}
		}

		items, err := r.loadItems(ctx, tx, []int64{updated.ID})
		if err != nil {
			return err
		}
		updated.Items = items[updated.ID]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *orderRepository) MarkPaid(ctx context.Context, orderID int64) (bool, error) {
	const query = `UPDATE orders SET status=$1 WHERE id=$2 AND status=$3`
	tag, err := r.storage.pool.Exec(ctx, query, model.OrderStatusPaid, orderID, model.OrderStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// --- NotificationRepository implementation ---

func (s *Storage) insertNotificationTx(ctx context.Context, tx pgx.Tx, note *model.Notification) error {
	const query = `INSERT INTO notifications (user_id, type, message)
                   VALUES ($1, $2, $3)
                   RETURNING id, is_read, created_at`
	return tx.QueryRow(ctx, query, note.UserID, note.Type, note.Message).
		Scan(&note.ID, &note.Read, &note.CreatedAt)
}

func (r *notificationRepository) Create(ctx context.Context, note *model.Notification) (*model.Notification, error) {
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		return r.storage.insertNotificationTx(ctx, tx, note)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int64) ([]model.Notification, error) {
	const query = `SELECT id, user_id, type, message, is_read, created_at
                   FROM notifications WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := r.storage.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID int64) error {
	const query = `UPDATE notifications SET is_read=TRUE WHERE id=$1 AND user_id=$2`
	tag, err := r.storage.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID int64) error {
	const query = `DELETE FROM notifications WHERE id=$1 AND user_id=$2`
	tag, err := r.storage.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// --- MenuRepository implementation ---

func (r *menuRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error) {
	const query = `SELECT id, name, price, available FROM menu_items WHERE id = ANY($1)`
	rows, err := r.storage.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64]model.MenuItem, len(ids))
	for rows.Next() {
		var item model.MenuItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.Available); err != nil {
			return nil, err
		}
		result[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Pool exposes raw connection pool for advanced use.
func (s *Storage) Pool() DBPool {
	return s.pool
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
