// Package postgres is the durable entity store. One PostgresStorage value
// implements the order, review, payment, notification and user repositories
// over a single pgx pool; callers receive it as an explicit handle instead
// of a package-global connection.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fixhub-io/fixhub/internal/admin"
	"github.com/fixhub-io/fixhub/internal/notify"
	"github.com/fixhub-io/fixhub/internal/order"
	"github.com/fixhub-io/fixhub/internal/payment"
	"github.com/fixhub-io/fixhub/internal/review"
	"github.com/fixhub-io/fixhub/internal/user"
)

const uniqueViolation = "23505"

type PostgresStorage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &PostgresStorage{pool: pool}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStorage) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT UNIQUE NOT NULL,
            password TEXT NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('customer','provider','admin')),
            bio TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id UUID PRIMARY KEY,
            customer_id UUID NOT NULL REFERENCES users(id),
            provider_id UUID NULL REFERENCES users(id),
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            service_type TEXT NOT NULL CHECK (service_type IN (
                'cleaning_repair','it_technology','education_training',
                'life_health','design_consulting','other')),
            price NUMERIC(12,2) NOT NULL CHECK (price > 0),
            location TEXT NOT NULL CHECK (location IN ('NORTH','SOUTH','EAST','WEST','MID')),
            address TEXT NOT NULL DEFAULT '',
            window_start TIMESTAMPTZ NULL,
            window_end TIMESTAMPTZ NULL,
            status TEXT NOT NULL CHECK (status IN (
                'pending_review','pending','accepted','in_progress','completed','cancelled')),
            payment_status TEXT NOT NULL CHECK (payment_status IN ('unpaid','paid')),
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_available ON orders(status, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_provider ON orders(provider_id)`,
		`CREATE TABLE IF NOT EXISTS reviews (
            id UUID PRIMARY KEY,
            order_id UUID UNIQUE NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            customer_id UUID NOT NULL REFERENCES users(id),
            provider_id UUID NOT NULL REFERENCES users(id),
            stars INT NOT NULL CHECK (stars BETWEEN 1 AND 5),
            content TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            id UUID PRIMARY KEY,
            order_id UUID UNIQUE NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            customer_id UUID NOT NULL REFERENCES users(id),
            provider_id UUID NOT NULL REFERENCES users(id),
            amount NUMERIC(12,2) NOT NULL,
            method TEXT NOT NULL,
            status TEXT NOT NULL,
            transaction_id UUID UNIQUE NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id UUID PRIMARY KEY,
            recipient UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            order_id UUID NULL REFERENCES orders(id) ON DELETE CASCADE,
            template TEXT NOT NULL,
            message TEXT NOT NULL,
            read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_notifications_dedupe
            ON notifications(recipient, order_id, template)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_recipient
            ON notifications(recipient, created_at DESC)`,
	}
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStorage) Close() {
	s.pool.Close()
}

// ---- order.Repository ----

const orderColumns = `id, customer_id, provider_id, title, description, service_type,
    price, location, address, window_start, window_end, status, payment_status,
    created_at, updated_at`

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o        order.Order
		provider *string
		status   string
		winStart *time.Time
		winEnd   *time.Time
	)
	err := row.Scan(&o.ID, &o.CustomerID, &provider, &o.Title, &o.Description,
		&o.ServiceType, &o.Price, &o.Location, &o.Address, &winStart, &winEnd,
		&status, &o.PaymentStatus, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if provider != nil {
		o.ProviderID = *provider
	}
	if winStart != nil {
		o.WindowStart = *winStart
	}
	if winEnd != nil {
		o.WindowEnd = *winEnd
	}
	o.Status = order.NormalizeStatus(status)
	return &o, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func (s *PostgresStorage) CreateOrder(ctx context.Context, o *order.Order) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO orders (`+orderColumns+`)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		o.ID, o.CustomerID, nullable(o.ProviderID), o.Title, o.Description,
		o.ServiceType, o.Price, o.Location, o.Address,
		nullableTime(o.WindowStart), nullableTime(o.WindowEnd),
		o.Status, o.PaymentStatus, o.CreatedAt, o.UpdatedAt)
	return err
}

func (s *PostgresStorage) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	return o, err
}

// UpdateOrderIfStatus is the compare-and-set commit every order write goes
// through: the row is written only if it still carries the expected status
// and payment status, so competing writers on one order id serialize on
// this statement.
func (s *PostgresStorage) UpdateOrderIfStatus(ctx context.Context, o *order.Order, prev order.Status, prevPay order.PaymentStatus) (bool, error) {
	res, err := s.pool.Exec(ctx,
		`UPDATE orders SET title=$1, description=$2, service_type=$3, price=$4,
            location=$5, address=$6, window_start=$7, window_end=$8,
            status=$9, payment_status=$10, provider_id=$11, updated_at=$12
         WHERE id = $13 AND status = $14 AND payment_status = $15`,
		o.Title, o.Description, o.ServiceType, o.Price, o.Location, o.Address,
		nullableTime(o.WindowStart), nullableTime(o.WindowEnd),
		o.Status, o.PaymentStatus, nullable(o.ProviderID), o.UpdatedAt,
		o.ID, prev, prevPay)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (s *PostgresStorage) ListAvailable(ctx context.Context, f order.AvailableFilter) ([]order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = 'pending'`
	var args []any
	if f.Location != "" {
		args = append(args, string(f.Location))
		query += fmt.Sprintf(" AND location = $%d", len(args))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		query += fmt.Sprintf(" AND price >= $%d", len(args))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		query += fmt.Sprintf(" AND price <= $%d", len(args))
	}
	if f.Keyword != "" {
		args = append(args, likePattern(f.Keyword))
		query += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY created_at DESC"
	return s.queryOrders(ctx, query, args...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a user keyword into a substring ILIKE pattern, escaping
// the LIKE metacharacters so "50%" matches literally instead of as a
// wildcard.
func likePattern(keyword string) string {
	return "%" + likeEscaper.Replace(keyword) + "%"
}

func (s *PostgresStorage) ListOrdersByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return s.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders
         WHERE customer_id = $1 OR provider_id = $1 ORDER BY created_at DESC`, userID)
}

func (s *PostgresStorage) ListAllOrders(ctx context.Context) ([]order.Order, error) {
	return s.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (s *PostgresStorage) queryOrders(ctx context.Context, query string, args ...any) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (s *PostgresStorage) DeleteOrder(ctx context.Context, id string) error {
	// Reviews, payments and mailbox items cascade via their FKs.
	res, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) SumPaidByProvider(ctx context.Context, providerID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(price), 0) FROM orders
         WHERE provider_id = $1 AND payment_status = 'paid'`, providerID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// ---- payment.Repository ----

func (s *PostgresStorage) CommitPayment(ctx context.Context, p *payment.Payment, orderUpdatedAt time.Time) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx,
		`UPDATE orders SET payment_status = 'paid', updated_at = $1
         WHERE id = $2 AND status = 'completed' AND payment_status = 'unpaid'`,
		orderUpdatedAt, p.OrderID)
	if err != nil {
		return false, err
	}
	if res.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO payments (id, order_id, customer_id, provider_id, amount,
            method, status, transaction_id, created_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.OrderID, p.CustomerID, p.ProviderID, p.Amount,
		p.Method, p.Status, p.TransactionID, p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, nil
		}
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStorage) PaymentByOrder(ctx context.Context, orderID string) (*payment.Payment, error) {
	var p payment.Payment
	err := s.pool.QueryRow(ctx,
		`SELECT id, order_id, customer_id, provider_id, amount, method, status,
            transaction_id, created_at
         FROM payments WHERE order_id = $1`, orderID).
		Scan(&p.ID, &p.OrderID, &p.CustomerID, &p.ProviderID, &p.Amount,
			&p.Method, &p.Status, &p.TransactionID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ---- review.Repository ----

func (s *PostgresStorage) CreateReview(ctx context.Context, r *review.Review) (bool, error) {
	res, err := s.pool.Exec(ctx,
		`INSERT INTO reviews (id, order_id, customer_id, provider_id, stars, content, created_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7)
         ON CONFLICT (order_id) DO NOTHING`,
		r.ID, r.OrderID, r.CustomerID, r.ProviderID, r.Stars, r.Content, r.CreatedAt)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (s *PostgresStorage) ReviewByOrder(ctx context.Context, orderID string) (*review.Review, error) {
	var r review.Review
	err := s.pool.QueryRow(ctx,
		`SELECT id, order_id, customer_id, provider_id, stars, content, created_at
         FROM reviews WHERE order_id = $1`, orderID).
		Scan(&r.ID, &r.OrderID, &r.CustomerID, &r.ProviderID, &r.Stars, &r.Content, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStorage) ListReviewsByProvider(ctx context.Context, providerID string) ([]review.Review, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, order_id, customer_id, provider_id, stars, content, created_at
         FROM reviews WHERE provider_id = $1 ORDER BY created_at DESC`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []review.Review
	for rows.Next() {
		var r review.Review
		if err := rows.Scan(&r.ID, &r.OrderID, &r.CustomerID, &r.ProviderID,
			&r.Stars, &r.Content, &r.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// ---- notify.Repository ----

func (s *PostgresStorage) Append(ctx context.Context, item *notify.Item) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, recipient, order_id, template, message, read, created_at)
         VALUES ($1,$2,$3,$4,$5,FALSE,$6)
         ON CONFLICT (recipient, order_id, template) DO NOTHING`,
		item.ID, item.Recipient, nullable(item.OrderID), item.Template, item.Message, item.CreatedAt)
	return err
}

func (s *PostgresStorage) ListByRecipient(ctx context.Context, recipient string) ([]notify.Item, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, recipient, order_id, template, message, read, created_at
         FROM notifications WHERE recipient = $1 ORDER BY created_at DESC`, recipient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []notify.Item
	for rows.Next() {
		var (
			item    notify.Item
			orderID *string
		)
		if err := rows.Scan(&item.ID, &item.Recipient, &orderID, &item.Template,
			&item.Message, &item.Read, &item.CreatedAt); err != nil {
			return nil, err
		}
		if orderID != nil {
			item.OrderID = *orderID
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStorage) MarkRead(ctx context.Context, recipient, id string) (bool, error) {
	res, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient = $2`, id, recipient)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// ---- user.Store / notify.Directory ----

func (s *PostgresStorage) CreateUser(ctx context.Context, u *user.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password, role, bio, created_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Name, strings.ToLower(u.Email), u.Password, u.Role, u.Bio, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (s *PostgresStorage) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, name, email, password, role, bio, created_at
         FROM users WHERE email = $1`, strings.ToLower(email)))
}

func (s *PostgresStorage) FindByID(ctx context.Context, id string) (*user.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, name, email, password, role, bio, created_at
         FROM users WHERE id = $1`, id))
}

func (s *PostgresStorage) scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.Bio, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStorage) UpdateUser(ctx context.Context, u *user.User) error {
	res, err := s.pool.Exec(ctx,
		`UPDATE users SET name = $1, bio = $2 WHERE id = $3`, u.Name, u.Bio, u.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) SetRole(ctx context.Context, email, role string) error {
	res, err := s.pool.Exec(ctx,
		`UPDATE users SET role = $1 WHERE email = $2`, role, strings.ToLower(email))
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) EmailByID(ctx context.Context, userID string) (string, error) {
	u, err := s.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

func (s *PostgresStorage) Stats(ctx context.Context) (*admin.Stats, error) {
	var st admin.Stats
	for _, c := range []struct {
		table string
		dst   *int
	}{
		{"users", &st.Users},
		{"orders", &st.Orders},
		{"reviews", &st.Reviews},
		{"payments", &st.Payments},
		{"notifications", &st.Notifications},
	} {
		if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(c.dst); err != nil {
			return nil, err
		}
	}
	return &st, nil
}
