// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mlebedeva/resort-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrHouseNotFound возвращается, если дом не найден.
var (
	ErrHouseNotFound = errors.New("house not found")
	// ErrBookingNotFound возвращается, если бронирование не найдено.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrSettingsNotFound возвращается, если запись настроек отсутствует.
	ErrSettingsNotFound = errors.New("settings not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const houseColumns = `id, name, base_price, capacity,
	discount_price, discount_active, discount_start, discount_end, discount_weekdays, discount_label,
	occupant_name, occupant_phone, occupant_checkout`

// GetHouse возвращает дом по идентификатору.
func (r *PostgresRepository) GetHouse(ctx context.Context, id string) (*model.House, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+houseColumns+` FROM houses WHERE id = $1`,
		id,
	)

	var (
		h                model.House
		discountPrice    *int64
		discountActive   bool
		discountStart    *time.Time
		discountEnd      *time.Time
		discountWeekdays []int32
		discountLabel    string
		occupantName     *string
		occupantPhone    *string
		occupantCheckout *time.Time
	)

	err := row.Scan(&h.ID, &h.Name, &h.BasePrice, &h.Capacity,
		&discountPrice, &discountActive, &discountStart, &discountEnd, &discountWeekdays, &discountLabel,
		&occupantName, &occupantPhone, &occupantCheckout)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHouseNotFound
		}
		return nil, fmt.Errorf("get house: %w", err)
	}

	if discountPrice != nil {
		d := &model.Discount{
			Price:     *discountPrice,
			Active:    discountActive,
			StartDate: discountStart,
			EndDate:   discountEnd,
			Label:     discountLabel,
		}
		for _, wd := range discountWeekdays {
			d.Weekdays = append(d.Weekdays, time.Weekday(wd))
		}
		h.Discount = d
	}

	if occupantName != nil || occupantPhone != nil {
		occ := &model.Occupancy{}
		if occupantName != nil {
			occ.GuestName = *occupantName
		}
		if occupantPhone != nil {
			occ.GuestPhone = *occupantPhone
		}
		if occupantCheckout != nil {
			occ.CheckoutDate = *occupantCheckout
		}
		h.Occupancy = occ
	}

	return &h, nil
}

// UpdateHouseOccupancy записывает сведения о текущих жильцах дома.
// Передача nil очищает запись (выселение).
func (r *PostgresRepository) UpdateHouseOccupancy(ctx context.Context, houseID string, occ *model.Occupancy) error {
	var (
		name, phone *string
		checkout    *time.Time
	)
	if occ != nil {
		name = &occ.GuestName
		phone = &occ.GuestPhone
		checkout = &occ.CheckoutDate
	}

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE houses SET occupant_name = $2, occupant_phone = $3, occupant_checkout = $4 WHERE id = $1`,
		houseID, name, phone, checkout,
	)
	if err != nil {
		return fmt.Errorf("update occupancy: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrHouseNotFound
	}
	return nil
}

const bookingColumns = `id, house_id, house_name, start_date, end_date, guest_count,
	guest_name, guest_phone, guest_email, total_price, status, origin, created_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	var status, origin string
	err := row.Scan(&b.ID, &b.HouseID, &b.HouseName, &b.StartDate, &b.EndDate, &b.GuestCount,
		&b.Contact.Name, &b.Contact.Phone, &b.Contact.Email, &b.TotalPrice, &status, &origin, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	b.Origin = model.BookingOrigin(origin)
	return &b, nil
}

// CreateBooking сохраняет новое бронирование.
func (r *PostgresRepository) CreateBooking(ctx context.Context, b *model.Booking) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bookings (id, house_id, house_name, start_date, end_date, guest_count,
			guest_name, guest_phone, guest_email, total_price, status, origin, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		b.ID, b.HouseID, b.HouseName, b.StartDate, b.EndDate, b.GuestCount,
		b.Contact.Name, b.Contact.Phone, b.Contact.Email, b.TotalPrice,
		string(b.Status), string(b.Origin), b.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("%w: %s", ErrHouseNotFound, b.HouseID)
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetBooking возвращает бронирование по идентификатору.
func (r *PostgresRepository) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) queryBookings(ctx context.Context, query string, args ...any) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select bookings: %w", err)
	}
	defer rows.Close()

	var res []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		res = append(res, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListActiveBookings возвращает неотменённые бронирования дома для проверки пересечений.
func (r *PostgresRepository) ListActiveBookings(ctx context.Context, houseID string) ([]model.Booking, error) {
	return r.queryBookings(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE house_id = $1 AND status IN ($2, $3)
		 ORDER BY start_date`,
		houseID, string(model.BookingStatusPending), string(model.BookingStatusConfirmed),
	)
}

// ListPendingBookings возвращает все бронирования, ожидающие подтверждения.
func (r *PostgresRepository) ListPendingBookings(ctx context.Context) ([]model.Booking, error) {
	return r.queryBookings(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE status = $1
		 ORDER BY created_at`,
		string(model.BookingStatusPending),
	)
}

// ListArrivals возвращает подтверждённые бронирования с заездом в указанный день.
func (r *PostgresRepository) ListArrivals(ctx context.Context, day time.Time) ([]model.Booking, error) {
	return r.queryBookings(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE status = $1 AND start_date = $2
		 ORDER BY house_name`,
		string(model.BookingStatusConfirmed), day,
	)
}

// ListBookings возвращает последние бронирования для консоли персонала.
func (r *PostgresRepository) ListBookings(ctx context.Context, limit int) ([]model.Booking, error) {
	return r.queryBookings(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
}

// UpdateBookingStatus переводит бронирование из статуса from в статус to.
// Возвращает false, если предусловие не выполнено: запись отсутствует или
// статус уже изменён параллельным запросом.
func (r *PostgresRepository) UpdateBookingStatus(ctx context.Context, id string, from, to model.BookingStatus) (bool, error) {
	var updated bool
	err := r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx,
			`UPDATE bookings SET status = $3 WHERE id = $1 AND status = $2`,
			id, string(from), string(to),
		)
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		updated = cmdTag.RowsAffected() == 1
		return nil
	})
	return updated, err
}

const orderColumns = `id, items, total_amount, status, delivery_type, house_ref, note, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var itemsRaw []byte
	var status, deliveryType string
	err := row.Scan(&o.ID, &itemsRaw, &o.TotalAmount, &status, &deliveryType,
		&o.HouseRef, &o.Note, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsRaw, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	o.Status = model.OrderStatus(status)
	o.DeliveryType = model.DeliveryType(deliveryType)
	return &o, nil
}

// CreateOrder сохраняет новый заказ.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	itemsRaw, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO orders (id, items, total_amount, status, delivery_type, house_ref, note, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, itemsRaw, o.TotalAmount, string(o.Status), string(o.DeliveryType),
		o.HouseRef, o.Note, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListOrders возвращает последние заказы для консоли персонала.
func (r *PostgresRepository) ListOrders(ctx context.Context, limit int) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateOrderStatus переводит заказ из статуса from в статус to и обновляет updated_at.
// Возвращает false, если предусловие не выполнено.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus) (bool, error) {
	var updated bool
	err := r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx,
			`UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
			id, string(from), string(to),
		)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		updated = cmdTag.RowsAffected() == 1
		return nil
	})
	return updated, err
}

// ListMenuCategories возвращает разделы меню в порядке отображения.
func (r *PostgresRepository) ListMenuCategories(ctx context.Context) ([]model.MenuCategory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, position FROM menu_categories ORDER BY position, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var res []model.MenuCategory
	for rows.Next() {
		var c model.MenuCategory
		if err := rows.Scan(&c.ID, &c.Title, &c.Position); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListMenuItems возвращает доступные блюда раздела меню.
func (r *PostgresRepository) ListMenuItems(ctx context.Context, categoryID int64) ([]model.MenuItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category_id, name, price, description, photo_url, available
		 FROM menu_items
		 WHERE category_id = $1 AND available
		 ORDER BY name`,
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("select menu items: %w", err)
	}
	defer rows.Close()

	var res []model.MenuItem
	for rows.Next() {
		var m model.MenuItem
		if err := rows.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Price, &m.Description, &m.PhotoURL, &m.Available); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetSettings возвращает единственную запись настроек.
func (r *PostgresRepository) GetSettings(ctx context.Context) (*model.Settings, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT bot_token, operator_chat_id, address, latitude, longitude,
			payment_details, staff_login, staff_password_hash
		 FROM settings WHERE id = 1`,
	)

	var s model.Settings
	err := row.Scan(&s.BotToken, &s.OperatorChatID, &s.Address, &s.Latitude, &s.Longitude,
		&s.PaymentDetails, &s.StaffLogin, &s.StaffPasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}

	return &s, nil
}
