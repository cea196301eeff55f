// Package booking реализует жизненный цикл бронирований домов.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mlebedeva/resort-system/internal/model"
	"github.com/mlebedeva/resort-system/internal/pricing"
	"github.com/mlebedeva/resort-system/internal/validation"
)

// ErrCapacityExceeded возвращается, если гостей больше вместимости дома.
var (
	ErrCapacityExceeded = errors.New("guest count exceeds house capacity")
	// ErrUnavailable возвращается, если даты пересекаются с существующим бронированием.
	ErrUnavailable = errors.New("house is unavailable for the requested dates")
	// ErrInvalidTransition возвращается при недопустимой смене статуса.
	ErrInvalidTransition = errors.New("invalid booking status transition")
	// ErrInvalidContact возвращается при некорректных контактных данных гостя.
	ErrInvalidContact = errors.New("invalid guest contact")
)

// Store описывает контракт доступа к данным, используемый жизненным циклом бронирований.
type Store interface {
	GetHouse(ctx context.Context, id string) (*model.House, error)
	UpdateHouseOccupancy(ctx context.Context, houseID string, occ *model.Occupancy) error
	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, from, to model.BookingStatus) (bool, error)
	ListPendingBookings(ctx context.Context) ([]model.Booking, error)
	ListArrivals(ctx context.Context, day time.Time) ([]model.Booking, error)
	ListBookings(ctx context.Context, limit int) ([]model.Booking, error)
}

// Availability описывает контракт проверки занятости дома.
type Availability interface {
	HasOverlap(ctx context.Context, houseID string, start, end time.Time, excludeBookingID string) (bool, error)
}

// Notifier описывает контракт отправки уведомлений. Отправка не возвращает
// ошибку: сбои уведомлений не должны откатывать уже сохранённый переход.
type Notifier interface {
	Notify(ctx context.Context, kind string, payload map[string]any)
}

// Service реализует операции жизненного цикла бронирований.
type Service struct {
	store    Store
	checker  Availability
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService создаёт сервис бронирований.
func NewService(store Store, checker Availability, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		checker:  checker,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateInput содержит параметры создания бронирования.
type CreateInput struct {
	HouseID    string
	StartDate  time.Time
	EndDate    time.Time
	GuestCount int
	Contact    model.Contact
	Origin     model.BookingOrigin
}

// Create создаёт бронирование. Самостоятельные бронирования создаются в
// статусе PENDING; бронирования персонала подтверждаются сразу и, если
// проживание охватывает сегодняшний день, заполняют сведения о жильцах дома.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Booking, error) {
	if in.Contact.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidContact)
	}
	if in.Contact.Phone != "" {
		normalized, ok := validation.NormalizePhone(in.Contact.Phone)
		if !ok {
			return nil, fmt.Errorf("%w: bad phone %q", ErrInvalidContact, in.Contact.Phone)
		}
		in.Contact.Phone = normalized
	}

	house, err := s.store.GetHouse(ctx, in.HouseID)
	if err != nil {
		return nil, err
	}

	if in.GuestCount < 1 || in.GuestCount > house.Capacity {
		return nil, fmt.Errorf("%w: %d guests, capacity %d", ErrCapacityExceeded, in.GuestCount, house.Capacity)
	}

	quote, err := pricing.Quote(house, in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}

	overlap, err := s.checker.HasOverlap(ctx, in.HouseID, in.StartDate, in.EndDate, "")
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, fmt.Errorf("%w: %s — %s", ErrUnavailable,
			in.StartDate.Format("02.01.2006"), in.EndDate.Format("02.01.2006"))
	}

	status := model.BookingStatusPending
	if in.Origin != model.OriginSelfService {
		status = model.BookingStatusConfirmed
	}

	b := &model.Booking{
		ID:         uuid.NewString(),
		HouseID:    house.ID,
		HouseName:  house.Name,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		GuestCount: in.GuestCount,
		Contact:    in.Contact,
		TotalPrice: quote.TotalPrice,
		Status:     status,
		Origin:     in.Origin,
		CreatedAt:  s.now(),
	}

	if err := s.store.CreateBooking(ctx, b); err != nil {
		return nil, err
	}

	if status == model.BookingStatusConfirmed && s.coversToday(b) {
		occ := &model.Occupancy{
			GuestName:    b.Contact.Name,
			GuestPhone:   b.Contact.Phone,
			CheckoutDate: b.EndDate,
		}
		if err := s.store.UpdateHouseOccupancy(ctx, b.HouseID, occ); err != nil {
			// Запись о жильцах — денормализованный снимок; бронирование уже сохранено.
			s.logger.Error("update occupancy failed", zap.Error(err), zap.String("houseID", b.HouseID))
		}
	}

	s.notifier.Notify(ctx, "booking_created", bookingPayload(b))

	return b, nil
}

// coversToday сообщает, охватывает ли проживание текущий день.
func (s *Service) coversToday(b *model.Booking) bool {
	today := truncateToDay(s.now().UTC())
	return !b.StartDate.After(today) && b.EndDate.After(today)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// canTransition описывает граф статусов: PENDING → CONFIRMED | CANCELLED,
// CONFIRMED → CANCELLED; CANCELLED терминален, воскрешение запрещено.
func canTransition(from, to model.BookingStatus) bool {
	switch from {
	case model.BookingStatusPending:
		return to == model.BookingStatusConfirmed || to == model.BookingStatusCancelled
	case model.BookingStatusConfirmed:
		return to == model.BookingStatusCancelled
	default:
		return false
	}
}

// Transition переводит бронирование в новый статус. Переход идемпотентен:
// повторный вызов с тем же целевым статусом возвращает ErrInvalidTransition
// и не меняет сохранённое состояние. Уведомление отправляется только после
// успешной записи.
func (s *Service) Transition(ctx context.Context, id string, to model.BookingStatus) (*model.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canTransition(b.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}

	ok, err := s.store.UpdateBookingStatus(ctx, id, b.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Статус изменён параллельным запросом между чтением и условной записью.
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}

	b.Status = to

	switch to {
	case model.BookingStatusConfirmed:
		s.notifier.Notify(ctx, "booking_confirmed", bookingPayload(b))
	case model.BookingStatusCancelled:
		s.notifier.Notify(ctx, "booking_cancelled", bookingPayload(b))
	}

	return b, nil
}

// Checkout очищает сведения о жильцах дома. Статус бронирования не меняется:
// дом может быть выселен, пока бронирование остаётся подтверждённым в истории.
func (s *Service) Checkout(ctx context.Context, houseID string) error {
	return s.store.UpdateHouseOccupancy(ctx, houseID, nil)
}

// Get возвращает бронирование по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (*model.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// ListPending возвращает бронирования, ожидающие подтверждения.
func (s *Service) ListPending(ctx context.Context) ([]model.Booking, error) {
	return s.store.ListPendingBookings(ctx)
}

// ListArrivals возвращает подтверждённые бронирования с заездом в указанный день.
func (s *Service) ListArrivals(ctx context.Context, day time.Time) ([]model.Booking, error) {
	return s.store.ListArrivals(ctx, day)
}

// List возвращает последние бронирования.
func (s *Service) List(ctx context.Context, limit int) ([]model.Booking, error) {
	return s.store.ListBookings(ctx, limit)
}

func bookingPayload(b *model.Booking) map[string]any {
	return map[string]any{
		"bookingID":  b.ID,
		"houseID":    b.HouseID,
		"houseName":  b.HouseName,
		"startDate":  b.StartDate.Format("2006-01-02"),
		"endDate":    b.EndDate.Format("2006-01-02"),
		"guestName":  b.Contact.Name,
		"totalPrice": float64(b.TotalPrice) / 100,
		"status":     string(b.Status),
	}
}
