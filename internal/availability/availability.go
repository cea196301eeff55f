// Package availability отвечает за проверку занятости домов.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mlebedeva/resort-system/internal/model"
)

// ErrStoreUnavailable возвращается, если хранилище недоступно. Проверка
// пересечений обязана завершаться ошибкой, а не ложным «свободно»: ложный
// отрицательный ответ приводит к двойному бронированию.
var ErrStoreUnavailable = errors.New("booking store unavailable")

// BookingReader описывает контракт чтения бронирований, используемый проверкой.
type BookingReader interface {
	ListActiveBookings(ctx context.Context, houseID string) ([]model.Booking, error)
}

// Checker проверяет пересечение кандидата с существующими бронированиями дома.
type Checker struct {
	store BookingReader
}

// NewChecker создаёт проверку занятости поверх указанного хранилища.
func NewChecker(store BookingReader) *Checker {
	return &Checker{store: store}
}

// HasOverlap сообщает, пересекается ли полуинтервал [start, end) хотя бы
// с одним неотменённым бронированием дома. Совпадение границ пересечением
// не считается: выезд и заезд в один день допустимы. excludeBookingID
// позволяет переносу брони игнорировать собственную запись.
func (c *Checker) HasOverlap(ctx context.Context, houseID string, start, end time.Time, excludeBookingID string) (bool, error) {
	bookings, err := c.store.ListActiveBookings(ctx, houseID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	for _, b := range bookings {
		if excludeBookingID != "" && b.ID == excludeBookingID {
			continue
		}
		if b.StartDate.Before(end) && b.EndDate.After(start) {
			return true, nil
		}
	}

	return false, nil
}
