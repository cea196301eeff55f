// Package pricing содержит чистый расчёт стоимости проживания.
package pricing

import (
	"errors"
	"time"

	"github.com/mlebedeva/resort-system/internal/model"
)

// ErrInvalidRange возвращается, если дата выезда не позже даты заезда.
var ErrInvalidRange = errors.New("end date must be after start date")

// Breakdown содержит детализацию стоимости проживания. Суммы в копейках.
// BaseTotal всегда считается по базовой цене, чтобы показать стоимость
// «до скидки»; TotalPrice = BaseTotal - DiscountAmount.
type Breakdown struct {
	Nights           int
	BaseTotal        int64
	DiscountedNights int
	DiscountAmount   int64
	TotalPrice       int64
}

// Quote рассчитывает стоимость проживания в доме за полуинтервал
// [start, end). Функция чистая: не читает часы и не выполняет I/O,
// применимость скидки зависит только от переданных дат.
func Quote(house *model.House, start, end time.Time) (*Breakdown, error) {
	if !end.After(start) {
		return nil, ErrInvalidRange
	}

	nights := nightsBetween(start, end)

	b := &Breakdown{
		Nights:    nights,
		BaseTotal: int64(nights) * house.BasePrice,
	}

	night := start
	for i := 0; i < nights; i++ {
		if house.Discount.AppliesTo(night) {
			b.DiscountedNights++
			b.DiscountAmount += house.BasePrice - house.Discount.Price
		}
		night = night.AddDate(0, 0, 1)
	}

	b.TotalPrice = b.BaseTotal - b.DiscountAmount
	return b, nil
}

// nightsBetween возвращает число оплачиваемых ночей: целое число суток
// между датами с округлением вверх, минимум одна ночь.
func nightsBetween(start, end time.Time) int {
	d := end.Sub(start)
	nights := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		nights++
	}
	if nights < 1 {
		nights = 1
	}
	return nights
}
