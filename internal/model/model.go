// Package model содержит доменные сущности сервиса бронирования базы отдыха.
package model

import "time"

// BookingStatus описывает статус бронирования дома.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// BookingOrigin описывает источник создания бронирования.
type BookingOrigin string

const (
	// OriginSelfService — бронирование, оформленное гостем самостоятельно.
	OriginSelfService BookingOrigin = "SELF_SERVICE"
	// OriginStaffManual — бронирование, оформленное персоналом вручную.
	OriginStaffManual BookingOrigin = "STAFF_MANUAL"
	// OriginStaffBarter — бронирование по бартеру, оформленное персоналом.
	OriginStaffBarter BookingOrigin = "STAFF_BARTER"
)

// OrderStatus описывает статус заказа кухни.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// DeliveryType описывает способ получения заказа.
type DeliveryType string

const (
	DeliveryHouse  DeliveryType = "HOUSE"
	DeliveryPickup DeliveryType = "PICKUP"
)

// Discount описывает условную скидку на ночь проживания.
// Суммы хранятся в копейках. Границы действия включительны и выровнены
// по полуночи; пустой набор дней недели означает «каждый день».
type Discount struct {
	Price     int64
	Active    bool
	StartDate *time.Time
	EndDate   *time.Time
	Weekdays  []time.Weekday
	Label     string
}

// AppliesTo сообщает, действует ли скидка на указанную календарную ночь.
func (d *Discount) AppliesTo(night time.Time) bool {
	if d == nil || !d.Active {
		return false
	}
	if d.StartDate != nil && night.Before(*d.StartDate) {
		return false
	}
	if d.EndDate != nil && night.After(*d.EndDate) {
		return false
	}
	if len(d.Weekdays) == 0 {
		return true
	}
	for _, wd := range d.Weekdays {
		if night.Weekday() == wd {
			return true
		}
	}
	return false
}

// Occupancy содержит сведения о текущих жильцах дома.
type Occupancy struct {
	GuestName    string
	GuestPhone   string
	CheckoutDate time.Time
}

// House описывает дом базы отдыха. Цена за ночь хранится в копейках.
type House struct {
	ID        string
	Name      string
	BasePrice int64
	Capacity  int
	Discount  *Discount
	Occupancy *Occupancy
}

// Contact содержит контактные данные гостя.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// Booking описывает бронирование дома на полуинтервал дат [StartDate, EndDate).
type Booking struct {
	ID         string
	HouseID    string
	HouseName  string
	StartDate  time.Time
	EndDate    time.Time
	GuestCount int
	Contact    Contact
	TotalPrice int64
	Status     BookingStatus
	Origin     BookingOrigin
	CreatedAt  time.Time
}

// OrderItem описывает позицию заказа — снимок названия и цены на момент заказа.
type OrderItem struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Order описывает заказ кухни.
type Order struct {
	ID           string
	Items        []OrderItem
	TotalAmount  int64
	Status       OrderStatus
	DeliveryType DeliveryType
	HouseRef     string
	Note         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MenuCategory описывает раздел меню кухни.
type MenuCategory struct {
	ID       int64
	Title    string
	Position int
}

// MenuItem описывает блюдо в меню. Цена хранится в копейках.
type MenuItem struct {
	ID          int64
	CategoryID  int64
	Name        string
	Price       int64
	Description string
	PhotoURL    string
	Available   bool
}

// Settings содержит единственную запись настроек: учётные данные бота,
// идентификатор чата оператора и справочную информацию для гостей.
type Settings struct {
	BotToken          string
	OperatorChatID    int64
	Address           string
	Latitude          float64
	Longitude         float64
	PaymentDetails    string
	StaffLogin        string
	StaffPasswordHash []byte
}
