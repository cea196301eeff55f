// Package order реализует жизненный цикл заказов кухни.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mlebedeva/resort-system/internal/model"
)

// ErrEmptyOrder возвращается при попытке создать заказ без позиций.
var (
	ErrEmptyOrder = errors.New("order has no items")
	// ErrMissingDestination возвращается, если для доставки в дом не указан дом.
	ErrMissingDestination = errors.New("house delivery requires a house reference")
	// ErrInvalidTransition возвращается при недопустимой смене статуса заказа.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Store описывает контракт доступа к данным, используемый жизненным циклом заказов.
type Store interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus) (bool, error)
	ListOrders(ctx context.Context, limit int) ([]model.Order, error)
}

// Notifier описывает контракт отправки уведомлений о смене статуса заказа.
type Notifier interface {
	Notify(ctx context.Context, kind string, payload map[string]any)
}

// Service реализует операции жизненного цикла заказов.
type Service struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

// NewService создаёт сервис заказов.
func NewService(store Store, notifier Notifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// CreateInput содержит параметры создания заказа.
type CreateInput struct {
	Items        []model.OrderItem
	DeliveryType model.DeliveryType
	HouseRef     string
	Note         string
}

// Create создаёт заказ. Итоговая сумма всегда пересчитывается на сервере
// по снимкам позиций — сумме, присланной клиентом, доверять нельзя.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if in.DeliveryType == model.DeliveryHouse && in.HouseRef == "" {
		return nil, ErrMissingDestination
	}

	var total int64
	for _, item := range in.Items {
		total += item.Price * int64(item.Quantity)
	}

	now := s.now()
	o := &model.Order{
		ID:           uuid.NewString(),
		Items:        in.Items,
		TotalAmount:  total,
		Status:       model.OrderStatusPending,
		DeliveryType: in.DeliveryType,
		HouseRef:     in.HouseRef,
		Note:         in.Note,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateOrder(ctx, o); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, "order_created", orderPayload(o))

	return o, nil
}

// Next возвращает следующий шаг кухонного конвейера для указанного статуса.
func Next(status model.OrderStatus) (model.OrderStatus, bool) {
	switch status {
	case model.OrderStatusPending:
		return model.OrderStatusConfirmed, true
	case model.OrderStatusConfirmed:
		return model.OrderStatusPreparing, true
	case model.OrderStatusPreparing:
		return model.OrderStatusReady, true
	case model.OrderStatusReady:
		return model.OrderStatusDelivered, true
	default:
		return "", false
	}
}

// canTransition описывает граф статусов заказа: строгий конвейер
// PENDING → CONFIRMED → PREPARING → READY → DELIVERED, из каждого
// нетерминального статуса доступна отмена. Перешагивание и изменение
// порядка шагов запрещены.
func canTransition(from, to model.OrderStatus) bool {
	if next, ok := Next(from); ok && to == next {
		return true
	}
	switch from {
	case model.OrderStatusPending, model.OrderStatusConfirmed, model.OrderStatusPreparing, model.OrderStatusReady:
		return to == model.OrderStatusCancelled
	default:
		return false
	}
}

// Transition переводит заказ в новый статус. Контракт идемпотентности тот же,
// что у бронирований: повторное применение возвращает ErrInvalidTransition
// и не меняет сохранённое состояние.
func (s *Service) Transition(ctx context.Context, id string, to model.OrderStatus) (*model.Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canTransition(o.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	ok, err := s.store.UpdateOrderStatus(ctx, id, o.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	o.Status = to
	o.UpdatedAt = s.now()

	payload := orderPayload(o)
	if to == model.OrderStatusReady {
		// Для готового заказа уведомление содержит указания по выдаче.
		if o.DeliveryType == model.DeliveryHouse {
			payload["delivery"] = "дом " + o.HouseRef
		} else {
			payload["delivery"] = "самовывоз"
		}
	}
	s.notifier.Notify(ctx, "order_"+statusKind(to), payload)

	return o, nil
}

// Get возвращает заказ по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (*model.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// List возвращает последние заказы.
func (s *Service) List(ctx context.Context, limit int) ([]model.Order, error) {
	return s.store.ListOrders(ctx, limit)
}

func statusKind(status model.OrderStatus) string {
	switch status {
	case model.OrderStatusConfirmed:
		return "confirmed"
	case model.OrderStatusPreparing:
		return "preparing"
	case model.OrderStatusReady:
		return "ready"
	case model.OrderStatusDelivered:
		return "delivered"
	case model.OrderStatusCancelled:
		return "cancelled"
	default:
		return "updated"
	}
}

func orderPayload(o *model.Order) map[string]any {
	return map[string]any{
		"orderID":     o.ID,
		"totalAmount": float64(o.TotalAmount) / 100,
		"status":      string(o.Status),
		"items":       len(o.Items),
	}
}
