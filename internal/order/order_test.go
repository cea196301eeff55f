package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mlebedeva/resort-system/internal/model"
)

type stubStore struct {
	orders        map[string]*model.Order
	created       []*model.Order
	statusUpdates int
}

func newStubStore() *stubStore {
	return &stubStore{orders: map[string]*model.Order{}}
}

func (s *stubStore) CreateOrder(ctx context.Context, o *model.Order) error {
	cp := *o
	s.orders[o.ID] = &cp
	s.created = append(s.created, &cp)
	return nil
}

func (s *stubStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, errors.New("order not found")
	}
	cp := *o
	return &cp, nil
}

func (s *stubStore) UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus) (bool, error) {
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	s.statusUpdates++
	return true, nil
}

func (s *stubStore) ListOrders(ctx context.Context, limit int) ([]model.Order, error) {
	return nil, nil
}

type recordingNotifier struct {
	kinds    []string
	payloads []map[string]any
}

func (n *recordingNotifier) Notify(ctx context.Context, kind string, payload map[string]any) {
	n.kinds = append(n.kinds, kind)
	n.payloads = append(n.payloads, payload)
}

func newTestService(store *stubStore, notifier *recordingNotifier) *Service {
	svc := NewService(store, notifier)
	svc.now = func() time.Time { return time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreate_RecomputesTotal(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, &recordingNotifier{})

	// Клиент прислал бы totalAmount=5 — сумма всё равно считается по позициям.
	o, err := svc.Create(context.Background(), CreateInput{
		Items: []model.OrderItem{
			{Name: "Борщ", Price: 1000, Quantity: 2},
		},
		DeliveryType: model.DeliveryPickup,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if o.TotalAmount != 2000 {
		t.Fatalf("totalAmount = %d, want 2000", o.TotalAmount)
	}
	if o.Status != model.OrderStatusPending {
		t.Fatalf("status = %s, want PENDING", o.Status)
	}
	if o.UpdatedAt.Before(o.CreatedAt) {
		t.Fatalf("updatedAt %v before createdAt %v", o.UpdatedAt, o.CreatedAt)
	}
}

func TestCreate_EmptyOrder(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, &recordingNotifier{})

	_, err := svc.Create(context.Background(), CreateInput{DeliveryType: model.DeliveryPickup})
	if !errors.Is(err, ErrEmptyOrder) {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
	if len(store.created) != 0 {
		t.Fatalf("no order must be written")
	}
}

func TestCreate_HouseDeliveryRequiresHouse(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, &recordingNotifier{})

	_, err := svc.Create(context.Background(), CreateInput{
		Items:        []model.OrderItem{{Name: "Чай", Price: 200, Quantity: 1}},
		DeliveryType: model.DeliveryHouse,
	})
	if !errors.Is(err, ErrMissingDestination) {
		t.Fatalf("expected ErrMissingDestination, got %v", err)
	}
}

func TestTransition_ForwardChain(t *testing.T) {
	store := newStubStore()
	store.orders["o1"] = &model.Order{ID: "o1", Status: model.OrderStatusPending, DeliveryType: model.DeliveryPickup}
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier)

	chain := []model.OrderStatus{
		model.OrderStatusConfirmed,
		model.OrderStatusPreparing,
		model.OrderStatusReady,
		model.OrderStatusDelivered,
	}

	for _, to := range chain {
		if _, err := svc.Transition(context.Background(), "o1", to); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}

	wantKinds := []string{"order_confirmed", "order_preparing", "order_ready", "order_delivered"}
	if len(notifier.kinds) != len(wantKinds) {
		t.Fatalf("notifications = %v, want %v", notifier.kinds, wantKinds)
	}
	for i, k := range wantKinds {
		if notifier.kinds[i] != k {
			t.Fatalf("notification[%d] = %s, want %s", i, notifier.kinds[i], k)
		}
	}
}

func TestTransition_NoSkippingSteps(t *testing.T) {
	store := newStubStore()
	store.orders["o1"] = &model.Order{ID: "o1", Status: model.OrderStatusPending}
	svc := newTestService(store, &recordingNotifier{})

	for _, to := range []model.OrderStatus{
		model.OrderStatusPreparing,
		model.OrderStatusReady,
		model.OrderStatusDelivered,
	} {
		if _, err := svc.Transition(context.Background(), "o1", to); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("PENDING -> %s must be rejected, got %v", to, err)
		}
	}
	if store.orders["o1"].Status != model.OrderStatusPending {
		t.Fatalf("status changed by rejected transitions")
	}
}

func TestTransition_CancelFromEveryNonTerminalState(t *testing.T) {
	for _, from := range []model.OrderStatus{
		model.OrderStatusPending,
		model.OrderStatusConfirmed,
		model.OrderStatusPreparing,
		model.OrderStatusReady,
	} {
		store := newStubStore()
		store.orders["o1"] = &model.Order{ID: "o1", Status: from}
		svc := newTestService(store, &recordingNotifier{})

		if _, err := svc.Transition(context.Background(), "o1", model.OrderStatusCancelled); err != nil {
			t.Fatalf("cancel from %s: %v", from, err)
		}
	}
}

func TestTransition_TerminalStates(t *testing.T) {
	for _, from := range []model.OrderStatus{model.OrderStatusDelivered, model.OrderStatusCancelled} {
		store := newStubStore()
		store.orders["o1"] = &model.Order{ID: "o1", Status: from}
		svc := newTestService(store, &recordingNotifier{})

		if _, err := svc.Transition(context.Background(), "o1", model.OrderStatusCancelled); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("transition from terminal %s must be rejected, got %v", from, err)
		}
	}
}

func TestTransition_Idempotent(t *testing.T) {
	store := newStubStore()
	store.orders["o1"] = &model.Order{ID: "o1", Status: model.OrderStatusPending}
	svc := newTestService(store, &recordingNotifier{})

	if _, err := svc.Transition(context.Background(), "o1", model.OrderStatusConfirmed); err != nil {
		t.Fatalf("first transition: %v", err)
	}

	_, err := svc.Transition(context.Background(), "o1", model.OrderStatusConfirmed)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("replay must return ErrInvalidTransition, got %v", err)
	}
	if store.statusUpdates != 1 {
		t.Fatalf("statusUpdates = %d, want 1", store.statusUpdates)
	}
}

func TestTransition_ReadyNotificationCarriesDelivery(t *testing.T) {
	store := newStubStore()
	store.orders["o1"] = &model.Order{
		ID:           "o1",
		Status:       model.OrderStatusPreparing,
		DeliveryType: model.DeliveryHouse,
		HouseRef:     "7",
	}
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier)

	if _, err := svc.Transition(context.Background(), "o1", model.OrderStatusReady); err != nil {
		t.Fatalf("transition: %v", err)
	}

	if len(notifier.payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(notifier.payloads))
	}
	if notifier.payloads[0]["delivery"] != "дом 7" {
		t.Fatalf("delivery = %v, want 'дом 7'", notifier.payloads[0]["delivery"])
	}
}

func TestNext(t *testing.T) {
	if next, ok := Next(model.OrderStatusPending); !ok || next != model.OrderStatusConfirmed {
		t.Fatalf("Next(PENDING) = %s, %v", next, ok)
	}
	if _, ok := Next(model.OrderStatusDelivered); ok {
		t.Fatalf("Next(DELIVERED) must report no next step")
	}
	if _, ok := Next(model.OrderStatusCancelled); ok {
		t.Fatalf("Next(CANCELLED) must report no next step")
	}
}
