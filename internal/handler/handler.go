// Package handler содержит HTTP-обработчики API сервиса бронирования.
package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mlebedeva/resort-system/internal/availability"
	"github.com/mlebedeva/resort-system/internal/booking"
	"github.com/mlebedeva/resort-system/internal/middleware"
	"github.com/mlebedeva/resort-system/internal/model"
	"github.com/mlebedeva/resort-system/internal/order"
	"github.com/mlebedeva/resort-system/internal/pricing"
	"github.com/mlebedeva/resort-system/internal/repository"
	"github.com/mlebedeva/resort-system/internal/router"
)

// webhookSecretHeader — заголовок с общим секретом вебхука Telegram.
const webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// BookingService определяет контракт жизненного цикла бронирований для HTTP-обработчиков.
type BookingService interface {
	Create(ctx context.Context, in booking.CreateInput) (*model.Booking, error)
	Transition(ctx context.Context, id string, to model.BookingStatus) (*model.Booking, error)
	Checkout(ctx context.Context, houseID string) error
	List(ctx context.Context, limit int) ([]model.Booking, error)
}

// OrderService определяет контракт жизненного цикла заказов для HTTP-обработчиков.
type OrderService interface {
	Create(ctx context.Context, in order.CreateInput) (*model.Order, error)
	Transition(ctx context.Context, id string, to model.OrderStatus) (*model.Order, error)
	List(ctx context.Context, limit int) ([]model.Order, error)
}

// EventRouter определяет контракт диспетчера событий чат-протокола.
type EventRouter interface {
	Handle(ctx context.Context, ev router.Event) error
}

// SettingsSource определяет доступ к записи настроек.
type SettingsSource interface {
	GetSettings(ctx context.Context) (*model.Settings, error)
}

// Handler реализует HTTP-обработчики API сервиса бронирования.
type Handler struct {
	bookings       BookingService
	orders         OrderService
	events         EventRouter
	settings       SettingsSource
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	webhookSecret  string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(bookings BookingService, orders OrderService, events EventRouter, settings SettingsSource, logger *zap.Logger, auth *middleware.AuthMiddleware, webhookSecret string) *Handler {
	return &Handler{
		bookings:       bookings,
		orders:         orders,
		events:         events,
		settings:       settings,
		logger:         logger,
		authMiddleware: auth,
		webhookSecret:  webhookSecret,
	}
}

// Webhook принимает обновления Telegram. Ответ всегда 200, кроме неверного
// секрета: Telegram повторяет доставку при любом не-2xx ответе, и ошибка
// обработки одного события не должна превращаться в бесконечные повторы.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret != "" && r.Header.Get(webhookSecretHeader) != h.webhookSecret {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Debug("dropping undecodable update", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	ev, ok := convertUpdate(&update)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.events.Handle(r.Context(), ev); err != nil {
		h.logger.Error("handle update error", zap.Error(err), zap.Int("updateID", update.UpdateID))
	}

	w.WriteHeader(http.StatusOK)
}

// convertUpdate преобразует обновление Telegram во внутреннее событие.
// Обновления без текста сообщения или данных callback не обрабатываются.
func convertUpdate(update *tgbotapi.Update) (router.Event, bool) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.Data == "" {
			return nil, false
		}
		return router.Callback{
			ID:        cb.ID,
			ChatID:    cb.Message.Chat.ID,
			MessageID: cb.Message.MessageID,
			Data:      cb.Data,
		}, true
	}

	if msg := update.Message; msg != nil && msg.Text != "" {
		return router.Message{
			ChatID: msg.Chat.ID,
			Text:   msg.Text,
		}, true
	}

	return nil, false
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// StaffLogin выполняет аутентификацию сотрудника и установку cookie сессии.
func (h *Handler) StaffLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	s, err := h.settings.GetSettings(r.Context())
	if err != nil {
		h.logger.Error("load settings error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	hash := HashCredentials(req.Login, req.Password)
	if req.Login != s.StaffLogin || !hmac.Equal(hash, s.StaffPasswordHash) {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	h.authMiddleware.SetSessionCookie(w, req.Login)
	w.WriteHeader(http.StatusOK)
}

// HashCredentials возвращает хеш пары логин-пароль для сравнения с записью настроек.
func HashCredentials(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

type contactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type bookingRequest struct {
	HouseID    string         `json:"houseId"`
	StartDate  string         `json:"startDate"`
	EndDate    string         `json:"endDate"`
	GuestCount int            `json:"guestCount"`
	Contact    contactRequest `json:"contact"`
	Origin     string         `json:"origin"`
}

type bookingResponse struct {
	ID         string  `json:"id"`
	HouseID    string  `json:"houseId"`
	HouseName  string  `json:"houseName"`
	StartDate  string  `json:"startDate"`
	EndDate    string  `json:"endDate"`
	GuestCount int     `json:"guestCount"`
	GuestName  string  `json:"guestName"`
	GuestPhone string  `json:"guestPhone"`
	TotalPrice float64 `json:"totalPrice"`
	Status     string  `json:"status"`
	Origin     string  `json:"origin"`
	CreatedAt  string  `json:"createdAt"`
}

func toBookingResponse(b *model.Booking) bookingResponse {
	return bookingResponse{
		ID:         b.ID,
		HouseID:    b.HouseID,
		HouseName:  b.HouseName,
		StartDate:  b.StartDate.Format("2006-01-02"),
		EndDate:    b.EndDate.Format("2006-01-02"),
		GuestCount: b.GuestCount,
		GuestName:  b.Contact.Name,
		GuestPhone: b.Contact.Phone,
		TotalPrice: float64(b.TotalPrice) / 100,
		Status:     string(b.Status),
		Origin:     string(b.Origin),
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
}

// CreateBooking принимает самостоятельную заявку гостя на бронирование.
// Источник бронирования всегда SELF_SERVICE независимо от тела запроса.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeBookingInput(w, r)
	if !ok {
		return
	}
	in.Origin = model.OriginSelfService

	h.createBooking(w, r, in)
}

// CreateStaffBooking создаёт бронирование от имени персонала. Бартерные
// бронирования помечаются отдельным источником, остальные — ручным.
func (h *Handler) CreateStaffBooking(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeBookingInput(w, r)
	if !ok {
		return
	}

	switch model.BookingOrigin(in.Origin) {
	case model.OriginStaffBarter:
		in.Origin = model.OriginStaffBarter
	default:
		in.Origin = model.OriginStaffManual
	}

	h.createBooking(w, r, in)
}

func (h *Handler) decodeBookingInput(w http.ResponseWriter, r *http.Request) (booking.CreateInput, bool) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return booking.CreateInput{}, false
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		http.Error(w, "invalid startDate", http.StatusBadRequest)
		return booking.CreateInput{}, false
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		http.Error(w, "invalid endDate", http.StatusBadRequest)
		return booking.CreateInput{}, false
	}

	return booking.CreateInput{
		HouseID:    req.HouseID,
		StartDate:  start,
		EndDate:    end,
		GuestCount: req.GuestCount,
		Contact: model.Contact{
			Name:  req.Contact.Name,
			Phone: req.Contact.Phone,
			Email: req.Contact.Email,
		},
		Origin: model.BookingOrigin(req.Origin),
	}, true
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request, in booking.CreateInput) {
	b, err := h.bookings.Create(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidContact), errors.Is(err, pricing.ErrInvalidRange):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, booking.ErrCapacityExceeded):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, booking.ErrUnavailable):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, repository.ErrHouseNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, availability.ErrStoreUnavailable):
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		default:
			h.logger.Error("create booking error", zap.Error(err), zap.String("houseID", in.HouseID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

// ListBookings возвращает последние бронирования для консоли персонала.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.List(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.Error("list bookings error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		resp = append(resp, toBookingResponse(&bookings[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateBookingStatus переводит бронирование в запрошенный статус.
func (h *Handler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	target := model.BookingStatus(req.Status)
	switch target {
	case model.BookingStatusConfirmed, model.BookingStatusCancelled:
	default:
		http.Error(w, "unknown target status", http.StatusBadRequest)
		return
	}

	b, err := h.bookings.Transition(r.Context(), id, target)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, booking.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("booking transition error", zap.Error(err), zap.String("bookingID", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// CheckoutHouse очищает сведения о жильцах дома.
func (h *Handler) CheckoutHouse(w http.ResponseWriter, r *http.Request, houseID string) {
	if err := h.bookings.Checkout(r.Context(), houseID); err != nil {
		if errors.Is(err, repository.ErrHouseNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("checkout error", zap.Error(err), zap.String("houseID", houseID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type orderItemRequest struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type orderRequest struct {
	Items        []orderItemRequest `json:"items"`
	DeliveryType string             `json:"deliveryType"`
	HouseRef     string             `json:"houseRef"`
	Note         string             `json:"note"`
}

type orderItemResponse struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type orderResponse struct {
	ID           string              `json:"id"`
	Items        []orderItemResponse `json:"items"`
	TotalAmount  float64             `json:"totalAmount"`
	Status       string              `json:"status"`
	DeliveryType string              `json:"deliveryType"`
	HouseRef     string              `json:"houseRef,omitempty"`
	Note         string              `json:"note,omitempty"`
	CreatedAt    string              `json:"createdAt"`
	UpdatedAt    string              `json:"updatedAt"`
}

func toOrderResponse(o *model.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			Name:     item.Name,
			Price:    float64(item.Price) / 100,
			Quantity: item.Quantity,
		})
	}

	return orderResponse{
		ID:           o.ID,
		Items:        items,
		TotalAmount:  float64(o.TotalAmount) / 100,
		Status:       string(o.Status),
		DeliveryType: string(o.DeliveryType),
		HouseRef:     o.HouseRef,
		Note:         o.Note,
		CreatedAt:    o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    o.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateOrder принимает заказ кухни.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	delivery := model.DeliveryType(req.DeliveryType)
	switch delivery {
	case model.DeliveryHouse, model.DeliveryPickup:
	default:
		http.Error(w, "unknown delivery type", http.StatusBadRequest)
		return
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 1 || item.Price < 0 {
			http.Error(w, "invalid order item", http.StatusBadRequest)
			return
		}
		items = append(items, model.OrderItem{
			Name:     item.Name,
			Price:    int64(math.Round(item.Price * 100)),
			Quantity: item.Quantity,
		})
	}

	o, err := h.orders.Create(r.Context(), order.CreateInput{
		Items:        items,
		DeliveryType: delivery,
		HouseRef:     req.HouseRef,
		Note:         req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, order.ErrEmptyOrder), errors.Is(err, order.ErrMissingDestination):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("create order error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// ListOrders возвращает последние заказы для консоли персонала.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.Error("list orders error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateOrderStatus переводит заказ в запрошенный статус.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	target := model.OrderStatus(req.Status)
	switch target {
	case model.OrderStatusConfirmed, model.OrderStatusPreparing, model.OrderStatusReady,
		model.OrderStatusDelivered, model.OrderStatusCancelled:
	default:
		http.Error(w, "unknown target status", http.StatusBadRequest)
		return
	}

	o, err := h.orders.Transition(r.Context(), id, target)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, order.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("order transition error", zap.Error(err), zap.String("orderID", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

const defaultListLimit = 50

func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return defaultListLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
