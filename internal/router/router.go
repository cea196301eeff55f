// Package router реализует диспетчер входящих событий чат-протокола.
//
// Роутер не хранит состояния между вызовами: всё состояние живёт в
// жизненных циклах бронирований и заказов и в записи настроек.
package router

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mlebedeva/resort-system/internal/booking"
	"github.com/mlebedeva/resort-system/internal/model"
	"github.com/mlebedeva/resort-system/internal/order"
	"github.com/mlebedeva/resort-system/internal/telegram"
)

// Event — входящее событие чат-протокола: сообщение или callback.
type Event interface {
	isEvent()
}

// Message — текстовое сообщение, возможно содержащее команду.
type Message struct {
	ChatID int64
	Text   string
}

// Callback — нажатие inline-кнопки с токеном действия.
type Callback struct {
	ID        string
	ChatID    int64
	MessageID int
	Data      string
}

func (Message) isEvent()  {}
func (Callback) isEvent() {}

// Bookings описывает операции жизненного цикла бронирований, нужные роутеру.
type Bookings interface {
	Get(ctx context.Context, id string) (*model.Booking, error)
	Transition(ctx context.Context, id string, to model.BookingStatus) (*model.Booking, error)
	ListPending(ctx context.Context) ([]model.Booking, error)
	ListArrivals(ctx context.Context, day time.Time) ([]model.Booking, error)
}

// Orders описывает операции жизненного цикла заказов, нужные роутеру.
type Orders interface {
	Get(ctx context.Context, id string) (*model.Order, error)
	Transition(ctx context.Context, id string, to model.OrderStatus) (*model.Order, error)
}

// Menu описывает доступ к меню кухни.
type Menu interface {
	ListMenuCategories(ctx context.Context) ([]model.MenuCategory, error)
	ListMenuItems(ctx context.Context, categoryID int64) ([]model.MenuItem, error)
}

// SettingsSource описывает доступ к записи настроек.
type SettingsSource interface {
	GetSettings(ctx context.Context) (*model.Settings, error)
}

// Gateway описывает исходящие вызовы шлюза сообщений.
type Gateway interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard telegram.Keyboard) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	EditMessageKeyboard(ctx context.Context, chatID int64, messageID int, keyboard telegram.Keyboard) error
	SendLocation(ctx context.Context, chatID int64, lat, lng float64) error
	SendPhoto(ctx context.Context, chatID int64, url, caption string) error
}

// Router диспетчеризует входящие события в жизненные циклы и шлюз сообщений.
type Router struct {
	bookings Bookings
	orders   Orders
	menu     Menu
	settings SettingsSource
	gw       Gateway
	logger   *zap.Logger
	now      func() time.Time
}

// New создаёт роутер событий.
func New(bookings Bookings, orders Orders, menu Menu, settings SettingsSource, gw Gateway, logger *zap.Logger) *Router {
	return &Router{
		bookings: bookings,
		orders:   orders,
		menu:     menu,
		settings: settings,
		gw:       gw,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle обрабатывает одно входящее событие.
func (r *Router) Handle(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case Message:
		return r.handleMessage(ctx, e)
	case Callback:
		return r.handleCallback(ctx, e)
	default:
		return fmt.Errorf("unknown event type %T", ev)
	}
}

// handleCallback подтверждает callback до любой мутации состояния, чтобы
// медленный бэкенд не оставлял клиента с «вечной» индикацией загрузки.
func (r *Router) handleCallback(ctx context.Context, cb Callback) error {
	if err := r.gw.AnswerCallback(ctx, cb.ID, ""); err != nil {
		r.logger.Warn("answer callback failed", zap.Error(err), zap.String("callbackID", cb.ID))
	}

	action, err := ParseAction(cb.Data)
	if err != nil {
		// Такой токен не мог быть создан этой системой.
		r.logger.Debug("dropping malformed callback", zap.String("data", cb.Data))
		return nil
	}

	switch action.Entity {
	case EntityBooking:
		return r.handleBookingAction(ctx, cb, action)
	case EntityOrder:
		return r.handleOrderAction(ctx, cb, action)
	case EntityLocation:
		return r.sendLocation(ctx, cb.ChatID)
	case EntityPayment:
		return r.sendPaymentInfo(ctx, cb.ChatID)
	case EntityCategory:
		return r.sendCategoryItems(ctx, cb.ChatID, action.ID)
	default:
		return nil
	}
}

func (r *Router) handleBookingAction(ctx context.Context, cb Callback, action Action) error {
	target := model.BookingStatusConfirmed
	if action.Verb == VerbReject {
		target = model.BookingStatusCancelled
	}

	b, err := r.bookings.Transition(ctx, action.ID, target)
	if err != nil {
		if errors.Is(err, booking.ErrInvalidTransition) {
			return r.replyBookingState(ctx, cb.ChatID, action.ID)
		}
		return err
	}

	// Бронирование обработано — кнопки под исходным сообщением больше не нужны.
	if err := r.gw.EditMessageKeyboard(ctx, cb.ChatID, cb.MessageID, nil); err != nil {
		r.logger.Warn("edit keyboard failed", zap.Error(err))
	}

	text := fmt.Sprintf("Бронирование «%s» подтверждено ✅", b.HouseName)
	if target == model.BookingStatusCancelled {
		text = fmt.Sprintf("Бронирование «%s» отклонено ❌", b.HouseName)
	}
	return r.gw.SendMessage(ctx, cb.ChatID, text, nil)
}

// replyBookingState отправляет информационный ответ о фактическом статусе —
// повторное нажатие уже обработанной кнопки не меняет состояние.
func (r *Router) replyBookingState(ctx context.Context, chatID int64, id string) error {
	b, err := r.bookings.Get(ctx, id)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Бронирование «%s» уже %s.", b.HouseName, bookingStatusLabel(b.Status))
	return r.gw.SendMessage(ctx, chatID, text, nil)
}

var orderTargets = map[Verb]model.OrderStatus{
	VerbConfirm: model.OrderStatusConfirmed,
	VerbPrepare: model.OrderStatusPreparing,
	VerbReady:   model.OrderStatusReady,
	VerbDeliver: model.OrderStatusDelivered,
	VerbCancel:  model.OrderStatusCancelled,
}

func (r *Router) handleOrderAction(ctx context.Context, cb Callback, action Action) error {
	target, ok := orderTargets[action.Verb]
	if !ok {
		return nil
	}

	o, err := r.orders.Transition(ctx, action.ID, target)
	if err != nil {
		if errors.Is(err, order.ErrInvalidTransition) {
			return r.replyOrderState(ctx, cb.ChatID, action.ID)
		}
		return err
	}

	// Заменяем кнопки на единственный следующий легальный шаг конвейера.
	if err := r.gw.EditMessageKeyboard(ctx, cb.ChatID, cb.MessageID, orderKeyboard(o)); err != nil {
		r.logger.Warn("edit keyboard failed", zap.Error(err))
	}

	return r.gw.SendMessage(ctx, cb.ChatID,
		fmt.Sprintf("Заказ №%s: %s.", shortID(o.ID), orderStatusLabel(o.Status)), nil)
}

func (r *Router) replyOrderState(ctx context.Context, chatID int64, id string) error {
	o, err := r.orders.Get(ctx, id)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Заказ №%s уже %s.", shortID(o.ID), orderStatusLabel(o.Status))
	return r.gw.SendMessage(ctx, chatID, text, nil)
}

// orderKeyboard возвращает клавиатуру из одной кнопки следующего шага
// конвейера либо nil для терминального статуса.
func orderKeyboard(o *model.Order) telegram.Keyboard {
	next, ok := order.Next(o.Status)
	if !ok {
		return nil
	}

	var verb Verb
	switch next {
	case model.OrderStatusConfirmed:
		verb = VerbConfirm
	case model.OrderStatusPreparing:
		verb = VerbPrepare
	case model.OrderStatusReady:
		verb = VerbReady
	case model.OrderStatusDelivered:
		verb = VerbDeliver
	}

	action := Action{Verb: verb, Entity: EntityOrder, ID: o.ID}
	return telegram.Keyboard{
		{{Label: orderStepLabel(next), Action: action.Token()}},
	}
}

func (r *Router) sendLocation(ctx context.Context, chatID int64) error {
	s, err := r.settings.GetSettings(ctx)
	if err != nil {
		return err
	}
	if s.Address != "" {
		if err := r.gw.SendMessage(ctx, chatID, s.Address, nil); err != nil {
			return err
		}
	}
	return r.gw.SendLocation(ctx, chatID, s.Latitude, s.Longitude)
}

func (r *Router) sendPaymentInfo(ctx context.Context, chatID int64) error {
	s, err := r.settings.GetSettings(ctx)
	if err != nil {
		return err
	}
	text := s.PaymentDetails
	if text == "" {
		text = "Реквизиты для оплаты уточните у администратора."
	}
	return r.gw.SendMessage(ctx, chatID, text, nil)
}

func (r *Router) sendCategoryItems(ctx context.Context, chatID int64, rawID string) error {
	categoryID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		r.logger.Debug("dropping callback with non-numeric category id", zap.String("id", rawID))
		return nil
	}

	items, err := r.menu.ListMenuItems(ctx, categoryID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return r.gw.SendMessage(ctx, chatID, "В этом разделе пока пусто.", nil)
	}

	var lines []string
	for _, item := range items {
		if item.PhotoURL != "" {
			caption := fmt.Sprintf("%s — %s", item.Name, formatMoney(item.Price))
			if item.Description != "" {
				caption += "\n" + item.Description
			}
			if err := r.gw.SendPhoto(ctx, chatID, item.PhotoURL, caption); err != nil {
				r.logger.Warn("send photo failed", zap.Error(err), zap.String("item", item.Name))
			}
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s — %s", item.Name, formatMoney(item.Price)))
	}

	if len(lines) > 0 {
		return r.gw.SendMessage(ctx, chatID, strings.Join(lines, "\n"), nil)
	}
	return nil
}

func (r *Router) handleMessage(ctx context.Context, msg Message) error {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}

	command := strings.Fields(text)[0]
	// Команда в группе может приходить как /command@botname.
	if i := strings.Index(command, "@"); i > 0 {
		command = command[:i]
	}

	switch command {
	case "/start", "/help":
		return r.gw.SendMessage(ctx, msg.ChatID, helpText, nil)
	case "/menu":
		return r.sendMenuCategories(ctx, msg.ChatID)
	case "/today":
		return r.operatorOnly(ctx, msg.ChatID, r.sendTodayArrivals)
	case "/pending":
		return r.operatorOnly(ctx, msg.ChatID, r.sendPendingBookings)
	default:
		return r.gw.SendMessage(ctx, msg.ChatID, "Неизвестная команда. Список команд — /help.", nil)
	}
}

const helpText = `Команды:
/menu — меню кухни
/today — сегодняшние заезды (для оператора)
/pending — заявки на бронирование (для оператора)`

// operatorOnly выполняет обработчик только для настроенного чата оператора.
func (r *Router) operatorOnly(ctx context.Context, chatID int64, fn func(context.Context, int64) error) error {
	s, err := r.settings.GetSettings(ctx)
	if err != nil {
		return err
	}
	if chatID != s.OperatorChatID {
		return r.gw.SendMessage(ctx, chatID, "Эта команда доступна только оператору.", nil)
	}
	return fn(ctx, chatID)
}

func (r *Router) sendMenuCategories(ctx context.Context, chatID int64) error {
	categories, err := r.menu.ListMenuCategories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return r.gw.SendMessage(ctx, chatID, "Меню пока не заполнено.", nil)
	}

	buttons := make([]telegram.Button, 0, len(categories))
	for _, c := range categories {
		action := Action{Verb: VerbOpen, Entity: EntityCategory, ID: strconv.FormatInt(c.ID, 10)}
		buttons = append(buttons, telegram.Button{Label: c.Title, Action: action.Token()})
	}

	return r.gw.SendMessage(ctx, chatID, "Выберите раздел меню:", telegram.Grid(buttons, 2))
}

func (r *Router) sendTodayArrivals(ctx context.Context, chatID int64) error {
	today := r.now().UTC()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	arrivals, err := r.bookings.ListArrivals(ctx, today)
	if err != nil {
		return err
	}
	if len(arrivals) == 0 {
		return r.gw.SendMessage(ctx, chatID, "Сегодня заездов нет.", nil)
	}

	lines := []string{"Заезды сегодня:"}
	for _, b := range arrivals {
		lines = append(lines, fmt.Sprintf("• %s — %s, %d гостей, до %s, %s",
			b.HouseName, b.Contact.Name, b.GuestCount,
			b.EndDate.Format("02.01"), b.Contact.Phone))
	}
	return r.gw.SendMessage(ctx, chatID, strings.Join(lines, "\n"), nil)
}

// sendPendingBookings отправляет по одному сообщению на заявку со свежей
// парой кнопок — так оператор запускает кнопочный процесс для бронирований,
// созданных, пока бот был недоступен.
func (r *Router) sendPendingBookings(ctx context.Context, chatID int64) error {
	pending, err := r.bookings.ListPending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return r.gw.SendMessage(ctx, chatID, "Заявок, ожидающих подтверждения, нет.", nil)
	}

	for _, b := range pending {
		approve := Action{Verb: VerbApprove, Entity: EntityBooking, ID: b.ID}
		reject := Action{Verb: VerbReject, Entity: EntityBooking, ID: b.ID}
		kb := telegram.Keyboard{{
			{Label: "Подтвердить", Action: approve.Token()},
			{Label: "Отклонить", Action: reject.Token()},
		}}
		if err := r.gw.SendMessage(ctx, chatID, bookingSummary(&b), kb); err != nil {
			return err
		}
	}
	return nil
}

func bookingSummary(b *model.Booking) string {
	return fmt.Sprintf("Заявка на «%s»\n%s — %s, %d гостей\n%s, %s\nИтого: %s",
		b.HouseName,
		b.StartDate.Format("02.01.2006"), b.EndDate.Format("02.01.2006"), b.GuestCount,
		b.Contact.Name, b.Contact.Phone,
		formatMoney(b.TotalPrice))
}

func bookingStatusLabel(s model.BookingStatus) string {
	switch s {
	case model.BookingStatusPending:
		return "ожидает подтверждения"
	case model.BookingStatusConfirmed:
		return "подтверждено"
	case model.BookingStatusCancelled:
		return "отменено"
	default:
		return string(s)
	}
}

func orderStatusLabel(s model.OrderStatus) string {
	switch s {
	case model.OrderStatusPending:
		return "ожидает подтверждения"
	case model.OrderStatusConfirmed:
		return "подтверждён"
	case model.OrderStatusPreparing:
		return "готовится"
	case model.OrderStatusReady:
		return "готов к выдаче"
	case model.OrderStatusDelivered:
		return "выдан"
	case model.OrderStatusCancelled:
		return "отменён"
	default:
		return string(s)
	}
}

func orderStepLabel(s model.OrderStatus) string {
	switch s {
	case model.OrderStatusConfirmed:
		return "Подтвердить"
	case model.OrderStatusPreparing:
		return "Начать готовить"
	case model.OrderStatusReady:
		return "Заказ готов"
	case model.OrderStatusDelivered:
		return "Выдан"
	default:
		return string(s)
	}
}

func formatMoney(kopecks int64) string {
	return fmt.Sprintf("%.2f ₽", float64(kopecks)/100)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
