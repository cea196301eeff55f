// Package telegram реализует шлюз отправки сообщений через Telegram Bot API.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client инкапсулирует обращения к Telegram Bot API.
type Client struct {
	bot *tgbotapi.BotAPI
}

// New создаёт клиент Bot API. Пустой endpoint означает стандартный адрес
// Telegram; тесты и локальные стенды передают адрес заглушки.
func New(token, endpoint string) (*Client, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Client{bot: bot}, nil
}

// Username возвращает имя бота, полученное при авторизации.
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// SendMessage отправляет текстовое сообщение, опционально с inline-клавиатурой.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(keyboard) > 0 {
		msg.ReplyMarkup = toMarkup(keyboard)
	}

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// AnswerCallback подтверждает обработку callback-запроса и снимает
// индикатор загрузки на стороне клиента.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// EditMessageKeyboard заменяет клавиатуру существующего сообщения.
// Пустая клавиатура убирает кнопки.
func (c *Client) EditMessageKeyboard(ctx context.Context, chatID int64, messageID int, keyboard Keyboard) error {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, toMarkup(keyboard))
	if _, err := c.bot.Request(edit); err != nil {
		return fmt.Errorf("edit message keyboard: %w", err)
	}
	return nil
}

// SendLocation отправляет геопозицию.
func (c *Client) SendLocation(ctx context.Context, chatID int64, lat, lng float64) error {
	if _, err := c.bot.Send(tgbotapi.NewLocation(chatID, lat, lng)); err != nil {
		return fmt.Errorf("send location: %w", err)
	}
	return nil
}

// SendPhoto отправляет фотографию по URL с подписью.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, url, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))
	photo.Caption = caption
	if _, err := c.bot.Send(photo); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

func toMarkup(keyboard Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Action))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}
