package telegram

import (
	"context"

	"go.uber.org/zap"
)

// Nop — шлюз-заглушка, применяемая, пока токен бота не настроен.
// Все исходящие вызовы фиксируются в журнале и не выполняются.
type Nop struct {
	logger *zap.Logger
}

// NewNop создаёт шлюз-заглушку.
func NewNop(logger *zap.Logger) *Nop {
	return &Nop{logger: logger}
}

func (n *Nop) SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) error {
	n.logger.Debug("telegram gateway disabled, dropping message", zap.Int64("chatID", chatID))
	return nil
}

func (n *Nop) AnswerCallback(ctx context.Context, callbackID, text string) error {
	n.logger.Debug("telegram gateway disabled, dropping callback answer", zap.String("callbackID", callbackID))
	return nil
}

func (n *Nop) EditMessageKeyboard(ctx context.Context, chatID int64, messageID int, keyboard Keyboard) error {
	n.logger.Debug("telegram gateway disabled, dropping keyboard edit", zap.Int64("chatID", chatID))
	return nil
}

func (n *Nop) SendLocation(ctx context.Context, chatID int64, lat, lng float64) error {
	n.logger.Debug("telegram gateway disabled, dropping location", zap.Int64("chatID", chatID))
	return nil
}

func (n *Nop) SendPhoto(ctx context.Context, chatID int64, url, caption string) error {
	n.logger.Debug("telegram gateway disabled, dropping photo", zap.Int64("chatID", chatID))
	return nil
}
