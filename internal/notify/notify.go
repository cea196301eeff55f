// Package notify предоставляет клиент для внешнего приёмника уведомлений.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client отправляет уведомления во внешний приёмник по принципу
// fire-and-forget. Если адрес приёмника не настроен, уведомления только
// логируются. Сбои отправки логируются и никогда не возвращаются
// вызывающему: они не должны откатывать уже сохранённый переход статуса.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type event struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
}

// NewClient создаёт клиент приёмника уведомлений. Пустой baseURL допустим.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Notify отправляет структурированное уведомление указанного вида.
func (c *Client) Notify(ctx context.Context, kind string, payload map[string]any) {
	c.logger.Info("notification", zap.String("kind", kind), zap.Any("payload", payload))

	if c.baseURL == "" {
		return
	}

	body, err := json.Marshal(event{Kind: kind, Payload: payload})
	if err != nil {
		c.logger.Error("marshal notification", zap.Error(err), zap.String("kind", kind))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/notifications", bytes.NewReader(body))
	if err != nil {
		c.logger.Error("create notification request", zap.Error(err), zap.String("kind", kind))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("send notification", zap.Error(err), zap.String("kind", kind))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Error("notification sink rejected event",
			zap.Int("status", resp.StatusCode), zap.String("kind", kind))
	}
}
