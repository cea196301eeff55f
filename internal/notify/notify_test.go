package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestNotify_PostsEvent(t *testing.T) {
	var got event
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/notifications" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, zap.NewNop())
	c.Notify(context.Background(), "booking_confirmed", map[string]any{"bookingID": "b1"})

	if got.Kind != "booking_confirmed" {
		t.Fatalf("kind = %q, want booking_confirmed", got.Kind)
	}
	if got.Payload["bookingID"] != "b1" {
		t.Fatalf("payload = %v", got.Payload)
	}
}

func TestNotify_SwallowsSinkFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, zap.NewNop())
	// Не должно паниковать и ничего не возвращает.
	c.Notify(context.Background(), "order_ready", map[string]any{"orderID": "o1"})
}

func TestNotify_NoAddressConfigured(t *testing.T) {
	c := NewClient("", zap.NewNop())
	c.Notify(context.Background(), "booking_created", nil)
}
