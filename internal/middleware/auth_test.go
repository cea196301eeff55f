package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware_RoundTrip(t *testing.T) {
	a := NewAuthMiddleware("test-secret")

	rec := httptest.NewRecorder()
	a.SetSessionCookie(rec, "admin")
	cookie := rec.Result().Cookies()[0]

	var gotLogin string
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLogin, _ = GetStaffLoginFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/staff/bookings", nil)
	req.AddCookie(cookie)
	respRec := httptest.NewRecorder()

	handler.ServeHTTP(respRec, req)

	if respRec.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", respRec.Result().StatusCode, http.StatusOK)
	}
	if gotLogin != "admin" {
		t.Fatalf("login = %q, want admin", gotLogin)
	}
}

func TestAuthMiddleware_MissingCookie(t *testing.T) {
	a := NewAuthMiddleware("test-secret")

	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/staff/bookings", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_TamperedSignature(t *testing.T) {
	a := NewAuthMiddleware("test-secret")
	b := NewAuthMiddleware("other-secret")

	rec := httptest.NewRecorder()
	b.SetSessionCookie(rec, "admin")
	cookie := rec.Result().Cookies()[0]

	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/staff/bookings", nil)
	req.AddCookie(cookie)
	respRec := httptest.NewRecorder()

	handler.ServeHTTP(respRec, req)

	if respRec.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", respRec.Result().StatusCode, http.StatusUnauthorized)
	}
}
