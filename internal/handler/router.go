package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mlebedeva/resort-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса бронирования.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Post("/api/telegram/webhook", h.Webhook)

	r.Post("/api/bookings", h.CreateBooking)
	r.Post("/api/orders", h.CreateOrder)

	r.Route("/api/staff", func(r chi.Router) {
		r.Post("/login", h.StaffLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/bookings", h.ListBookings)
			r.Post("/bookings", h.CreateStaffBooking)
			r.Post("/bookings/{id}/status", func(w http.ResponseWriter, req *http.Request) {
				h.UpdateBookingStatus(w, req, chi.URLParam(req, "id"))
			})

			r.Post("/houses/{id}/checkout", func(w http.ResponseWriter, req *http.Request) {
				h.CheckoutHouse(w, req, chi.URLParam(req, "id"))
			})

			r.Get("/orders", h.ListOrders)
			r.Post("/orders/{id}/status", func(w http.ResponseWriter, req *http.Request) {
				h.UpdateOrderStatus(w, req, chi.URLParam(req, "id"))
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
