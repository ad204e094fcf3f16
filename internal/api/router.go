package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()

	// Apply middleware
	r.Use(CORSMiddleware)
	r.Use(LoggingMiddleware(h.Logger))

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(JSONMiddleware)

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// Checkout creation
	api.HandleFunc("/checkouts/hotels", h.CreateHotelCheckout).Methods("POST")
	api.HandleFunc("/checkouts/flights", h.CreateFlightCheckout).Methods("POST")

	// Checkout routes
	api.HandleFunc("/checkouts/{checkoutId}", h.GetCheckout).Methods("GET")
	api.HandleFunc("/checkouts/{checkoutId}/guests", h.UpdateGuest).Methods("PUT")
	api.HandleFunc("/checkouts/{checkoutId}/submit", h.Submit).Methods("POST")
	api.HandleFunc("/checkouts/{checkoutId}/widget", h.InitWidget).Methods("POST")
	api.HandleFunc("/checkouts/{checkoutId}/payment-result", h.PaymentResult).Methods("POST")
	api.HandleFunc("/checkouts/{checkoutId}/payment-return", h.PaymentReturn).Methods("POST")
	api.HandleFunc("/checkouts/{checkoutId}", h.Abandon).Methods("DELETE")

	// CORS preflight; answered by CORSMiddleware
	r.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	return r
}
