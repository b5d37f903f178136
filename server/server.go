package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/luxecraft/atelier/internal/config"
	"github.com/luxecraft/atelier/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.Use(h.MetricsContext)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	// Public storefront routes
	r.HandleFunc("/orders", h.CreateOrder).Methods("POST").Name("orders.create")
	r.HandleFunc("/orders/{number}/track", h.TrackOrder).Methods("GET").Name("orders.track")

	// Protected admin routes - require a bearer token
	adminRouter := r.PathPrefix("/admin").Subrouter()
	adminRouter.Use(h.RequireAdmin)
	// Rebind the meter after auth so admin metrics carry the actor attribute.
	adminRouter.Use(h.MetricsContext)
	adminRouter.HandleFunc("/orders", h.AdminListOrders).Methods("GET").Name("admin.orders")
	adminRouter.HandleFunc("/orders/{id}", h.AdminGetOrder).Methods("GET").Name("admin.orders.get")
	adminRouter.HandleFunc("/orders/{id}/status", h.AdminUpdateStatus).Methods("PUT").Name("admin.orders.status")
	adminRouter.HandleFunc("/orders/{id}/verify-payment", h.AdminVerifyPayment).Methods("POST").Name("admin.orders.verify_payment")
	adminRouter.HandleFunc("/orders/{id}/confirm-delivery", h.AdminConfirmDelivery).Methods("POST").Name("admin.orders.confirm_delivery")
	adminRouter.HandleFunc("/orders/{id}/cancel", h.AdminCancelOrder).Methods("POST").Name("admin.orders.cancel")
	adminRouter.HandleFunc("/orders/{id}/refund", h.AdminRefund).Methods("POST").Name("admin.orders.refund")
	adminRouter.HandleFunc("/orders/{id}/notes", h.AdminAddNote).Methods("POST").Name("admin.orders.notes")
	adminRouter.HandleFunc("/orders/{id}/tracking", h.AdminSetTracking).Methods("POST").Name("admin.orders.tracking")

	// 404 handler - must be last
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
	})

	return r
}
