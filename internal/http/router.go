package httpapi

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"genfity-pricing-service/internal/config"
	"genfity-pricing-service/internal/db"
	"genfity-pricing-service/internal/http/handlers"
	"genfity-pricing-service/internal/middleware"
	"genfity-pricing-service/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const slowRequest = 2 * time.Second

// NewRouter mounts the pricing API. sessions backs MerchantAuth; hub may be
// nil to disable the stock stream.
func NewRouter(h *handlers.Handler, sessions db.Querier, logger *zap.Logger, cfg config.Config, hub *ws.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(logger, slowRequest))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"X-Request-Id",
			},
			ExposedHeaders:   []string{"X-Request-Id", "X-Receipt-Url"},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Use(setResponseHeader("X-Order-Service-Origin", "native"))
		r.Use(middleware.OptionalCustomerAuth(cfg.JWTSecret))
		r.Post("/orders", h.PublicOrderCreate)
		r.Post("/orders/quote", h.PublicOrderQuote)
		r.Post("/vouchers/validate", h.PublicVoucherValidate)
	})

	r.Route("/api/merchant", func(r chi.Router) {
		r.Use(setResponseHeader("X-Order-Service-Origin", "native"))
		r.Use(middleware.MerchantAuth(sessions, cfg.JWTSecret))

		r.Post("/pos/orders", h.MerchantPOSOrderCreate)
		r.Post("/pos/orders/quote", h.MerchantPOSOrderQuote)
		r.Get("/pos/orders/{orderId}", h.MerchantPOSOrderGet)
		r.Put("/pos/orders/{orderId}", h.MerchantPOSOrderUpdate)
		r.Post("/pos/orders/{orderId}/discount", h.MerchantPOSOrderDiscount)
		r.Post("/pos/vouchers/validate", h.MerchantPOSVoucherValidate)
		r.Post("/pos/vouchers/validate-template", h.MerchantPOSVoucherValidateTemplate)
		r.Get("/orders/{orderId}/receipt", h.MerchantOrderReceiptPDF)
	})

	if hub != nil {
		r.Get("/ws/merchant/stock", hub.MerchantStockWS)
	}

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func setResponseHeader(name string, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(name, value)
			next.ServeHTTP(w, r)
		})
	}
}
