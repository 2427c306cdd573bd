package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akylbek/payment-system/payment-core/internal/handlers"
	"github.com/akylbek/payment-system/payment-core/internal/service"
	"github.com/akylbek/payment-system/payment-core/internal/telemetry"
)

func NewRouter(svc *service.PaymentService, gatherer prometheus.Gatherer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": telemetry.ServiceName})
	})

	// Payment routes
	paymentHandler := handlers.NewPaymentHandler(svc)
	r.POST("/payments", paymentHandler.CreatePayment)
	r.GET("/payments/:id", paymentHandler.GetPayment)
	r.GET("/payments/:id/:message", paymentHandler.GetMessage)
	r.GET("/statements/camt053", paymentHandler.GetStatement)

	return r
}
