package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-core/internal/apperrors"
	"github.com/akylbek/payment-system/payment-core/internal/models"
	"github.com/akylbek/payment-system/payment-core/internal/service"
	"github.com/akylbek/payment-system/payment-core/internal/telemetry"
)

const idempotencyHeader = "Idempotency-Key"

// createPaymentBody accepts any JSON type per field, so a mistyped field is
// reported by validation alongside the other violations.
type createPaymentBody struct {
	ExternalID   json.RawMessage `json:"externalId"`
	DebtorIBAN   json.RawMessage `json:"debtorIban"`
	CreditorIBAN json.RawMessage `json:"creditorIban"`
	Currency     json.RawMessage `json:"currency"`
	AmountMinor  json.RawMessage `json:"amountMinor"`
}

func (b createPaymentBody) request(key string) models.CreatePaymentRequest {
	return models.CreatePaymentRequest{
		ExternalID:     jsonString(b.ExternalID),
		DebtorIBAN:     jsonString(b.DebtorIBAN),
		CreditorIBAN:   jsonString(b.CreditorIBAN),
		Currency:       jsonString(b.Currency),
		AmountMinor:    jsonInteger(b.AmountMinor),
		IdempotencyKey: key,
	}
}

// jsonString yields "" for anything but a JSON string
func jsonString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// jsonInteger yields 0 for anything but a JSON integer that fits int64
func jsonInteger(raw json.RawMessage) int64 {
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

type PaymentHandler struct {
	svc *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	key := c.GetHeader(idempotencyHeader)
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Idempotency-Key header"})
		return
	}

	var body createPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		telemetry.Logger.Error("Error decoding payment request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	p, err := h.svc.CreatePayment(c.Request.Context(), body.request(key))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	p, err := h.svc.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *PaymentHandler) GetMessage(c *gin.Context) {
	kind, ok := models.ParseMessageKind(c.Param("message"))
	if !ok || kind == models.MessageCamt053 {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown message type"})
		return
	}

	out, err := h.svc.RenderMessage(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/xml", out)
}

func (h *PaymentHandler) GetStatement(c *gin.Context) {
	out, err := h.svc.RenderStatement(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/xml", out)
}

func writeError(c *gin.Context, err error) {
	if ve, ok := apperrors.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "details": ve.Details})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrUnsupportedMessage):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, apperrors.ErrNotYetFinal):
		c.JSON(http.StatusConflict, gin.H{"error": "not_final", "message": err.Error()})
	case errors.Is(err, apperrors.ErrIdempotencyConflict):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "idempotency_conflict", "message": err.Error()})
	default:
		telemetry.Logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
