package handler

import (
	"io"
	"net/http"

	"cryptonary/referral-service/internal/service"
	"cryptonary/referral-service/pkg/helpers"
)

// WebhookHandler receives billing events from the payments system. The
// handlers are idempotent: replayed or out-of-order deliveries return 200
// without side effects.
type WebhookHandler struct {
	referralService service.ReferralService
	validator       *helpers.CustomValidator
}

func NewWebhookHandler(referralService service.ReferralService, validator *helpers.CustomValidator) *WebhookHandler {
	return &WebhookHandler{
		referralService: referralService,
		validator:       validator,
	}
}

// Purchase handles POST /api/webhooks/purchase.
func (h *WebhookHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		UserID            uint64 `json:"userId" validate:"required"`
		AmountPaid        int64  `json:"amountPaid" validate:"gt=0"`
		InvoiceExternalID string `json:"invoiceExternalId"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		if err == io.EOF {
			writeError(w, http.StatusBadRequest, "request body is required")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	commission, err := h.referralService.HandlePurchase(r.Context(), req.UserID, req.AmountPaid, req.InvoiceExternalID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := map[string]interface{}{"processed": commission != nil}
	if commission != nil {
		resp["commissionAmount"] = commission.Amount
	}
	writeJSON(w, http.StatusOK, resp)
}

// Refund handles POST /api/webhooks/refund.
func (h *WebhookHandler) Refund(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		UserID            uint64 `json:"userId" validate:"required"`
		AmountRefunded    int64  `json:"amountRefunded" validate:"gt=0"`
		AmountPaid        int64  `json:"amountPaid" validate:"required"`
		InvoiceExternalID string `json:"invoiceExternalId"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		if err == io.EOF {
			writeError(w, http.StatusBadRequest, "request body is required")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	commission, err := h.referralService.HandleRefund(r.Context(), req.UserID, req.AmountRefunded, req.AmountPaid, req.InvoiceExternalID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := map[string]interface{}{"processed": commission != nil}
	if commission != nil {
		resp["clawbackAmount"] = commission.Amount
	}
	writeJSON(w, http.StatusOK, resp)
}
