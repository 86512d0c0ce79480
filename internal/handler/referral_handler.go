package handler

import (
	"io"
	"net/http"
	"net/mail"

	"cryptonary/referral-service/internal/models"
	"cryptonary/referral-service/internal/service"
	"cryptonary/referral-service/pkg/helpers"
)

type ReferralHandler struct {
	referralService service.ReferralService
	promoterService service.PromoterService
	balances        service.BalanceAggregator
	validator       *helpers.CustomValidator
}

func NewReferralHandler(
	referralService service.ReferralService,
	promoterService service.PromoterService,
	balances service.BalanceAggregator,
	validator *helpers.CustomValidator,
) *ReferralHandler {
	return &ReferralHandler{
		referralService: referralService,
		promoterService: promoterService,
		balances:        balances,
		validator:       validator,
	}
}

// Referrals handles POST /api/referrals (create) and GET /api/referrals (list).
func (h *ReferralHandler) Referrals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createReferral(w, r)
	case http.MethodGet:
		h.listReferrals(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *ReferralHandler) createReferral(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		ReferralToken    string `json:"referralToken" validate:"required"`
		InvitationMethod string `json:"invitationMethod" validate:"omitempty,oneof=email link"`
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

	referral, err := h.referralService.CreateReferral(r.Context(), req.ReferralToken, userID,
		models.InvitationMethod(req.InvitationMethod))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":               referral.ID,
		"status":           referral.Status,
		"invitationMethod": referral.InvitationMethod,
		"commissionRate":   referral.CommissionRate,
	})
}

func (h *ReferralHandler) listReferrals(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	summaries, err := h.referralService.ListReferrals(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// IncrementLinkClicked handles POST /api/referrals/increment-link-clicked.
// Unauthenticated: it is called when an anonymous visitor follows a referral
// link.
func (h *ReferralHandler) IncrementLinkClicked(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		ReferralToken string `json:"referralToken" validate:"required"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.promoterService.IncrementLinkClicked(r.Context(), req.ReferralToken); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReferralLink handles GET /api/referrals/link.
func (h *ReferralHandler) ReferralLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := userIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	promoter, err := h.promoterService.GetOrCreatePromoter(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"referralToken": promoter.ReferralToken,
		"referralLink":  promoter.ReferralLink,
	})
}

// Promoter handles GET /api/referrals/promoter: the dashboard view of the
// promoter with a freshly aggregated balance.
func (h *ReferralHandler) Promoter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := userIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	promoter, err := h.promoterService.GetOrCreatePromoter(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	balance, err := h.balances.GetBalance(r.Context(), promoter.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, promoterResponse(promoter, balance))
}

// PayoutMethod handles PATCH /api/referrals/payout-method.
func (h *ReferralHandler) PayoutMethod(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := userIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		Method         string `json:"method" validate:"required,payout_method"`
		PaymentAddress string `json:"paymentAddress" validate:"required"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !paymentAddressValid(req.Method, req.PaymentAddress) {
		writeError(w, http.StatusUnprocessableEntity, "invalid payment address for payout method")
		return
	}

	promoter, err := h.promoterService.SetPayoutMethod(r.Context(), userID, req.Method, req.PaymentAddress)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	balance, err := h.balances.GetBalance(r.Context(), promoter.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, promoterResponse(promoter, balance))
}

// MinWithdrawalBalance handles PATCH /api/referrals/min-withdrawal-balance.
func (h *ReferralHandler) MinWithdrawalBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := userIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		Amount int64 `json:"amount" validate:"gt=0"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Validate(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	promoter, err := h.promoterService.SetMinWithdrawalBalance(r.Context(), userID, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"minWithdrawalBalance": promoter.MinWithdrawalBalance,
	})
}

// RecentEarnings handles GET /api/referrals/recent-earnings.
func (h *ReferralHandler) RecentEarnings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := userIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	earnings, err := h.promoterService.RecentEarnings(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, earnings)
}

// Payouts handles GET /api/referrals/payouts.
func (h *ReferralHandler) Payouts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := userIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	payouts, err := h.promoterService.PayoutHistory(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	history := make([]map[string]interface{}, 0, len(payouts))
	for _, payout := range payouts {
		entry := map[string]interface{}{
			"amount":       payout.Amount,
			"payoutMethod": payout.PayoutMethod,
			"createdAt":    payout.CreatedAt,
		}
		if payout.TxSignature != nil {
			entry["txSignature"] = *payout.TxSignature
		}
		history = append(history, entry)
	}
	writeJSON(w, http.StatusOK, history)
}

func promoterResponse(promoter *models.Promoter, balance *service.Balance) map[string]interface{} {
	resp := map[string]interface{}{
		"userId":               promoter.UserID,
		"email":                promoter.Email,
		"fullName":             promoter.FullName,
		"referralToken":        promoter.ReferralToken,
		"referralLink":         promoter.ReferralLink,
		"linkClicked":          promoter.LinkClicked,
		"minWithdrawalBalance": promoter.MinWithdrawalBalance,
		"balance":              balance,
	}
	if promoter.ActivePayoutMethod != nil {
		resp["payoutMethod"] = map[string]string{
			"method":         promoter.ActivePayoutMethod.Method,
			"paymentAddress": promoter.ActivePayoutMethod.PaymentAddress,
		}
	}
	return resp
}

func paymentAddressValid(method, address string) bool {
	switch method {
	case models.PayoutMethodCrypto:
		return helpers.IsWalletAddress(address)
	case models.PayoutMethodWise:
		_, err := mail.ParseAddress(address)
		return err == nil
	}
	return false
}
