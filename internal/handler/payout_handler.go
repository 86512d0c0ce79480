package handler

import (
	"fmt"
	"net/http"
	"time"

	"cryptonary/referral-service/internal/models"
	"cryptonary/referral-service/internal/repository"
	"cryptonary/referral-service/internal/service"
	"cryptonary/referral-service/pkg/logger"
)

const payoutLockTTL = 30 * time.Minute

// PayoutHandler triggers the payout batch. The endpoint is hit by the
// scheduler, not by promoters; the redis lease guarantees a single run even
// when every instance receives the cron trigger.
type PayoutHandler struct {
	payoutService service.PayoutService
	reporter      service.PayoutReporter
	locks         repository.LockRepository
	log           *logger.Logger
}

func NewPayoutHandler(
	payoutService service.PayoutService,
	reporter service.PayoutReporter,
	locks repository.LockRepository,
	log *logger.Logger,
) *PayoutHandler {
	return &PayoutHandler{
		payoutService: payoutService,
		reporter:      reporter,
		locks:         locks,
		log:           log,
	}
}

// Run handles POST /api/payouts/run?method=wise|crypto.
func (h *PayoutHandler) Run(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	method := r.URL.Query().Get("method")
	if method != models.PayoutMethodWise && method != models.PayoutMethodCrypto {
		writeError(w, http.StatusBadRequest, "method must be wise or crypto")
		return
	}

	lockName := fmt.Sprintf("payout-batch:%s", method)
	acquired, err := h.locks.Acquire(r.Context(), lockName, payoutLockTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !acquired {
		writeError(w, http.StatusConflict, "payout batch already running")
		return
	}
	defer func() {
		if err := h.locks.Release(r.Context(), lockName); err != nil {
			h.log.Errorf("Failed to release payout lock: %v", err)
		}
	}()

	rows, err := h.payoutService.RunPayoutBatch(r.Context(), method)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.reporter.SendPayoutReport(r.Context(), method, rows); err != nil {
		// Payouts are already recorded; a report failure must not look like
		// a failed batch to the scheduler.
		h.log.Errorf("Failed to send payout report: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"method":        method,
		"promotersPaid": len(rows),
	})
}
