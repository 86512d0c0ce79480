package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cryptonary/referral-service/internal/service"
	"cryptonary/referral-service/pkg/logger"
)

type fakePayoutService struct {
	rows   []service.PayoutRow
	err    error
	method string
}

func (s *fakePayoutService) RunPayoutBatch(ctx context.Context, method string) ([]service.PayoutRow, error) {
	s.method = method
	return s.rows, s.err
}

type fakeReporter struct {
	calls int
	rows  []service.PayoutRow
}

func (r *fakeReporter) SendPayoutReport(ctx context.Context, method string, rows []service.PayoutRow) error {
	r.calls++
	r.rows = rows
	return nil
}

type fakeLocks struct {
	held     bool
	acquired int
	released int
}

func (l *fakeLocks) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.acquired++
	return !l.held, nil
}

func (l *fakeLocks) Release(ctx context.Context, name string) error {
	l.released++
	return nil
}

func TestPayoutHandler_Run(t *testing.T) {
	log := logger.NewLogger("test")

	t.Run("RunsBatchAndSendsReport", func(t *testing.T) {
		payouts := &fakePayoutService{rows: []service.PayoutRow{{Name: "Promo Ter", Amount: 5000}}}
		reporter := &fakeReporter{}
		locks := &fakeLocks{}
		h := NewPayoutHandler(payouts, reporter, locks, log)

		req := httptest.NewRequest(http.MethodPost, "/api/payouts/run?method=wise", nil)
		rec := httptest.NewRecorder()
		h.Run(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "wise", payouts.method)
		assert.Equal(t, 1, reporter.calls)
		assert.Equal(t, 1, locks.acquired)
		assert.Equal(t, 1, locks.released)
	})

	t.Run("RejectsUnknownMethod", func(t *testing.T) {
		h := NewPayoutHandler(&fakePayoutService{}, &fakeReporter{}, &fakeLocks{}, log)

		req := httptest.NewRequest(http.MethodPost, "/api/payouts/run?method=paypal", nil)
		rec := httptest.NewRecorder()
		h.Run(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ConflictWhenLockHeld", func(t *testing.T) {
		payouts := &fakePayoutService{}
		locks := &fakeLocks{held: true}
		h := NewPayoutHandler(payouts, &fakeReporter{}, locks, log)

		req := httptest.NewRequest(http.MethodPost, "/api/payouts/run?method=crypto", nil)
		rec := httptest.NewRecorder()
		h.Run(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Empty(t, payouts.method)
		assert.Zero(t, locks.released)
	})
}
