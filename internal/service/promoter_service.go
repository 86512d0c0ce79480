package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cryptonary/referral-service/internal/models"
	"cryptonary/referral-service/internal/repository"
	"cryptonary/referral-service/pkg/helpers"
	"cryptonary/referral-service/pkg/logger"
)

var (
	ErrPromoterNotFound     = errors.New("promoter not found")
	ErrBelowProgramMinimum  = errors.New("min withdrawal balance is below the referral program minimum")
	ErrNoActivePayoutMethod = errors.New("promoter has no active payout method")
)

const referralTokenLength = 10

// DayEarning is one bucket of the promoter's recent earnings statistics.
type DayEarning struct {
	Day   string `json:"day"`
	Value int64  `json:"value"`
}

type PromoterService interface {
	GetOrCreatePromoter(ctx context.Context, userID uint64) (*models.Promoter, error)
	SetPayoutMethod(ctx context.Context, userID uint64, method, paymentAddress string) (*models.Promoter, error)
	SetMinWithdrawalBalance(ctx context.Context, userID uint64, amount int64) (*models.Promoter, error)
	IncrementLinkClicked(ctx context.Context, referralToken string) error
	RecentEarnings(ctx context.Context, userID uint64) ([]DayEarning, error)
	PayoutHistory(ctx context.Context, userID uint64) ([]*models.PromoterPayout, error)
}

type promoterService struct {
	promoterRepo     repository.PromoterRepository
	commissionRepo   repository.CommissionRepository
	payoutRepo       repository.PayoutRepository
	programService   ProgramService
	baseReferralLink string
	log              *logger.Logger
}

func NewPromoterService(
	promoterRepo repository.PromoterRepository,
	commissionRepo repository.CommissionRepository,
	payoutRepo repository.PayoutRepository,
	programService ProgramService,
	baseReferralLink string,
	log *logger.Logger,
) PromoterService {
	return &promoterService{
		promoterRepo:     promoterRepo,
		commissionRepo:   commissionRepo,
		payoutRepo:       payoutRepo,
		programService:   programService,
		baseReferralLink: baseReferralLink,
		log:              log,
	}
}

// GenerateReferralToken derives a promoter's referral token from the user id.
// The token is a truncated one-way hash: reproducible for the same user, not
// guessable from sequential ids.
func GenerateReferralToken(userID uint64) string {
	hash := sha256.Sum256([]byte(strconv.FormatUint(userID, 10)))
	return strings.ToUpper(hex.EncodeToString(hash[:])[:referralTokenLength])
}

// GetOrCreatePromoter returns the user's promoter record, creating it lazily
// on first referral-related access. The minimum withdrawal balance is
// snapshotted from the active program at creation time.
func (s *promoterService) GetOrCreatePromoter(ctx context.Context, userID uint64) (*models.Promoter, error) {
	promoter, err := s.promoterRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if promoter != nil {
		return promoter, nil
	}

	token := GenerateReferralToken(userID)
	link, err := helpers.AppendQueryParams(s.baseReferralLink, map[string]string{"ref": token})
	if err != nil {
		return nil, fmt.Errorf("failed to build referral link: %w", err)
	}

	var minWithdrawal int64
	program, err := s.programService.GetActiveProgram(ctx)
	if err != nil {
		return nil, err
	}
	if program != nil {
		minWithdrawal = program.MinWithdrawalBalance
	}

	promoter = &models.Promoter{
		UserID:               userID,
		ReferralToken:        token,
		ReferralLink:         link,
		MinWithdrawalBalance: minWithdrawal,
	}
	if err := s.promoterRepo.Create(ctx, promoter); err != nil {
		return nil, err
	}

	s.log.WithUserID(userID).Infof("Created new promoter %d", promoter.ID)

	// Re-read to pick up the join-populated user fields.
	return s.promoterRepo.GetByUserID(ctx, userID)
}

func (s *promoterService) SetPayoutMethod(ctx context.Context, userID uint64, method, paymentAddress string) (*models.Promoter, error) {
	promoter, err := s.GetOrCreatePromoter(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.promoterRepo.UpsertPayoutMethod(ctx, promoter.ID, method, paymentAddress); err != nil {
		return nil, err
	}
	return s.promoterRepo.GetByUserID(ctx, userID)
}

// SetMinWithdrawalBalance raises (or sets) the promoter's own minimum. The
// promoter minimum can never go below the active program's minimum.
func (s *promoterService) SetMinWithdrawalBalance(ctx context.Context, userID uint64, amount int64) (*models.Promoter, error) {
	promoter, err := s.promoterRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if promoter == nil {
		return nil, ErrPromoterNotFound
	}

	program, err := s.programService.GetActiveProgram(ctx)
	if err != nil {
		return nil, err
	}
	if program != nil && amount < program.MinWithdrawalBalance {
		return nil, ErrBelowProgramMinimum
	}

	if err := s.promoterRepo.UpdateMinWithdrawalBalance(ctx, promoter.ID, amount); err != nil {
		return nil, err
	}
	return s.promoterRepo.GetByUserID(ctx, userID)
}

func (s *promoterService) IncrementLinkClicked(ctx context.Context, referralToken string) error {
	promoter, err := s.promoterRepo.GetByReferralToken(ctx, referralToken)
	if err != nil {
		return err
	}
	if promoter == nil {
		return ErrPromoterNotFound
	}
	return s.promoterRepo.IncrementLinkClicked(ctx, promoter.ID)
}

// RecentEarnings buckets the promoter's last seven days of commissions per
// weekday, oldest day first. Days without earnings are reported as zero.
func (s *promoterService) RecentEarnings(ctx context.Context, userID uint64) ([]DayEarning, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -6).Truncate(24 * time.Hour)

	commissions, err := s.commissionRepo.ListByUserSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]int64)
	for _, commission := range commissions {
		byDay[commission.CreatedAt.Format("Mon")] += commission.Amount
	}

	earnings := make([]DayEarning, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("Mon")
		earnings = append(earnings, DayEarning{
			Day:   day[:2],
			Value: byDay[day],
		})
	}
	return earnings, nil
}

func (s *promoterService) PayoutHistory(ctx context.Context, userID uint64) ([]*models.PromoterPayout, error) {
	return s.payoutRepo.ListByUserID(ctx, userID)
}
