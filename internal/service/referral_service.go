package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"cryptonary/referral-service/internal/models"
	"cryptonary/referral-service/internal/repository"
	"cryptonary/referral-service/pkg/logger"
)

var ErrSelfReferral = errors.New("you can't refer to yourself")

// ReferralSummary is a referral row enriched with its earning commission,
// as shown on the promoter dashboard.
type ReferralSummary struct {
	UserID           uint64                   `json:"userId"`
	Status           models.ReferralStatus    `json:"status"`
	InvitationMethod models.InvitationMethod  `json:"invitationMethod"`
	CommissionRate   decimal.Decimal          `json:"commissionRate"`
	CommissionAmount int64                    `json:"commissionAmount"`
	CommissionStatus *models.CommissionStatus `json:"commissionStatus"`
}

type ReferralService interface {
	CreateReferral(ctx context.Context, referralToken string, userID uint64, invitationMethod models.InvitationMethod) (*models.Referral, error)
	ListReferrals(ctx context.Context, userID uint64) ([]ReferralSummary, error)
	// HandlePurchase reacts to "referred user completed a payment": flips the
	// referral signup -> active and creates the commission, atomically.
	// Returns (nil, nil) when the user has no referral or the referral is not
	// in signup, which makes duplicate webhook deliveries harmless.
	HandlePurchase(ctx context.Context, userID uint64, amountPaid int64, invoiceExternalID string) (*models.PromoterCommission, error)
	// HandleRefund reacts to "referred user was refunded": flips the referral
	// active -> refund and claws back a proportional commission share,
	// atomically.
	HandleRefund(ctx context.Context, userID uint64, amountRefunded, amountPaid int64, invoiceExternalID string) (*models.PromoterCommission, error)
}

type referralService struct {
	db             *sql.DB
	referralRepo   repository.ReferralRepository
	promoterRepo   repository.PromoterRepository
	commissionRepo repository.CommissionRepository
	engine         CommissionEngine
	programService ProgramService
	log            *logger.Logger
}

func NewReferralService(
	db *sql.DB,
	referralRepo repository.ReferralRepository,
	promoterRepo repository.PromoterRepository,
	commissionRepo repository.CommissionRepository,
	engine CommissionEngine,
	programService ProgramService,
	log *logger.Logger,
) ReferralService {
	return &referralService{
		db:             db,
		referralRepo:   referralRepo,
		promoterRepo:   promoterRepo,
		commissionRepo: commissionRepo,
		engine:         engine,
		programService: programService,
		log:            log,
	}
}

// CreateReferral registers a new signup under the promoter owning the token.
// The commission rate is copied from the active program so later program
// changes never affect this referral.
func (s *referralService) CreateReferral(ctx context.Context, referralToken string, userID uint64, invitationMethod models.InvitationMethod) (*models.Referral, error) {
	promoter, err := s.promoterRepo.GetByReferralToken(ctx, referralToken)
	if err != nil {
		return nil, err
	}
	if promoter == nil {
		return nil, ErrPromoterNotFound
	}
	if promoter.UserID == userID {
		return nil, ErrSelfReferral
	}

	if invitationMethod == "" {
		invitationMethod = models.InvitationMethodLink
	}

	commissionRate := decimal.Zero
	program, err := s.programService.GetActiveProgram(ctx)
	if err != nil {
		return nil, err
	}
	if program != nil {
		commissionRate = program.CommissionRate
	}

	referral := &models.Referral{
		UserID:           userID,
		PromoterID:       promoter.ID,
		InvitationMethod: invitationMethod,
		Status:           models.ReferralStatusSignup,
		CommissionRate:   commissionRate,
	}
	if err := s.referralRepo.Create(ctx, referral); err != nil {
		return nil, err
	}

	s.log.WithUserID(userID).Infof("Created referral %d for promoter %d", referral.ID, promoter.ID)
	return referral, nil
}

func (s *referralService) ListReferrals(ctx context.Context, userID uint64) ([]ReferralSummary, error) {
	promoter, err := s.promoterRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if promoter == nil {
		return []ReferralSummary{}, nil
	}

	referrals, err := s.referralRepo.ListByPromoterID(ctx, promoter.ID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ReferralSummary, 0, len(referrals))
	for _, referral := range referrals {
		summary := ReferralSummary{
			UserID:           referral.UserID,
			Status:           referral.Status,
			InvitationMethod: referral.InvitationMethod,
			CommissionRate:   referral.CommissionRate,
		}

		commission, err := s.commissionRepo.GetReferralPositiveCommission(ctx, referral.ID)
		if err != nil {
			return nil, err
		}
		if commission != nil {
			summary.CommissionAmount = commission.Amount
			summary.CommissionStatus = &commission.Status
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *referralService) HandlePurchase(ctx context.Context, userID uint64, amountPaid int64, invoiceExternalID string) (*models.PromoterCommission, error) {
	referral, err := s.referralRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if referral == nil {
		s.log.WithUserID(userID).Info("User has no referral associated, skipping commission")
		return nil, nil
	}
	if referral.Status != models.ReferralStatusSignup {
		s.log.WithUserID(userID).Debugf("Referral %d is not in signup state, skipping", referral.ID)
		return nil, nil
	}

	var commission *models.PromoterCommission
	err = repository.Transact(ctx, s.db, func(tx *sql.Tx) error {
		// The guarded update takes the referral row lock, serializing
		// concurrent deliveries of the same payment event.
		transitioned, err := s.referralRepo.UpdateStatusTx(ctx, tx, referral.ID,
			models.ReferralStatusSignup, models.ReferralStatusActive)
		if err != nil {
			return err
		}
		if !transitioned {
			return nil
		}

		commission, err = s.engine.CalculateCommissionTx(ctx, tx, referral, amountPaid, invoiceExternalID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if commission != nil {
		s.log.WithUserID(userID).Infof("User became an active referral of promoter %d", referral.PromoterID)
	}
	return commission, nil
}

func (s *referralService) HandleRefund(ctx context.Context, userID uint64, amountRefunded, amountPaid int64, invoiceExternalID string) (*models.PromoterCommission, error) {
	referral, err := s.referralRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if referral == nil {
		s.log.WithUserID(userID).Error("User has no referral associated, cannot process refund")
		return nil, nil
	}
	if referral.Status != models.ReferralStatusActive {
		s.log.WithUserID(userID).Debugf("Referral %d is not active, skipping refund", referral.ID)
		return nil, nil
	}

	var commission *models.PromoterCommission
	err = repository.Transact(ctx, s.db, func(tx *sql.Tx) error {
		transitioned, err := s.referralRepo.UpdateStatusTx(ctx, tx, referral.ID,
			models.ReferralStatusActive, models.ReferralStatusRefund)
		if err != nil {
			return err
		}
		if !transitioned {
			return nil
		}

		commission, err = s.engine.CalculateRefundTx(ctx, tx, referral, amountRefunded, amountPaid, invoiceExternalID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if commission != nil {
		s.log.WithUserID(userID).Infof("User has been refunded %d, commission adjusted", amountRefunded)
	}
	return commission, nil
}
