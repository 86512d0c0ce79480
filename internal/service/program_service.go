package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"cryptonary/referral-service/internal/models"
	"cryptonary/referral-service/internal/repository"
	"cryptonary/referral-service/pkg/logger"
)

var (
	ErrProgramNotFound       = errors.New("referral program not found")
	ErrInvalidCommissionRate = errors.New("commission rate must be at least 0.01")
)

var minCommissionRate = decimal.RequireFromString("0.01")

// ProgramService manages referral program configuration. At most one program
// is active at a time; activation is transactionally exclusive.
type ProgramService interface {
	CreateProgram(ctx context.Context, name string, commissionRate decimal.Decimal, minWithdrawalBalance int64, activate bool) (*models.ReferralProgram, error)
	ActivateProgram(ctx context.Context, id uint64) error
	GetActiveProgram(ctx context.Context) (*models.ReferralProgram, error)
}

type programService struct {
	programRepo repository.ProgramRepository
	log         *logger.Logger
}

func NewProgramService(programRepo repository.ProgramRepository, log *logger.Logger) ProgramService {
	return &programService{
		programRepo: programRepo,
		log:         log,
	}
}

func (s *programService) CreateProgram(ctx context.Context, name string, commissionRate decimal.Decimal, minWithdrawalBalance int64, activate bool) (*models.ReferralProgram, error) {
	if commissionRate.LessThan(minCommissionRate) {
		return nil, ErrInvalidCommissionRate
	}

	program := &models.ReferralProgram{
		Name:                 name,
		CommissionRate:       commissionRate,
		MinWithdrawalBalance: minWithdrawalBalance,
	}
	if err := s.programRepo.Create(ctx, program); err != nil {
		return nil, err
	}

	if activate {
		if err := s.programRepo.Activate(ctx, program.ID); err != nil {
			return nil, err
		}
		program.IsActive = true
	}

	s.log.Infof("Created referral program %q with commission rate %s%%", name, commissionRate.StringFixed(2))
	return program, nil
}

func (s *programService) ActivateProgram(ctx context.Context, id uint64) error {
	program, err := s.programRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if program == nil {
		return ErrProgramNotFound
	}

	if err := s.programRepo.Activate(ctx, id); err != nil {
		return fmt.Errorf("failed to activate program %d: %w", id, err)
	}

	s.log.Infof("Activated referral program %q", program.Name)
	return nil
}

// GetActiveProgram returns the active program, or nil when none is active.
func (s *programService) GetActiveProgram(ctx context.Context) (*models.ReferralProgram, error) {
	return s.programRepo.GetActive(ctx)
}
