package service

import (
	"context"
	"time"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/logger"
	"fleetbook-backend/internal/repository"
)

// defaultLedgerWindow is used when a summary is requested without dates.
const defaultLedgerWindow = 30 * 24 * time.Hour

type ledgerService struct {
	repo repository.LedgerRepository
	opts Options
}

func NewLedgerService(repo repository.LedgerRepository, opts Options) LedgerService {
	return &ledgerService{repo: repo, opts: opts.withDefaults()}
}

func (s *ledgerService) GetSummary(ctx context.Context, actor domain.Actor, filter domain.LedgerFilter) (*domain.LedgerSummary, error) {
	logger.EnterMethod("ledgerService.GetSummary", "actor", actor.ID, "companyID", filter.CompanyID, "categoryID", filter.CategoryID)

	if !actor.IsStaff() && actor.Role != domain.RoleSystem {
		err := domain.NewForbiddenError("only staff can view the ledger")
		logger.ExitMethodWithError("ledgerService.GetSummary", err)
		return nil, err
	}
	if actor.IsStaff() && actor.CompanyID != 0 {
		if filter.CompanyID != 0 && filter.CompanyID != actor.CompanyID {
			err := domain.NewForbiddenError("ledger of another operator")
			logger.ExitMethodWithError("ledgerService.GetSummary", err)
			return nil, err
		}
		filter.CompanyID = actor.CompanyID
	}

	if filter.To.IsZero() {
		filter.To = s.opts.Now()
	}
	if filter.From.IsZero() {
		filter.From = filter.To.Add(-defaultLedgerWindow)
	}
	if !filter.From.Before(filter.To) {
		err := domain.NewInvalidRangeError("ledger window must start before it ends")
		logger.ExitMethodWithError("ledgerService.GetSummary", err)
		return nil, err
	}

	sctx, cancel := s.opts.storeContext(ctx)
	defer cancel()
	summary, err := s.repo.GetSummary(sctx, filter)
	if err != nil {
		logger.ExitMethodWithError("ledgerService.GetSummary", err)
		return nil, err
	}
	logger.ExitMethod("ledgerService.GetSummary", "gross", summary.GrossRevenueCents, "outstanding", summary.OutstandingCents)
	return summary, nil
}
