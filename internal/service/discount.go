package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/logger"
	"fleetbook-backend/internal/repository"
	"fleetbook-backend/internal/utils"
)

const maxCodeLength = 64

type discountService struct {
	repo repository.DiscountRepository
	opts Options
}

func NewDiscountService(repo repository.DiscountRepository, opts Options) DiscountService {
	return &discountService{repo: repo, opts: opts.withDefaults()}
}

func (s *discountService) Validate(ctx context.Context, q domain.DiscountQuery) (domain.DiscountResult, error) {
	logger.EnterMethod("discountService.Validate", "code", q.Code, "companyID", q.CompanyID, "categoryID", q.CategoryID)

	code := strings.TrimSpace(q.Code)
	switch {
	case code == "":
		return domain.DiscountResult{}, domain.NewValidationError("discount code is empty")
	case len(code) > maxCodeLength:
		return domain.DiscountResult{}, domain.NewValidationError("discount code is too long")
	case q.SubtotalCents < 0:
		return domain.DiscountResult{}, domain.NewValidationError("subtotal cannot be negative")
	}

	sctx, cancel := s.opts.storeContext(ctx)
	defer cancel()
	dc, err := s.repo.GetByCode(sctx, q.CompanyID, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.ExitMethod("discountService.Validate", "valid", false)
			return domain.DiscountResult{Reason: "discount code not found"}, nil
		}
		logger.ExitMethodWithError("discountService.Validate", err)
		return domain.DiscountResult{}, err
	}

	at := q.At
	if at.IsZero() {
		at = s.opts.Now()
	}
	q.At = at
	res := evaluateDiscount(dc, q)
	logger.ExitMethod("discountService.Validate", "valid", res.Valid, "amount", res.AmountCents, "reason", res.Reason)
	return res, nil
}

// evaluateDiscount applies every applicability rule to a loaded code.
func evaluateDiscount(dc *domain.DiscountCode, q domain.DiscountQuery) domain.DiscountResult {
	invalid := func(reason string) domain.DiscountResult {
		return domain.DiscountResult{Reason: reason, Code: dc}
	}
	if !dc.Active {
		return invalid("discount code is inactive")
	}
	if dc.ValidFrom != nil && q.At.Before(*dc.ValidFrom) {
		return invalid("discount code is not valid yet")
	}
	if dc.ValidUntil != nil && q.At.After(*dc.ValidUntil) {
		return invalid("discount code has expired")
	}
	if !q.IgnoreUsageCap && dc.UsageCap > 0 && dc.UsageCount >= dc.UsageCap {
		return invalid("discount code has reached its usage limit")
	}
	if q.SubtotalCents < dc.MinBookingCents {
		return invalid(fmt.Sprintf("booking value is below the minimum of %s", utils.FormatCents(dc.MinBookingCents)))
	}
	if len(dc.CategoryIDs) > 0 && !slices.Contains(dc.CategoryIDs, q.CategoryID) {
		return invalid("discount code does not apply to this vehicle category")
	}
	return domain.DiscountResult{
		Valid:       true,
		AmountCents: utils.DiscountAmount(dc, q.SubtotalCents),
		Code:        dc,
	}
}
