package service

import (
	"context"
	"fmt"
	"strings"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/logger"
	"fleetbook-backend/internal/repository"
	"fleetbook-backend/internal/utils"
)

type pricingService struct {
	store      repository.Store
	discounts  DiscountService
	selectRate utils.RateSelector
	opts       Options
}

// NewPricingService builds the pricing engine. A nil selector falls back to
// utils.MostSpecificRate.
func NewPricingService(store repository.Store, discounts DiscountService, selector utils.RateSelector, opts Options) PricingService {
	if selector == nil {
		selector = utils.MostSpecificRate
	}
	return &pricingService{
		store:      store,
		discounts:  discounts,
		selectRate: selector,
		opts:       opts.withDefaults(),
	}
}

func (s *pricingService) ComputePrice(ctx context.Context, req domain.QuoteRequest) (*domain.PriceBreakdown, error) {
	logger.EnterMethod("pricingService.ComputePrice", "categoryID", req.CategoryID, "pickup", req.PickupAt, "return", req.ReturnAt)

	days, err := utils.DurationDays(req.PickupAt, req.ReturnAt)
	if err != nil {
		logger.ExitMethodWithError("pricingService.ComputePrice", err)
		return nil, err
	}

	sctx, cancel := s.opts.storeContext(ctx)
	defer cancel()

	category, err := loadCategory(sctx, s.store.Categories(), req.CategoryID)
	if err != nil {
		logger.ExitMethodWithError("pricingService.ComputePrice", err)
		return nil, err
	}

	rules, err := s.store.Rates().ListForCategory(sctx, req.CategoryID, req.PickupAt, req.PickupAt)
	if err != nil {
		logger.ExitMethodWithError("pricingService.ComputePrice", err)
		return nil, err
	}
	rule, ok := s.selectRate(rules, req.PickupAt)
	if !ok {
		err := domain.NewNotFoundError("rate for category", fmt.Sprintf("%d at %s", req.CategoryID, req.PickupAt.Format("2006-01-02")))
		logger.ExitMethodWithError("pricingService.ComputePrice", err)
		return nil, err
	}

	lines, extrasTotal, err := s.extras(sctx, category.CompanyID, req.Extras, days)
	if err != nil {
		logger.ExitMethodWithError("pricingService.ComputePrice", err)
		return nil, err
	}

	code := strings.ToUpper(strings.TrimSpace(req.DiscountCode))
	var discount domain.DiscountResult
	if code != "" {
		subtotal := utils.DailyRate(rule, days)*int64(days) + extrasTotal
		discount = s.discount(ctx, domain.DiscountQuery{
			Code:           code,
			CompanyID:      category.CompanyID,
			CategoryID:     req.CategoryID,
			SubtotalCents:  subtotal,
			At:             s.opts.Now(),
			IgnoreUsageCap: req.IgnoreUsageCap,
		})
	}

	pb := utils.Breakdown(req.CategoryID, rule, days, lines, extrasTotal, discount, code)
	logger.ExitMethod("pricingService.ComputePrice", "total", pb.TotalCents, "ruleID", pb.RateRuleID)
	return &pb, nil
}

func (s *pricingService) extras(ctx context.Context, companyID int32, selections []domain.ExtraSelection, days int32) ([]domain.BookingExtra, int64, error) {
	if len(selections) == 0 {
		return nil, 0, nil
	}
	ids := make([]int32, 0, len(selections))
	for _, sel := range selections {
		ids = append(ids, sel.ExtraID)
	}
	found, err := s.store.Extras().GetByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	catalog := make([]domain.Extra, 0, len(found))
	for _, e := range found {
		if e.CompanyID == companyID {
			catalog = append(catalog, e)
		}
	}
	return utils.ExtraLines(catalog, selections, days)
}

// discount fails closed: any problem validating the code prices the booking
// without it and records why.
func (s *pricingService) discount(ctx context.Context, q domain.DiscountQuery) domain.DiscountResult {
	res, err := s.discounts.Validate(ctx, q)
	if err != nil {
		logger.Warn("Discount code could not be validated, pricing without it", "code", q.Code, "error", err)
		return domain.DiscountResult{Reason: "discount code could not be validated"}
	}
	return res
}
