package service

import (
	"context"
	"errors"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/repository"
)

// loadCategory maps a missing or retired category to KindUnknownCategory.
func loadCategory(ctx context.Context, repo repository.CategoryRepository, id int32) (*domain.VehicleCategory, error) {
	if id <= 0 {
		return nil, domain.NewValidationError("category id is required")
	}
	c, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewUnknownCategoryError(id)
		}
		return nil, err
	}
	if !c.Active {
		return nil, domain.NewUnknownCategoryError(id)
	}
	return c, nil
}
