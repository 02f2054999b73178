package postgres

import (
	"context"
	"database/sql"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/repository"
)

type categoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) repository.CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) GetByID(ctx context.Context, id int32) (*domain.VehicleCategory, error) {
	c := &domain.VehicleCategory{}
	query := `SELECT id, company_id, name, description, seats, fuel_type, active, created_on FROM vehicle_categories WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.CompanyID, &c.Name, &c.Description, &c.Seats, &c.FuelType, &c.Active, &c.CreatedOn)
	if err != nil {
		return nil, notFound(err, "vehicle category", id)
	}
	return c, nil
}

func (r *categoryRepository) List(ctx context.Context, companyID int32) ([]domain.VehicleCategory, error) {
	query := `SELECT id, company_id, name, description, seats, fuel_type, active, created_on
	          FROM vehicle_categories WHERE company_id = $1 AND active ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, classify("list categories", err)
	}
	defer rows.Close()

	var categories []domain.VehicleCategory
	for rows.Next() {
		var c domain.VehicleCategory
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Description, &c.Seats, &c.FuelType, &c.Active, &c.CreatedOn); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

type inventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) repository.InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) CountUsable(ctx context.Context, categoryID int32, locationID *int32) (int32, error) {
	return countUsable(ctx, r.db, categoryID, locationID)
}

func (r *inventoryRepository) ListByCategory(ctx context.Context, categoryID int32) ([]domain.InventoryUnit, error) {
	query := `SELECT id, category_id, location_id, license_plate, state, created_on FROM vehicles WHERE category_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, classify("list vehicles", err)
	}
	defer rows.Close()

	var units []domain.InventoryUnit
	for rows.Next() {
		var u domain.InventoryUnit
		if err := rows.Scan(&u.ID, &u.CategoryID, &u.LocationID, &u.LicensePlate, &u.State, &u.CreatedOn); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

type customerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) repository.CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) GetByID(ctx context.Context, id int32) (*domain.Customer, error) {
	c := &domain.Customer{}
	query := `SELECT id, company_id, name, email, phone, blocked, created_on FROM customers WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone, &c.Blocked, &c.CreatedOn)
	if err != nil {
		return nil, notFound(err, "customer", id)
	}
	return c, nil
}
