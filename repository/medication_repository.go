package repository

import (
	"context"
	"database/sql"
	"errors"
	"pharmacy-api/common"
	"pharmacy-api/logger"
	"pharmacy-api/model"
)

// IMedicationRepository defines the contract for medication database operations.
type IMedicationRepository interface {
	GetAvailable(ctx context.Context, search, category string) ([]*model.Medication, error)
	FindByNameOrCode(ctx context.Context, name string) (*model.Medication, error)
	DecrementStock(tx *sql.Tx, medicationID, quantity int) error
}

type MedicationRepository struct {
	DB *sql.DB
}

func NewMedicationRepository(db *sql.DB) *MedicationRepository {
	return &MedicationRepository{DB: db}
}

const medicationColumns = `id, name, code, description, stock_quantity, unit, price, requires_prescription, category, created_at`

// GetAvailable lists in-stock medications, optionally filtered by a name/code
// search term and a category.
func (r *MedicationRepository) GetAvailable(ctx context.Context, search, category string) ([]*model.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications
	          WHERE stock_quantity > 0
	            AND ($1 = '' OR name ILIKE '%' || $1 || '%' OR code ILIKE '%' || $1 || '%')
	            AND ($2 = '' OR category = $2)
	          ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query, search, category)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute query for available medications")
		return nil, err
	}
	defer rows.Close()

	var meds []*model.Medication
	for rows.Next() {
		med := &model.Medication{}
		if err := rows.Scan(&med.ID, &med.Name, &med.Code, &med.Description, &med.StockQuantity,
			&med.Unit, &med.Price, &med.RequiresPrescription, &med.Category, &med.CreatedAt); err != nil {
			logger.Log.WithError(err).Error("Failed to scan medication row")
			return nil, err
		}
		meds = append(meds, med)
	}
	return meds, rows.Err()
}

// FindByNameOrCode resolves a prescription line to a stocked medication by
// case-insensitive name match or exact code.
func (r *MedicationRepository) FindByNameOrCode(ctx context.Context, name string) (*model.Medication, error) {
	med := &model.Medication{}
	query := `SELECT ` + medicationColumns + ` FROM medications
	          WHERE name ILIKE '%' || $1 || '%' OR code = $1
	          ORDER BY id LIMIT 1`
	err := r.DB.QueryRowContext(ctx, query, name).Scan(&med.ID, &med.Name, &med.Code,
		&med.Description, &med.StockQuantity, &med.Unit, &med.Price,
		&med.RequiresPrescription, &med.Category, &med.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrMedicationNotFound
		}
		return nil, err
	}
	return med, nil
}

// DecrementStock reduces stock inside the caller's transaction. The update is
// conditional on sufficient stock so concurrent prescriptions cannot drive the
// quantity negative; zero rows affected means the stock check failed.
func (r *MedicationRepository) DecrementStock(tx *sql.Tx, medicationID, quantity int) error {
	query := `UPDATE medications SET stock_quantity = stock_quantity - $1
	          WHERE id = $2 AND stock_quantity >= $1`
	res, err := tx.Exec(query, quantity, medicationID)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute decrement stock query")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.ErrInsufficientStock
	}
	return nil
}
