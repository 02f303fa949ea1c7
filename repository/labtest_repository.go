package repository

import (
	"context"
	"database/sql"
	"errors"
	"pharmacy-api/logger"
	"pharmacy-api/model"

	"github.com/sirupsen/logrus"
)

// ILabTestRepository defines the contract for lab test database operations.
type ILabTestRepository interface {
	Create(ctx context.Context, test *model.LabTest) error
	GetAll(ctx context.Context, limit, offset int) ([]*model.LabTest, error)
	GetByID(ctx context.Context, id int) (*model.LabTest, error)
	UpdateResult(ctx context.Context, id int, result string) (*model.LabTest, error)
}

type LabTestRepository struct {
	DB *sql.DB
}

func NewLabTestRepository(db *sql.DB) *LabTestRepository {
	return &LabTestRepository{DB: db}
}

const labTestColumns = `id, patient_id, doctor_id, test_type, status, result, created_at, updated_at`

func (r *LabTestRepository) Create(ctx context.Context, test *model.LabTest) error {
	log := logger.Log.WithFields(logrus.Fields{
		"patient_id": test.PatientID,
		"test_type":  test.TestType,
	})
	log.Info("Executing query to create a new lab test")

	query := `INSERT INTO lab_tests (patient_id, doctor_id, test_type)
	          VALUES ($1, $2, $3) RETURNING id, status, result, created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, test.PatientID, test.DoctorID, test.TestType).
		Scan(&test.ID, &test.Status, &test.Result, &test.CreatedAt, &test.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create lab test query")
		return err
	}
	return nil
}

func (r *LabTestRepository) GetAll(ctx context.Context, limit, offset int) ([]*model.LabTest, error) {
	query := `SELECT ` + labTestColumns + ` FROM lab_tests ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute query for all lab tests")
		return nil, err
	}
	defer rows.Close()

	var tests []*model.LabTest
	for rows.Next() {
		test := &model.LabTest{}
		if err := rows.Scan(&test.ID, &test.PatientID, &test.DoctorID, &test.TestType,
			&test.Status, &test.Result, &test.CreatedAt, &test.UpdatedAt); err != nil {
			logger.Log.WithError(err).Error("Failed to scan lab test row")
			return nil, err
		}
		tests = append(tests, test)
	}
	return tests, rows.Err()
}

func (r *LabTestRepository) GetByID(ctx context.Context, id int) (*model.LabTest, error) {
	test := &model.LabTest{}
	query := `SELECT ` + labTestColumns + ` FROM lab_tests WHERE id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&test.ID, &test.PatientID, &test.DoctorID,
		&test.TestType, &test.Status, &test.Result, &test.CreatedAt, &test.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return test, nil
}

// UpdateResult stores the result and moves the test to completed in one statement.
func (r *LabTestRepository) UpdateResult(ctx context.Context, id int, result string) (*model.LabTest, error) {
	log := logger.Log.WithField("lab_test_id", id)
	log.Info("Executing query to update lab test result")

	test := &model.LabTest{}
	query := `UPDATE lab_tests SET result = $1, status = $2, updated_at = NOW()
	          WHERE id = $3 RETURNING ` + labTestColumns
	err := r.DB.QueryRowContext(ctx, query, result, model.LabTestCompleted, id).
		Scan(&test.ID, &test.PatientID, &test.DoctorID, &test.TestType,
			&test.Status, &test.Result, &test.CreatedAt, &test.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		log.WithError(err).Error("Failed to execute update lab result query")
		return nil, err
	}
	return test, nil
}
