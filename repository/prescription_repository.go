package repository

import (
	"context"
	"database/sql"
	"pharmacy-api/logger"
	"pharmacy-api/model"

	"github.com/sirupsen/logrus"
)

// IPrescriptionRepository defines the contract for prescription database operations.
type IPrescriptionRepository interface {
	Create(tx *sql.Tx, prescription *model.Prescription) error
	GetAll(ctx context.Context, status, patientName, clinicCode string, limit, offset int) ([]*model.Prescription, error)
	SearchByPatientName(ctx context.Context, patientName string) ([]*model.Prescription, error)
	GetByID(ctx context.Context, id int) (*model.Prescription, error)
	UpdateStatus(ctx context.Context, id int, status model.PrescriptionStatus, notes string) (*model.Prescription, error)
}

type PrescriptionRepository struct {
	DB *sql.DB
}

func NewPrescriptionRepository(db *sql.DB) *PrescriptionRepository {
	return &PrescriptionRepository{DB: db}
}

const prescriptionColumns = `id, patient_id, patient_name, patient_age, patient_phone, doctor_name,
	clinic_name, clinic_code, notes, status, total_cost, prescription_date, created_at, updated_at`

// Create inserts the prescription and its items inside the caller's
// transaction so the stock decrement and the order commit together.
func (r *PrescriptionRepository) Create(tx *sql.Tx, p *model.Prescription) error {
	log := logger.Log.WithFields(logrus.Fields{
		"patient_name": p.PatientName,
		"clinic_code":  p.ClinicCode,
	})
	log.Info("Executing query to create a new prescription")

	query := `INSERT INTO prescriptions
	          (patient_id, patient_name, patient_age, patient_phone, doctor_name, clinic_name, clinic_code, notes, status, total_cost)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id, prescription_date, created_at, updated_at`
	err := tx.QueryRow(query, p.PatientID, p.PatientName, p.PatientAge, p.PatientPhone,
		p.DoctorName, p.ClinicName, p.ClinicCode, p.Notes, p.Status, p.TotalCost).
		Scan(&p.ID, &p.PrescriptionDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create prescription query")
		return err
	}

	itemQuery := `INSERT INTO prescription_items
	              (prescription_id, medication_id, medication_name, quantity, dosage, duration, notes, price, total_price)
	              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	for i := range p.Items {
		item := &p.Items[i]
		item.PrescriptionID = p.ID
		if err := tx.QueryRow(itemQuery, p.ID, item.MedicationID, item.MedicationName,
			item.Quantity, item.Dosage, item.Duration, item.Notes, item.Price, item.TotalPrice).
			Scan(&item.ID); err != nil {
			log.WithError(err).Error("Failed to execute create prescription item query")
			return err
		}
	}
	return nil
}

func (r *PrescriptionRepository) GetAll(ctx context.Context, status, patientName, clinicCode string, limit, offset int) ([]*model.Prescription, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions
	          WHERE ($1 = '' OR status = $1)
	            AND ($2 = '' OR patient_name ILIKE '%' || $2 || '%')
	            AND ($3 = '' OR clinic_code = $3)
	          ORDER BY prescription_date DESC LIMIT $4 OFFSET $5`
	rows, err := r.DB.QueryContext(ctx, query, status, patientName, clinicCode, limit, offset)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute query for prescriptions")
		return nil, err
	}
	defer rows.Close()
	return r.collect(ctx, rows)
}

// SearchByPatientName returns open prescriptions (pending/processing/ready)
// matching the patient name.
func (r *PrescriptionRepository) SearchByPatientName(ctx context.Context, patientName string) ([]*model.Prescription, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions
	          WHERE patient_name ILIKE '%' || $1 || '%'
	            AND status IN ('pending', 'processing', 'ready')
	          ORDER BY prescription_date DESC`
	rows, err := r.DB.QueryContext(ctx, query, patientName)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute prescription search query")
		return nil, err
	}
	defer rows.Close()
	return r.collect(ctx, rows)
}

func (r *PrescriptionRepository) GetByID(ctx context.Context, id int) (*model.Prescription, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE id = $1`
	p := &model.Prescription{}
	if err := r.scan(r.DB.QueryRowContext(ctx, query, id), p); err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Items = items
	return p, nil
}

func (r *PrescriptionRepository) UpdateStatus(ctx context.Context, id int, status model.PrescriptionStatus, notes string) (*model.Prescription, error) {
	query := `UPDATE prescriptions
	          SET status = $1, notes = COALESCE(NULLIF($2, ''), notes), updated_at = NOW()
	          WHERE id = $3 RETURNING ` + prescriptionColumns
	p := &model.Prescription{}
	if err := r.scan(r.DB.QueryRowContext(ctx, query, status, notes, id), p); err != nil {
		return nil, err
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PrescriptionRepository) scan(row rowScanner, p *model.Prescription) error {
	var age sql.NullInt64
	var phone, clinicName sql.NullString
	err := row.Scan(&p.ID, &p.PatientID, &p.PatientName, &age, &phone, &p.DoctorName,
		&clinicName, &p.ClinicCode, &p.Notes, &p.Status, &p.TotalCost,
		&p.PrescriptionDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	p.PatientAge = int(age.Int64)
	p.PatientPhone = phone.String
	p.ClinicName = clinicName.String
	return nil
}

func (r *PrescriptionRepository) collect(ctx context.Context, rows *sql.Rows) ([]*model.Prescription, error) {
	var prescriptions []*model.Prescription
	for rows.Next() {
		p := &model.Prescription{}
		if err := r.scan(rows, p); err != nil {
			logger.Log.WithError(err).Error("Failed to scan prescription row")
			return nil, err
		}
		prescriptions = append(prescriptions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, p := range prescriptions {
		items, err := r.loadItems(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.Items = items
	}
	return prescriptions, nil
}

func (r *PrescriptionRepository) loadItems(ctx context.Context, prescriptionID int) ([]model.PrescriptionItem, error) {
	query := `SELECT id, prescription_id, medication_id, medication_name, quantity, dosage,
	          COALESCE(duration, ''), COALESCE(notes, ''), price, total_price
	          FROM prescription_items WHERE prescription_id = $1 ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query, prescriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.PrescriptionItem
	for rows.Next() {
		var item model.PrescriptionItem
		if err := rows.Scan(&item.ID, &item.PrescriptionID, &item.MedicationID, &item.MedicationName,
			&item.Quantity, &item.Dosage, &item.Duration, &item.Notes, &item.Price, &item.TotalPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
