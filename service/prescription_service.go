package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"pharmacy-api/logger"
	"pharmacy-api/model"
	"pharmacy-api/repository"
	"time"

	"github.com/google/uuid"
)

const medicationsCacheKey = "medications:available"
const medicationsCacheTTL = 10 * time.Minute

// PrescriptionService handles prescription intake and medication lookups.
// Stock checks, pricing and the prescription insert run in one transaction
// so a prescription can never commit against stock it did not reserve.
type PrescriptionService struct {
	db        *sql.DB
	prescRepo repository.IPrescriptionRepository
	medRepo   repository.IMedicationRepository
	cache     ICacheClient
}

func NewPrescriptionService(db *sql.DB, prescRepo repository.IPrescriptionRepository, medRepo repository.IMedicationRepository, cache ICacheClient) *PrescriptionService {
	return &PrescriptionService{
		db:        db,
		prescRepo: prescRepo,
		medRepo:   medRepo,
		cache:     cache,
	}
}

func (s *PrescriptionService) CreatePrescription(ctx context.Context, req model.CreatePrescriptionRequest) (*model.Prescription, error) {
	patientID := req.PatientID
	if patientID == "" {
		patientID = "patient_" + uuid.NewString()
	}

	var totalCost float64
	items := make([]model.PrescriptionItem, 0, len(req.Medications))
	for _, line := range req.Medications {
		med, err := s.medRepo.FindByNameOrCode(ctx, line.MedicationName)
		if err != nil {
			return nil, fmt.Errorf("medication %q: %w", line.MedicationName, err)
		}

		itemCost := med.Price * float64(line.Quantity)
		totalCost += itemCost
		items = append(items, model.PrescriptionItem{
			MedicationID:   med.ID,
			MedicationName: med.Name,
			Quantity:       line.Quantity,
			Dosage:         line.Dosage,
			Duration:       line.Duration,
			Notes:          line.Notes,
			Price:          med.Price,
			TotalPrice:     itemCost,
		})
	}

	prescription := &model.Prescription{
		PatientID:    patientID,
		PatientName:  req.PatientName,
		PatientAge:   req.PatientAge,
		PatientPhone: req.PatientPhone,
		DoctorName:   req.DoctorName,
		ClinicName:   req.ClinicName,
		ClinicCode:   req.ClinicCode,
		Items:        items,
		Notes:        req.Notes,
		Status:       model.PrescriptionPending,
		TotalCost:    totalCost,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, item := range items {
		if err := s.medRepo.DecrementStock(tx, item.MedicationID, item.Quantity); err != nil {
			return nil, fmt.Errorf("medication %q: %w", item.MedicationName, err)
		}
	}

	if err := s.prescRepo.Create(tx, prescription); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	// Stock changed, so the cached availability list is stale.
	s.cache.Del(ctx, medicationsCacheKey)

	return prescription, nil
}

func (s *PrescriptionService) ListPrescriptions(ctx context.Context, status, patientName, clinicCode string, limit, offset int) ([]*model.Prescription, error) {
	return s.prescRepo.GetAll(ctx, status, patientName, clinicCode, limit, offset)
}

func (s *PrescriptionService) SearchByPatientName(ctx context.Context, patientName string) ([]*model.Prescription, error) {
	return s.prescRepo.SearchByPatientName(ctx, patientName)
}

func (s *PrescriptionService) UpdateStatus(ctx context.Context, id int, status model.PrescriptionStatus, notes string) (*model.Prescription, error) {
	return s.prescRepo.UpdateStatus(ctx, id, status, notes)
}

// GetAvailableMedications lists in-stock medications using a cache-aside
// strategy. Only the unfiltered listing is cached; filtered queries go to
// the database directly.
func (s *PrescriptionService) GetAvailableMedications(ctx context.Context, search, category string) ([]*model.Medication, error) {
	cacheable := search == "" && category == ""

	if cacheable {
		cached, err := s.cache.Get(ctx, medicationsCacheKey).Result()
		if err == nil {
			var meds []*model.Medication
			if err := json.Unmarshal([]byte(cached), &meds); err == nil {
				return meds, nil
			}
		}
	}

	meds, err := s.medRepo.GetAvailable(ctx, search, category)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if data, err := json.Marshal(meds); err == nil {
			if err := s.cache.Set(ctx, medicationsCacheKey, data, medicationsCacheTTL).Err(); err != nil {
				logger.Log.WithError(err).Warn("Failed to cache medication list")
			}
		}
	}

	return meds, nil
}
