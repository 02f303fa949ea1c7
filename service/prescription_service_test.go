package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pharmacy-api/common"
	"pharmacy-api/model"
)

type mockMedicationRepo struct{ mock.Mock }

func (m *mockMedicationRepo) GetAvailable(ctx context.Context, search, category string) ([]*model.Medication, error) {
	args := m.Called(ctx, search, category)
	return args.Get(0).([]*model.Medication), args.Error(1)
}
func (m *mockMedicationRepo) FindByNameOrCode(ctx context.Context, name string) (*model.Medication, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Medication), args.Error(1)
}
func (m *mockMedicationRepo) DecrementStock(tx *sql.Tx, medicationID, quantity int) error {
	args := m.Called(tx, medicationID, quantity)
	return args.Error(0)
}

type mockPrescriptionRepo struct{ mock.Mock }

func (m *mockPrescriptionRepo) Create(tx *sql.Tx, prescription *model.Prescription) error {
	args := m.Called(tx, prescription)
	return args.Error(0)
}
func (m *mockPrescriptionRepo) GetAll(ctx context.Context, status, patientName, clinicCode string, limit, offset int) ([]*model.Prescription, error) {
	args := m.Called(ctx, status, patientName, clinicCode, limit, offset)
	return args.Get(0).([]*model.Prescription), args.Error(1)
}
func (m *mockPrescriptionRepo) SearchByPatientName(ctx context.Context, patientName string) ([]*model.Prescription, error) {
	args := m.Called(ctx, patientName)
	return args.Get(0).([]*model.Prescription), args.Error(1)
}
func (m *mockPrescriptionRepo) GetByID(ctx context.Context, id int) (*model.Prescription, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*model.Prescription), args.Error(1)
}
func (m *mockPrescriptionRepo) UpdateStatus(ctx context.Context, id int, status model.PrescriptionStatus, notes string) (*model.Prescription, error) {
	args := m.Called(ctx, id, status, notes)
	return args.Get(0).(*model.Prescription), args.Error(1)
}

func newTestCache(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestPrescriptionService_CreatePrescription(t *testing.T) {
	paracetamol := &model.Medication{ID: 1, Name: "Paracetamol", Code: "PARA500", Price: 2.5, StockQuantity: 100}
	amoxicillin := &model.Medication{ID: 2, Name: "Amoxicillin", Code: "AMOX250", Price: 8.0, StockQuantity: 40}

	req := model.CreatePrescriptionRequest{
		PatientName: "Jane Roe",
		DoctorName:  "Dr. House",
		ClinicCode:  "CL-7",
		Medications: []model.PrescriptionItemRequest{
			{MedicationName: "Paracetamol", Quantity: 2, Dosage: "500mg"},
			{MedicationName: "Amoxicillin", Quantity: 1, Dosage: "250mg"},
		},
	}

	t.Run("prices items, reserves stock and invalidates the cache", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		dbMock.ExpectBegin()
		dbMock.ExpectCommit()

		medRepo := new(mockMedicationRepo)
		medRepo.On("FindByNameOrCode", mock.Anything, "Paracetamol").Return(paracetamol, nil).Once()
		medRepo.On("FindByNameOrCode", mock.Anything, "Amoxicillin").Return(amoxicillin, nil).Once()
		medRepo.On("DecrementStock", mock.Anything, 1, 2).Return(nil).Once()
		medRepo.On("DecrementStock", mock.Anything, 2, 1).Return(nil).Once()

		prescRepo := new(mockPrescriptionRepo)
		prescRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Prescription")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*model.Prescription).ID = 11
			}).Return(nil).Once()

		mr, cache := newTestCache(t)
		mr.Set(medicationsCacheKey, `[{"id":1}]`)

		svc := NewPrescriptionService(db, prescRepo, medRepo, cache)
		p, err := svc.CreatePrescription(context.Background(), req)

		assert.NoError(t, err)
		assert.Equal(t, 11, p.ID)
		assert.NotEmpty(t, p.PatientID)
		assert.Equal(t, model.PrescriptionPending, p.Status)
		assert.Equal(t, 2*2.5+8.0, p.TotalCost)
		assert.Len(t, p.Items, 2)
		assert.Equal(t, 5.0, p.Items[0].TotalPrice)

		assert.False(t, mr.Exists(medicationsCacheKey), "stale medication list should be evicted")
		assert.NoError(t, dbMock.ExpectationsWereMet())
		medRepo.AssertExpectations(t)
		prescRepo.AssertExpectations(t)
	})

	t.Run("insufficient stock rolls the transaction back", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		dbMock.ExpectBegin()
		dbMock.ExpectRollback()

		medRepo := new(mockMedicationRepo)
		medRepo.On("FindByNameOrCode", mock.Anything, "Paracetamol").Return(paracetamol, nil).Once()
		medRepo.On("FindByNameOrCode", mock.Anything, "Amoxicillin").Return(amoxicillin, nil).Once()
		medRepo.On("DecrementStock", mock.Anything, 1, 2).Return(common.ErrInsufficientStock).Once()

		prescRepo := new(mockPrescriptionRepo)

		mr, cache := newTestCache(t)
		mr.Set(medicationsCacheKey, `[{"id":1}]`)

		svc := NewPrescriptionService(db, prescRepo, medRepo, cache)
		_, err = svc.CreatePrescription(context.Background(), req)

		assert.ErrorIs(t, err, common.ErrInsufficientStock)
		prescRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.True(t, mr.Exists(medicationsCacheKey), "cache untouched when nothing committed")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("unknown medication fails before any stock is touched", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		medRepo := new(mockMedicationRepo)
		medRepo.On("FindByNameOrCode", mock.Anything, "Paracetamol").Return(nil, common.ErrMedicationNotFound).Once()

		_, cache := newTestCache(t)
		svc := NewPrescriptionService(db, new(mockPrescriptionRepo), medRepo, cache)
		_, err = svc.CreatePrescription(context.Background(), req)

		assert.ErrorIs(t, err, common.ErrMedicationNotFound)
		medRepo.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPrescriptionService_GetAvailableMedications(t *testing.T) {
	meds := []*model.Medication{
		{ID: 1, Name: "Paracetamol", Code: "PARA500", Price: 2.5, StockQuantity: 100},
	}

	t.Run("unfiltered listing is served from cache after the first hit", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		medRepo := new(mockMedicationRepo)
		medRepo.On("GetAvailable", mock.Anything, "", "").Return(meds, nil).Once()

		mr, cache := newTestCache(t)
		svc := NewPrescriptionService(db, new(mockPrescriptionRepo), medRepo, cache)

		first, err := svc.GetAvailableMedications(context.Background(), "", "")
		assert.NoError(t, err)
		assert.Len(t, first, 1)

		assert.True(t, mr.Exists(medicationsCacheKey))
		cached, _ := mr.Get(medicationsCacheKey)
		var stored []*model.Medication
		assert.NoError(t, json.Unmarshal([]byte(cached), &stored))
		assert.Equal(t, "Paracetamol", stored[0].Name)

		second, err := svc.GetAvailableMedications(context.Background(), "", "")
		assert.NoError(t, err)
		assert.Equal(t, first[0].Name, second[0].Name)
		medRepo.AssertNumberOfCalls(t, "GetAvailable", 1)
	})

	t.Run("filtered queries bypass the cache", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		medRepo := new(mockMedicationRepo)
		medRepo.On("GetAvailable", mock.Anything, "para", "").Return(meds, nil).Twice()

		mr, cache := newTestCache(t)
		svc := NewPrescriptionService(db, new(mockPrescriptionRepo), medRepo, cache)

		_, err = svc.GetAvailableMedications(context.Background(), "para", "")
		assert.NoError(t, err)
		_, err = svc.GetAvailableMedications(context.Background(), "para", "")
		assert.NoError(t, err)

		assert.False(t, mr.Exists(medicationsCacheKey))
		medRepo.AssertExpectations(t)
	})

	t.Run("cache entry expires with its TTL", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		medRepo := new(mockMedicationRepo)
		medRepo.On("GetAvailable", mock.Anything, "", "").Return(meds, nil).Twice()

		mr, cache := newTestCache(t)
		svc := NewPrescriptionService(db, new(mockPrescriptionRepo), medRepo, cache)

		_, err = svc.GetAvailableMedications(context.Background(), "", "")
		assert.NoError(t, err)
		assert.Equal(t, medicationsCacheTTL, mr.TTL(medicationsCacheKey))

		mr.FastForward(medicationsCacheTTL + time.Second)

		_, err = svc.GetAvailableMedications(context.Background(), "", "")
		assert.NoError(t, err)
		medRepo.AssertExpectations(t)
	})
}
