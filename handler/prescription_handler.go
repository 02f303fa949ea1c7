package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"pharmacy-api/common"
	"pharmacy-api/logger"
	"pharmacy-api/model"
	"pharmacy-api/service"
	"strconv"

	"github.com/sirupsen/logrus"
)

type PrescriptionHandler struct {
	prescService *service.PrescriptionService
}

func NewPrescriptionHandler(prescService *service.PrescriptionService) *PrescriptionHandler {
	return &PrescriptionHandler{prescService: prescService}
}

// CreatePrescription godoc
// @Summary      Create a new prescription from a clinic
// @Tags         prescriptions
// @Accept       json
// @Produce      json
// @Param        request body model.CreatePrescriptionRequest true "Prescription payload"
// @Success      201 {object} common.SuccessResponse
// @Failure      400 {object} common.AppError
// @Router       /api/prescriptions [post]
func (h *PrescriptionHandler) CreatePrescription(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.CreatePrescriptionRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	log := logger.Log.WithFields(logrus.Fields{
		"patient_name": req.PatientName,
		"clinic_code":  req.ClinicCode,
	})
	log.Info("Create prescription request received")

	prescription, err := h.prescService.CreatePrescription(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrMedicationNotFound):
			return common.NotFound(err.Error(), nil)
		case errors.Is(err, common.ErrInsufficientStock):
			return common.BadRequest(err.Error(), nil)
		default:
			return common.Internal("Could not create prescription", err)
		}
	}

	common.SendSuccess(w, http.StatusCreated, "Prescription created successfully", prescription)
	return nil
}

func (h *PrescriptionHandler) ListPrescriptions(w http.ResponseWriter, r *http.Request) *common.AppError {
	p := common.ParsePagination(r)
	q := r.URL.Query()

	prescriptions, err := h.prescService.ListPrescriptions(r.Context(),
		q.Get("status"), q.Get("patientName"), q.Get("clinicCode"), p.Limit, p.Offset)
	if err != nil {
		return common.Internal("Could not retrieve prescriptions", err)
	}

	common.SendSuccess(w, http.StatusOK, "Prescriptions retrieved successfully", prescriptions)
	return nil
}

func (h *PrescriptionHandler) SearchByPatientName(w http.ResponseWriter, r *http.Request) *common.AppError {
	patientName := r.PathValue("patientName")
	if patientName == "" {
		return common.BadRequest("Patient name is required", nil)
	}

	prescriptions, err := h.prescService.SearchByPatientName(r.Context(), patientName)
	if err != nil {
		return common.Internal("Could not search prescriptions", err)
	}
	if len(prescriptions) == 0 {
		return common.NotFound("No prescriptions found for this patient", nil)
	}

	common.SendSuccess(w, http.StatusOK, "Prescriptions found", prescriptions)
	return nil
}

func (h *PrescriptionHandler) UpdatePrescriptionStatus(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return common.BadRequest("Invalid prescription ID", nil)
	}

	var req model.UpdatePrescriptionStatusRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	prescription, err := h.prescService.UpdateStatus(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.NotFound("Prescription not found", nil)
		}
		return common.Internal("Could not update prescription status", err)
	}

	common.SendSuccess(w, http.StatusOK, "Prescription status updated successfully", prescription)
	return nil
}

// GetAvailableMedications lists in-stock medications.
func (h *PrescriptionHandler) GetAvailableMedications(w http.ResponseWriter, r *http.Request) *common.AppError {
	q := r.URL.Query()

	medications, err := h.prescService.GetAvailableMedications(r.Context(), q.Get("search"), q.Get("category"))
	if err != nil {
		return common.Internal("Could not retrieve medications", err)
	}

	common.SendSuccess(w, http.StatusOK, "Medications retrieved successfully", medications)
	return nil
}
