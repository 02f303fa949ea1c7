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

type LabTestHandler struct {
	labService *service.LabTestService
}

func NewLabTestHandler(labService *service.LabTestService) *LabTestHandler {
	return &LabTestHandler{labService: labService}
}

// CreateLabTest registers a new lab test request from the clinic.
func (h *LabTestHandler) CreateLabTest(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.CreateLabTestRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	log := logger.Log.WithFields(logrus.Fields{
		"patient_id": req.PatientID,
		"test_type":  req.TestType,
	})
	log.Info("Create lab test request received")

	test, err := h.labService.CreateLabTest(r.Context(), req)
	if err != nil {
		return common.Internal("Could not create lab test", err)
	}

	common.SendSuccess(w, http.StatusCreated, "Lab test created successfully", test)
	return nil
}

// ListLabTests returns lab tests, newest first, paginated.
func (h *LabTestHandler) ListLabTests(w http.ResponseWriter, r *http.Request) *common.AppError {
	p := common.ParsePagination(r)

	tests, err := h.labService.ListLabTests(r.Context(), p.Limit, p.Offset)
	if err != nil {
		return common.Internal("Could not retrieve lab tests", err)
	}

	common.SendSuccess(w, http.StatusOK, "Lab tests retrieved successfully", tests)
	return nil
}

// UpdateLabResult stores a result, marks the test completed, and forwards the
// outcome to the clinic.
func (h *LabTestHandler) UpdateLabResult(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return common.BadRequest("Invalid lab test ID", nil)
	}

	var req model.UpdateLabResultRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	test, err := h.labService.CompleteLabTest(r.Context(), id, req.Result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.NotFound("Lab test not found", nil)
		}
		return common.Internal("Could not update lab result", err)
	}

	common.SendSuccess(w, http.StatusOK, "Lab result updated successfully", test)
	return nil
}
