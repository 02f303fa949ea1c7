package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"pharmacy-api/logger"
	"pharmacy-api/model"
	"pharmacy-api/repository"
	"time"

	"github.com/sirupsen/logrus"
)

// ClinicNotifier pushes completed lab results back to the requesting clinic.
type ClinicNotifier interface {
	NotifyResult(ctx context.Context, test *model.LabTest) error
}

// HTTPClinicNotifier posts results as JSON to the configured clinic endpoint.
type HTTPClinicNotifier struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPClinicNotifier(endpoint string) *HTTPClinicNotifier {
	return &HTTPClinicNotifier{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *HTTPClinicNotifier) NotifyResult(ctx context.Context, test *model.LabTest) error {
	if n.Endpoint == "" {
		return nil
	}

	body, err := json.Marshal(test)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("clinic endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// LabTestService handles lab test business logic.
type LabTestService struct {
	repo     repository.ILabTestRepository
	notifier ClinicNotifier
}

func NewLabTestService(repo repository.ILabTestRepository, notifier ClinicNotifier) *LabTestService {
	return &LabTestService{repo: repo, notifier: notifier}
}

func (s *LabTestService) CreateLabTest(ctx context.Context, req model.CreateLabTestRequest) (*model.LabTest, error) {
	test := &model.LabTest{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		TestType:  req.TestType,
	}
	if err := s.repo.Create(ctx, test); err != nil {
		return nil, err
	}
	return test, nil
}

func (s *LabTestService) ListLabTests(ctx context.Context, limit, offset int) ([]*model.LabTest, error) {
	return s.repo.GetAll(ctx, limit, offset)
}

// CompleteLabTest stores the result and notifies the clinic. A notification
// failure does not undo the completed result; it is logged and the updated
// record is still returned.
func (s *LabTestService) CompleteLabTest(ctx context.Context, id int, result string) (*model.LabTest, error) {
	test, err := s.repo.UpdateResult(ctx, id, result)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyResult(ctx, test); err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"lab_test_id": test.ID,
		}).Error("Failed to notify clinic of lab result")
	}

	return test, nil
}
