package model

import "time"

type LabTestStatus string

const (
	LabTestPending    LabTestStatus = "pending"
	LabTestInProgress LabTestStatus = "in_progress"
	LabTestCompleted  LabTestStatus = "completed"
)

type LabTest struct {
	ID        int           `json:"id"`
	PatientID string        `json:"patient_id"`
	DoctorID  string        `json:"doctor_id"`
	TestType  string        `json:"test_type"`
	Status    LabTestStatus `json:"status"`
	Result    string        `json:"result"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
