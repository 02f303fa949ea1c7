package model

import "time"

type PrescriptionStatus string

const (
	PrescriptionPending    PrescriptionStatus = "pending"
	PrescriptionProcessing PrescriptionStatus = "processing"
	PrescriptionReady      PrescriptionStatus = "ready"
	PrescriptionCompleted  PrescriptionStatus = "completed"
	PrescriptionCancelled  PrescriptionStatus = "cancelled"
)

func ValidPrescriptionStatus(s PrescriptionStatus) bool {
	switch s {
	case PrescriptionPending, PrescriptionProcessing, PrescriptionReady,
		PrescriptionCompleted, PrescriptionCancelled:
		return true
	}
	return false
}

type PrescriptionItem struct {
	ID             int     `json:"id"`
	PrescriptionID int     `json:"prescription_id"`
	MedicationID   int     `json:"medication_id"`
	MedicationName string  `json:"medication_name"`
	Quantity       int     `json:"quantity"`
	Dosage         string  `json:"dosage"`
	Duration       string  `json:"duration,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	Price          float64 `json:"price"`
	TotalPrice     float64 `json:"total_price"`
}

type Prescription struct {
	ID               int                `json:"id"`
	PatientID        string             `json:"patient_id"`
	PatientName      string             `json:"patient_name"`
	PatientAge       int                `json:"patient_age,omitempty"`
	PatientPhone     string             `json:"patient_phone,omitempty"`
	DoctorName       string             `json:"doctor_name"`
	ClinicName       string             `json:"clinic_name,omitempty"`
	ClinicCode       string             `json:"clinic_code"`
	Items            []PrescriptionItem `json:"medications"`
	Notes            string             `json:"notes,omitempty"`
	Status           PrescriptionStatus `json:"status"`
	TotalCost        float64            `json:"total_cost"`
	PrescriptionDate time.Time          `json:"prescription_date"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}
