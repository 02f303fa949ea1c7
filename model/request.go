// file: model/request.go

package model

// RegisterRequest defines the payload for creating a new user.
// It includes validation tags to ensure data integrity at the entry point.
type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=staff admin doctor"`
}

// LoginRequest defines the payload for user authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token to be rotated.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest carries the refresh token to revoke. The token is optional;
// logout without one is still a success.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name,omitempty" validate:"omitempty,min=2,max=100"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

// UpdateUserRoleRequest defines the payload for updating a user's role.
type UpdateUserRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=staff admin doctor"`
}

type CreateLabTestRequest struct {
	PatientID string `json:"patient_id" validate:"required"`
	DoctorID  string `json:"doctor_id" validate:"required"`
	TestType  string `json:"test_type" validate:"required"`
}

type UpdateLabResultRequest struct {
	Result string `json:"result" validate:"required"`
}

type PrescriptionItemRequest struct {
	MedicationID   int    `json:"medication_id"`
	MedicationName string `json:"medication_name" validate:"required"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	Dosage         string `json:"dosage" validate:"required"`
	Duration       string `json:"duration"`
	Notes          string `json:"notes"`
}

type CreatePrescriptionRequest struct {
	PatientID    string                    `json:"patient_id"`
	PatientName  string                    `json:"patient_name" validate:"required"`
	PatientAge   int                       `json:"patient_age" validate:"omitempty,gt=0,lt=150"`
	PatientPhone string                    `json:"patient_phone"`
	DoctorName   string                    `json:"doctor_name" validate:"required"`
	ClinicName   string                    `json:"clinic_name"`
	ClinicCode   string                    `json:"clinic_code" validate:"required"`
	Medications  []PrescriptionItemRequest `json:"medications" validate:"required,min=1,dive"`
	Notes        string                    `json:"notes"`
}

type UpdatePrescriptionStatusRequest struct {
	Status PrescriptionStatus `json:"status" validate:"required,oneof=pending processing ready completed cancelled"`
	Notes  string             `json:"notes"`
}
