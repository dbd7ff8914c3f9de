package soap

// Record is a structured physiotherapy session report. The four narrative
// sections follow the SOAP clinical documentation convention.
type Record struct {
	PatientName     string `json:"patient_name" validate:"required"`
	PatientID       string `json:"patient_id,omitempty"`
	SessionDate     Date   `json:"session_date"`
	TherapistName   string `json:"therapist_name,omitempty"`
	SessionDuration int    `json:"session_duration,omitempty" validate:"omitempty,min=15,max=180"`
	ChiefComplaint  string `json:"chief_complaint,omitempty"`
	TreatmentGoals  string `json:"treatment_goals,omitempty"`

	Subjective string `json:"subjective" validate:"required,min=10"`
	Objective  string `json:"objective" validate:"required,min=10"`
	Assessment string `json:"assessment" validate:"required,min=10"`
	Plan       string `json:"plan" validate:"required,min=10"`

	FollowUpDate Date `json:"follow_up_date,omitempty"`

	ClinicLogoURL         string `json:"clinic_logo_url,omitempty" validate:"omitempty,url"`
	TherapistSignatureURL string `json:"therapist_signature_url,omitempty" validate:"omitempty,url"`
}
