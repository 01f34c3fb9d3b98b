package disclosure

import "time"

type PatientInfo struct {
	Name        string    `json:"name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	BloodType   string    `json:"blood_type"`
}

type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type HealthRecord struct {
	Title        string     `json:"title"`
	Category     string     `json:"category"`
	Content      string     `json:"content"`
	DateRecorded *time.Time `json:"date_recorded"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Payload es lo que ve quien escanea. Los campos de emergencia salen siempre;
// los de niveles superiores son punteros: nil = el nivel no los divulga.
type Payload struct {
	PatientInfo        PatientInfo       `json:"patient_info"`
	EmergencyContact   *EmergencyContact `json:"emergency_contact"`
	CriticalAllergies  []string          `json:"critical_allergies"`
	CurrentMedications []string          `json:"current_medications"`

	RecentHealthRecords *[]HealthRecord `json:"recent_health_records,omitempty"`

	AllHealthRecords  *[]HealthRecord `json:"all_health_records,omitempty"`
	ChronicConditions *[]string       `json:"chronic_conditions,omitempty"`
}
