package emergencyinfo

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Info es el perfil de emergencia del paciente. Las listas se guardan como texto JSON
// (array de strings) tal como las escribe el editor de perfil.
type Info struct {
	PatientID string

	ContactName  string
	ContactPhone string

	CriticalAllergies  string
	ChronicConditions  string
	CurrentMedications string

	BloodType string
	UpdatedAt time.Time
}

// DecodeList parsea un array JSON de strings. Vacío o "null" => lista vacía sin error.
func DecodeList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}, fmt.Errorf("decode list: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// EncodeList es el inverso de DecodeList; lo usan los seeds y los tests.
func EncodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}
