package accessgrants

import (
	"strings"
	"time"
)

type AccessLevel string

const (
	LevelEmergency AccessLevel = "emergency"
	LevelBasic     AccessLevel = "basic"
	LevelFull      AccessLevel = "full"
)

// Field es una categoría de datos que un nivel puede divulgar.
type Field string

const (
	FieldPatientInfo         Field = "patient_info"
	FieldEmergencyContact    Field = "emergency_contact"
	FieldCriticalAllergies   Field = "critical_allergies"
	FieldCurrentMedications  Field = "current_medications"
	FieldRecentHealthRecords Field = "recent_health_records"
	FieldAllHealthRecords    Field = "all_health_records"
	FieldChronicConditions   Field = "chronic_conditions"
)

const (
	RecentRecordsWindow = 30 * 24 * time.Hour
	RecentRecordsLimit  = 10
	PreviewLength       = 200
	TruncationMarker    = "..."
)

// Cada nivel agrega campos sobre el anterior: full ⊇ basic ⊇ emergency.
var (
	emergencyFields = []Field{
		FieldPatientInfo,
		FieldEmergencyContact,
		FieldCriticalAllergies,
		FieldCurrentMedications,
	}
	basicExtra = []Field{FieldRecentHealthRecords}
	fullExtra  = []Field{FieldAllHealthRecords, FieldChronicConditions}
)

func AllLevels() []AccessLevel {
	return []AccessLevel{LevelEmergency, LevelBasic, LevelFull}
}

// ParseAccessLevel normaliza (trim + lower) y valida.
func ParseAccessLevel(s string) (AccessLevel, error) {
	l := AccessLevel(strings.ToLower(strings.TrimSpace(s)))
	switch l {
	case LevelEmergency, LevelBasic, LevelFull:
		return l, nil
	default:
		return "", ErrInvalidAccessLevel
	}
}

func IsValidLevel(s string) bool {
	_, err := ParseAccessLevel(s)
	return err == nil
}

// Rank ordena los niveles (0 = inválido).
func (l AccessLevel) Rank() int {
	switch l {
	case LevelEmergency:
		return 1
	case LevelBasic:
		return 2
	case LevelFull:
		return 3
	default:
		return 0
	}
}

// DisclosureFields devuelve el set de categorías que divulga el nivel (vacío si es inválido).
func DisclosureFields(l AccessLevel) map[Field]struct{} {
	out := map[Field]struct{}{}
	rank := l.Rank()
	if rank >= 1 {
		for _, f := range emergencyFields {
			out[f] = struct{}{}
		}
	}
	if rank >= 2 {
		for _, f := range basicExtra {
			out[f] = struct{}{}
		}
	}
	if rank >= 3 {
		for _, f := range fullExtra {
			out[f] = struct{}{}
		}
	}
	return out
}

func Includes(l AccessLevel, f Field) bool {
	_, ok := DisclosureFields(l)[f]
	return ok
}
