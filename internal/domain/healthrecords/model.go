package healthrecords

import "time"

// Categorías conocidas; el store acepta cualquier string.
const (
	CategoryAllergy     = "allergy"
	CategoryMedication  = "medication"
	CategoryCondition   = "condition"
	CategoryLabResult   = "lab_result"
	CategoryVaccination = "vaccination"
)

type Record struct {
	ID        string
	PatientID string

	Title    string
	Category string
	Content  string

	DateRecorded *time.Time
	IsActive     bool

	CreatedAt time.Time
}

// ListFilter acota ListActive. Campos cero = sin filtro.
type ListFilter struct {
	CreatedFrom *time.Time // inclusive
	Categories  []string
	Limit       int
}

// Matches aplica el filtro (excepto Limit) a un registro.
func (f ListFilter) Matches(r Record) bool {
	if f.CreatedFrom != nil && r.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range f.Categories {
		if c == r.Category {
			return true
		}
	}
	return false
}
