package main

import (
	"context"
	"time"

	mem "patient-health-qr/internal/adapters/storage/memory"
	"patient-health-qr/internal/domain/emergencyinfo"
	"patient-health-qr/internal/domain/healthrecords"
	"patient-health-qr/internal/domain/patients"
)

const demoPatientID = "demo-patient"

func seedDemoStores(ctx context.Context) (demoStores, error) {
	s := demoStores{
		patients:  mem.NewPatientsRepo(),
		emergency: mem.NewEmergencyInfoRepo(),
		records:   mem.NewHealthRecordsRepo(),
	}
	now := time.Now().UTC()

	if err := s.patients.Save(ctx, patients.Profile{
		ID:          demoPatientID,
		FirstName:   "Demo",
		LastName:    "Patient",
		DateOfBirth: time.Date(1985, 6, 12, 0, 0, 0, 0, time.UTC),
		BloodType:   "O+",
		CreatedAt:   now,
	}); err != nil {
		return demoStores{}, err
	}

	if err := s.emergency.Save(ctx, emergencyinfo.Info{
		PatientID:          demoPatientID,
		ContactName:        "Emergency Contact",
		ContactPhone:       "+1 555 0100",
		CriticalAllergies:  emergencyinfo.EncodeList([]string{"Penicillin"}),
		ChronicConditions:  emergencyinfo.EncodeList([]string{"Hypertension"}),
		CurrentMedications: emergencyinfo.EncodeList([]string{"Lisinopril 10mg"}),
		UpdatedAt:          now,
	}); err != nil {
		return demoStores{}, err
	}

	recorded := now.AddDate(0, 0, -3)
	for _, rec := range []healthrecords.Record{
		{ID: "demo-rec-1", Title: "Blood pressure check", Category: healthrecords.CategoryCondition, Content: "135/85 mmHg, follow-up in 4 weeks", DateRecorded: &recorded, CreatedAt: now.AddDate(0, 0, -3)},
		{ID: "demo-rec-2", Title: "Flu vaccine", Category: healthrecords.CategoryVaccination, Content: "Seasonal influenza vaccine, left arm", CreatedAt: now.AddDate(0, -3, 0)},
	} {
		rec.PatientID = demoPatientID
		rec.IsActive = true
		if err := s.records.Save(ctx, rec); err != nil {
			return demoStores{}, err
		}
	}
	return s, nil
}
