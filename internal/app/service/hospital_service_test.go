package service

import (
	"testing"
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupHospitalServiceTest(t *testing.T) (*hospitalService, *gorm.DB) {
	testDB := setupServiceDB(t)
	svc := NewHospitalService(
		repository.NewHospitalRepository(testDB),
		repository.NewDonorRepository(testDB),
	).(*hospitalService)
	svc.now = fixedClock(time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC))
	return svc, testDB
}

func TestHospitalService_CreateProfile(t *testing.T) {
	svc, testDB := setupHospitalServiceTest(t)
	user := createUser(t, testDB, "city@example.com", model.RoleHospital, "City Hospital")
	actor := Actor{UserID: user.ID, Role: model.RoleHospital}

	_, err := svc.CreateProfile(actor, HospitalProfileInput{LicenseNumber: "LIC-9", Phone: "1", City: "Pune"})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = svc.CreateProfile(actor, HospitalProfileInput{LicenseNumber: "LIC-9", Phone: "1", Address: "Road", City: "Pune", HospitalType: "clinic"})
	assert.ErrorIs(t, err, ErrInvalidHospitalType)

	hospital, err := svc.CreateProfile(actor, HospitalProfileInput{LicenseNumber: " LIC-9 ", Phone: "1", Address: "Road", City: "Pune"})
	require.NoError(t, err)
	assert.Equal(t, "LIC-9", hospital.LicenseNumber)
	assert.Equal(t, model.HospitalTypePrivate, hospital.HospitalType)
	assert.False(t, hospital.IsVerified)

	_, err = svc.CreateProfile(actor, HospitalProfileInput{LicenseNumber: "LIC-10", Phone: "1", Address: "Road", City: "Pune"})
	assert.ErrorIs(t, err, ErrProfileExists)

	second := createUser(t, testDB, "second@example.com", model.RoleHospital, "Second")
	_, err = svc.CreateProfile(Actor{UserID: second.ID, Role: model.RoleHospital},
		HospitalProfileInput{LicenseNumber: "LIC-9", Phone: "1", Address: "Road", City: "Pune"})
	assert.ErrorIs(t, err, ErrLicenseExists)
}

func TestHospitalService_ListVerified(t *testing.T) {
	svc, testDB := setupHospitalServiceTest(t)
	verified := createHospital(t, testDB, "a@example.com", "LIC-A", true)
	createHospital(t, testDB, "b@example.com", "LIC-B", false)

	hospitals, total, err := svc.ListVerified("", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, hospitals, 1)
	assert.Equal(t, verified.ID, hospitals[0].ID)

	_, total, err = svc.ListVerified("Mumbai", 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestHospitalService_SuggestedDonors(t *testing.T) {
	svc, testDB := setupHospitalServiceTest(t)
	hospital := createHospital(t, testDB, "city@example.com", "LIC-1", true)

	universal := createDonor(t, testDB, "oneg@example.com", model.BloodGroupONeg)
	match := createDonor(t, testDB, "apos@example.com", model.BloodGroupAPos)
	createDonor(t, testDB, "bpos@example.com", model.BloodGroupBPos)

	recent := createDonor(t, testDB, "recent@example.com", model.BloodGroupAPos)
	require.NoError(t, testDB.Model(recent).Update("last_donation_date", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)).Error)

	away := createDonor(t, testDB, "away@example.com", model.BloodGroupAPos)
	require.NoError(t, testDB.Model(away).Update("is_available", false).Error)

	donors, err := svc.SuggestedDonors(hospitalActor(hospital), model.BloodGroupAPos, 10)
	require.NoError(t, err)

	var ids []uint
	for _, d := range donors {
		ids = append(ids, d.ID)
	}
	assert.ElementsMatch(t, []uint{universal.ID, match.ID}, ids)

	_, err = svc.SuggestedDonors(hospitalActor(hospital), "Z", 10)
	assert.ErrorIs(t, err, ErrInvalidBloodGroup)
}
