package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createTestDonor(t *testing.T, testDB *gorm.DB, email string, group model.BloodGroup, city string) *model.Donor {
	t.Helper()

	user := &model.User{Email: email, PasswordHash: "hash", Name: "Donor " + email, Role: model.RoleDonor, IsVerified: true}
	require.NoError(t, testDB.Create(user).Error)

	donor := &model.Donor{
		UserID:      user.ID,
		BloodGroup:  group,
		Phone:       "9876543210",
		City:        city,
		Age:         30,
		Gender:      model.GenderFemale,
		IsAvailable: true,
	}
	require.NoError(t, testDB.Omit("User").Create(donor).Error)
	donor.User = user
	return donor
}

func createTestHospital(t *testing.T, testDB *gorm.DB, email, license string) *model.Hospital {
	t.Helper()

	user := &model.User{Email: email, PasswordHash: "hash", Name: "Hospital " + license, Role: model.RoleHospital, IsVerified: true}
	require.NoError(t, testDB.Create(user).Error)

	hospital := &model.Hospital{
		UserID:        user.ID,
		LicenseNumber: license,
		Phone:         "0221234567",
		Address:       "1 Main Road",
		City:          "Pune",
		State:         "MH",
		Pincode:       "411001",
		HospitalType:  model.HospitalTypePrivate,
		IsVerified:    true,
	}
	require.NoError(t, testDB.Omit("User").Create(hospital).Error)
	hospital.User = user
	return hospital
}

func createTestAppointment(t *testing.T, testDB *gorm.DB, donorID, hospitalID uint, at time.Time, status model.AppointmentStatus) *model.Appointment {
	t.Helper()

	appointment := &model.Appointment{
		DonorID:     donorID,
		HospitalID:  hospitalID,
		ScheduledAt: at.UTC(),
		Status:      status,
		Notes:       fmt.Sprintf("fixture %s", status),
	}
	require.NoError(t, testDB.Omit("Donor", "Hospital", "Donation").Create(appointment).Error)
	return appointment
}
