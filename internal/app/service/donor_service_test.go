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

var donorT0 = time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

func setupDonorServiceTest(t *testing.T) (*donorService, *gorm.DB) {
	testDB := setupServiceDB(t)
	svc := NewDonorService(
		repository.NewDonorRepository(testDB),
		repository.NewDonationRepository(testDB),
	).(*donorService)
	svc.now = fixedClock(donorT0)
	return svc, testDB
}

func TestDonorService_CreateProfile(t *testing.T) {
	svc, testDB := setupDonorServiceTest(t)
	user := createUser(t, testDB, "donor@example.com", model.RoleDonor, "Asha")
	actor := Actor{UserID: user.ID, Role: model.RoleDonor}

	dob := time.Date(1996, 9, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		input   DonorProfileInput
		wantErr error
	}{
		{name: "Missing phone", input: DonorProfileInput{BloodGroup: model.BloodGroupOPos, City: "Pune", Age: 30}, wantErr: ErrMissingField},
		{name: "Bad blood group", input: DonorProfileInput{BloodGroup: "C+", Phone: "1", City: "Pune", Age: 30}, wantErr: ErrInvalidBloodGroup},
		{name: "Too young", input: DonorProfileInput{BloodGroup: model.BloodGroupOPos, Phone: "1", City: "Pune", Age: 17}, wantErr: ErrInvalidAge},
		{name: "Bad gender", input: DonorProfileInput{BloodGroup: model.BloodGroupOPos, Phone: "1", City: "Pune", Age: 30, Gender: "x"}, wantErr: ErrInvalidGender},
		{
			name:    "Future last donation",
			input:   DonorProfileInput{BloodGroup: model.BloodGroupOPos, Phone: "1", City: "Pune", Age: 30, LastDonationDate: timeAt(donorT0.AddDate(0, 0, 1))},
			wantErr: ErrInvalidDate,
		},
		{
			name:  "Valid with date of birth",
			input: DonorProfileInput{BloodGroup: model.BloodGroupAPos, Phone: " 9876543210 ", City: " Pune ", DateOfBirth: &dob, Gender: model.GenderFemale},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			donor, err := svc.CreateProfile(actor, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, donor)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 29, donor.Age)
			assert.Equal(t, "9876543210", donor.Phone)
			assert.Equal(t, "Pune", donor.City)
			assert.True(t, donor.IsAvailable)
			require.NotNil(t, donor.User)
			assert.Equal(t, "Asha", donor.User.Name)
		})
	}

	_, err := svc.CreateProfile(actor, DonorProfileInput{BloodGroup: model.BloodGroupOPos, Phone: "1", City: "Pune", Age: 30})
	assert.ErrorIs(t, err, ErrProfileExists)

	_, err = svc.CreateProfile(Actor{UserID: user.ID, Role: model.RoleHospital}, DonorProfileInput{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func timeAt(t time.Time) *time.Time { return &t }

func TestDonorService_UpdateKeepsUnsetFields(t *testing.T) {
	svc, testDB := setupDonorServiceTest(t)
	donor := createDonor(t, testDB, "donor@example.com", model.BloodGroupOPos)

	updated, err := svc.UpdateProfile(donorActor(donor), DonorProfileInput{City: "Mumbai"})
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", updated.City)
	assert.Equal(t, model.BloodGroupOPos, updated.BloodGroup)
	assert.Equal(t, 30, updated.Age)

	_, err = svc.UpdateProfile(donorActor(donor), DonorProfileInput{Age: 120})
	assert.ErrorIs(t, err, ErrInvalidAge)
}

func TestDonorService_Availability(t *testing.T) {
	svc, testDB := setupDonorServiceTest(t)
	donor := createDonor(t, testDB, "donor@example.com", model.BloodGroupOPos)

	toggled, err := svc.ToggleAvailability(donorActor(donor))
	require.NoError(t, err)
	assert.False(t, toggled.IsAvailable)

	set, err := svc.SetAvailability(donorActor(donor), true)
	require.NoError(t, err)
	assert.True(t, set.IsAvailable)

	var stored model.Donor
	require.NoError(t, testDB.First(&stored, donor.ID).Error)
	assert.True(t, stored.IsAvailable)
}

func TestDonorService_Eligibility(t *testing.T) {
	svc, testDB := setupDonorServiceTest(t)
	donor := createDonor(t, testDB, "donor@example.com", model.BloodGroupOPos)

	eligibility, err := svc.Eligibility(donorActor(donor))
	require.NoError(t, err)
	assert.True(t, eligibility.Eligible)
	assert.Zero(t, eligibility.DaysRemaining)
	assert.Nil(t, eligibility.NextEligibleDate)

	last := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, testDB.Model(donor).Update("last_donation_date", last).Error)

	eligibility, err = svc.Eligibility(donorActor(donor))
	require.NoError(t, err)
	assert.False(t, eligibility.Eligible)
	assert.Equal(t, 16, eligibility.DaysRemaining)
	require.NotNil(t, eligibility.NextEligibleDate)
	assert.Equal(t, "2026-08-26", eligibility.NextEligibleDate.Format("2006-01-02"))
}

func TestDonorService_GetByID(t *testing.T) {
	svc, testDB := setupDonorServiceTest(t)
	donor := createDonor(t, testDB, "donor@example.com", model.BloodGroupOPos)
	other := createDonor(t, testDB, "other@example.com", model.BloodGroupAPos)
	hospital := createHospital(t, testDB, "city@example.com", "LIC-1", true)

	_, err := svc.GetByID(donorActor(other), donor.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.GetByID(hospitalActor(hospital), donor.ID)
	require.NoError(t, err)
	assert.Equal(t, donor.ID, got.ID)

	_, err = svc.GetByID(hospitalActor(hospital), 999)
	assert.ErrorIs(t, err, ErrDonorNotFound)
}
