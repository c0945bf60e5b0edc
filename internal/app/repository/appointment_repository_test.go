package repository

import (
	"testing"
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAppointmentTest(t *testing.T) (*gorm.DB, AppointmentRepository, *model.Donor, *model.Hospital) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	donor := createTestDonor(t, testDB, "donor@example.com", model.BloodGroupOPos, "Pune")
	hospital := createTestHospital(t, testDB, "hospital@example.com", "LIC-100")
	return testDB, NewAppointmentRepository(testDB), donor, hospital
}

func TestAppointmentRepository_CreateAndFind(t *testing.T) {
	testDB, repo, donor, hospital := setupAppointmentTest(t)
	defer db.CleanupTestDB(testDB)

	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	appointment := &model.Appointment{DonorID: donor.ID, HospitalID: hospital.ID, ScheduledAt: at, Status: model.AppointmentStatusPending}
	require.NoError(t, repo.Create(appointment))
	assert.NotZero(t, appointment.ID)

	found, err := repo.FindByID(appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, found.Status)
	require.NotNil(t, found.Donor)
	require.NotNil(t, found.Donor.User)
	assert.Equal(t, "donor@example.com", found.Donor.User.Email)
	require.NotNil(t, found.Hospital)
	assert.Equal(t, "LIC-100", found.Hospital.LicenseNumber)
	assert.Nil(t, found.Donation)
	assert.True(t, found.ScheduledAt.Equal(at))
}

func TestAppointmentRepository_TransitionStatus(t *testing.T) {
	testDB, repo, donor, hospital := setupAppointmentTest(t)
	defer db.CleanupTestDB(testDB)

	appointment := createTestAppointment(t, testDB, donor.ID, hospital.ID, time.Now().Add(24*time.Hour), model.AppointmentStatusPending)
	confirmedAt := time.Now().UTC()

	ok, err := repo.TransitionStatus(appointment.ID, model.AppointmentStatusPending, model.AppointmentStatusConfirmed,
		map[string]interface{}{"confirmed_at": confirmedAt})
	require.NoError(t, err)
	assert.True(t, ok)

	// the row is no longer pending
	ok, err = repo.TransitionStatus(appointment.ID, model.AppointmentStatusPending, model.AppointmentStatusCancelled, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.FindByID(appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, found.Status)
	assert.NotNil(t, found.ConfirmedAt)
}

func TestAppointmentRepository_FindByIDForUpdateInTx(t *testing.T) {
	testDB, repo, donor, hospital := setupAppointmentTest(t)
	defer db.CleanupTestDB(testDB)

	appointment := createTestAppointment(t, testDB, donor.ID, hospital.ID, time.Now().Add(time.Hour), model.AppointmentStatusConfirmed)

	err := testDB.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.WithTx(tx).FindByIDForUpdate(appointment.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, model.AppointmentStatusConfirmed, locked.Status)
		return nil
	})
	require.NoError(t, err)
}

func TestAppointmentRepository_List(t *testing.T) {
	testDB, repo, donor, hospital := setupAppointmentTest(t)
	defer db.CleanupTestDB(testDB)

	other := createTestDonor(t, testDB, "other@example.com", model.BloodGroupANeg, "Pune")
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	createTestAppointment(t, testDB, donor.ID, hospital.ID, base, model.AppointmentStatusPending)
	createTestAppointment(t, testDB, donor.ID, hospital.ID, base.Add(48*time.Hour), model.AppointmentStatusCompleted)
	createTestAppointment(t, testDB, other.ID, hospital.ID, base.Add(72*time.Hour), model.AppointmentStatusCancelled)

	tests := []struct {
		name   string
		filter AppointmentFilter
		want   int64
	}{
		{name: "Donor scope", filter: AppointmentFilter{DonorID: &donor.ID}, want: 2},
		{name: "Hospital scope", filter: AppointmentFilter{HospitalID: &hospital.ID}, want: 3},
		{name: "Status filter", filter: AppointmentFilter{HospitalID: &hospital.ID, Statuses: []model.AppointmentStatus{model.AppointmentStatusCancelled}}, want: 1},
		{name: "Upcoming", filter: AppointmentFilter{UpcomingAfter: timePtr(base.Add(time.Hour))}, want: 2},
		{name: "Date range", filter: AppointmentFilter{From: timePtr(base), To: timePtr(base.Add(24 * time.Hour))}, want: 1},
		{name: "Search donor name", filter: AppointmentFilter{Search: "other@"}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, total, err := repo.List(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
			assert.Len(t, list, int(tt.want))
		})
	}

	list, total, err := repo.List(AppointmentFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 1)
	// newest first
	assert.True(t, list[0].ScheduledAt.Equal(base.Add(48*time.Hour)))
}

func TestAppointmentRepository_Reminders(t *testing.T) {
	testDB, repo, donor, hospital := setupAppointmentTest(t)
	defer db.CleanupTestDB(testDB)

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	due := createTestAppointment(t, testDB, donor.ID, hospital.ID, day.Add(10*time.Hour), model.AppointmentStatusConfirmed)
	createTestAppointment(t, testDB, donor.ID, hospital.ID, day.Add(11*time.Hour), model.AppointmentStatusPending)
	createTestAppointment(t, testDB, donor.ID, hospital.ID, day.Add(30*time.Hour), model.AppointmentStatusConfirmed)

	list, err := repo.FindDueForReminder(day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, due.ID, list[0].ID)

	require.NoError(t, repo.MarkReminderSent(due.ID, day))

	list, err = repo.FindDueForReminder(day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
