package repository

import (
	"testing"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) (*gorm.DB, UserRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	repo := NewUserRepository(testDB)
	return testDB, repo
}

func TestUserRepository_Create(t *testing.T) {
	testDB, repo := setupUserTest(t)
	defer db.CleanupTestDB(testDB)

	tests := []struct {
		name    string
		user    *model.User
		wantErr bool
	}{
		{
			name: "Valid user",
			user: &model.User{
				Email:        "test@example.com",
				PasswordHash: "hashedpassword",
				Name:         "Test User",
				Role:         model.RoleDonor,
			},
			wantErr: false,
		},
		{
			name: "Duplicate email",
			user: &model.User{
				Email:        "test@example.com",
				PasswordHash: "hashedpassword",
				Name:         "Another User",
				Role:         model.RoleHospital,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(tt.user)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.NotZero(t, tt.user.ID)
			}
		})
	}
}

func TestUserRepository_FindByID(t *testing.T) {
	testDB, repo := setupUserTest(t)
	defer db.CleanupTestDB(testDB)

	user := &model.User{
		Email:        "test@example.com",
		PasswordHash: "hashedpassword",
		Name:         "Test User",
		Role:         model.RoleDonor,
	}
	require.NoError(t, repo.Create(user))

	tests := []struct {
		name    string
		id      uint
		wantErr bool
	}{
		{name: "Existing user", id: user.ID},
		{name: "Non-existing user", id: 9999, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := repo.FindByID(tt.id)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, found)
			} else {
				require.NoError(t, err)
				require.NotNil(t, found)
				assert.Equal(t, user.Email, found.Email)
				assert.False(t, found.IsVerified)
			}
		})
	}
}

func TestUserRepository_FindByEmailWithProfile(t *testing.T) {
	testDB, repo := setupUserTest(t)
	defer db.CleanupTestDB(testDB)

	donor := createTestDonor(t, testDB, "donor@example.com", model.BloodGroupOPos, "Pune")

	found, err := repo.FindByEmail("donor@example.com")
	require.NoError(t, err)
	require.NotNil(t, found.Donor)
	assert.Equal(t, donor.ID, found.Donor.ID)
	assert.Nil(t, found.Hospital)
	assert.True(t, found.HasProfile())

	_, err = repo.FindByEmail("missing@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_MarkVerifiedAndPassword(t *testing.T) {
	testDB, repo := setupUserTest(t)
	defer db.CleanupTestDB(testDB)

	user := &model.User{Email: "a@example.com", PasswordHash: "old", Name: "A", Role: model.RoleDonor}
	require.NoError(t, repo.Create(user))

	require.NoError(t, repo.MarkVerified(user.ID))
	require.NoError(t, repo.UpdatePassword(user.ID, "new"))

	found, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.True(t, found.IsVerified)
	assert.Equal(t, "new", found.PasswordHash)
}

func TestUserRepository_ListAndCount(t *testing.T) {
	testDB, repo := setupUserTest(t)
	defer db.CleanupTestDB(testDB)

	createTestDonor(t, testDB, "d1@example.com", model.BloodGroupAPos, "Pune")
	createTestDonor(t, testDB, "d2@example.com", model.BloodGroupBPos, "Mumbai")
	createTestHospital(t, testDB, "h1@example.com", "LIC-1")

	role := model.RoleDonor
	users, total, err := repo.List(&role, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)

	users, total, err = repo.List(nil, "LIC-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, model.RoleHospital, users[0].Role)

	ids, err := repo.ListIDsByRole(model.RoleHospital)
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	counts, err := repo.CountByRole()
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[model.RoleDonor])
	assert.Equal(t, int64(1), counts[model.RoleHospital])
}
