package service

import (
	"sync"
	"testing"
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/repository"
	"github.com/ikkim/bloodlink-backend/internal/db"
	"github.com/ikkim/bloodlink-backend/pkg/mailer"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- mocks ---

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(to, subject, htmlBody string) error {
	return m.Called(to, subject, htmlBody).Error(0)
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// recordingMailer keeps every message; err, when set, is returned from Send.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (m *recordingMailer) To(addr string) []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMail
	for _, s := range m.sent {
		if s.To == addr {
			out = append(out, s)
		}
	}
	return out
}

type fakePusher struct {
	mu     sync.Mutex
	pushed map[uint][]interface{}
	err    error
}

func (p *fakePusher) SendNotificationToUser(userID uint, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.pushed == nil {
		p.pushed = make(map[uint][]interface{})
	}
	p.pushed[userID] = append(p.pushed[userID], message)
	return nil
}

func (p *fakePusher) count(userID uint) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushed[userID])
}

// --- fixtures ---

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func createUser(t *testing.T, testDB *gorm.DB, email string, role model.UserRole, name string) *model.User {
	t.Helper()
	user := &model.User{Email: email, PasswordHash: "hash", Name: name, Role: role, IsVerified: true}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

func createDonor(t *testing.T, testDB *gorm.DB, email string, group model.BloodGroup) *model.Donor {
	t.Helper()
	user := createUser(t, testDB, email, model.RoleDonor, "Donor "+email)
	donor := &model.Donor{
		UserID:      user.ID,
		BloodGroup:  group,
		Phone:       "9876543210",
		City:        "Pune",
		Age:         30,
		Gender:      model.GenderMale,
		IsAvailable: true,
	}
	require.NoError(t, testDB.Omit("User").Create(donor).Error)
	donor.User = user
	return donor
}

func createHospital(t *testing.T, testDB *gorm.DB, email, license string, verified bool) *model.Hospital {
	t.Helper()
	user := createUser(t, testDB, email, model.RoleHospital, "Hospital "+license)
	hospital := &model.Hospital{
		UserID:        user.ID,
		LicenseNumber: license,
		Phone:         "0201234567",
		Address:       "1 Main Road",
		City:          "Pune",
		HospitalType:  model.HospitalTypePrivate,
	}
	require.NoError(t, testDB.Omit("User").Create(hospital).Error)
	if verified {
		require.NoError(t, testDB.Model(hospital).Update("is_verified", true).Error)
		hospital.IsVerified = true
	}
	hospital.User = user
	return hospital
}

func donorActor(d *model.Donor) Actor {
	return Actor{UserID: d.UserID, Role: model.RoleDonor}
}

func hospitalActor(h *model.Hospital) Actor {
	return Actor{UserID: h.UserID, Role: model.RoleHospital}
}

func adminActor(u *model.User) Actor {
	return Actor{UserID: u.ID, Role: model.RoleAdmin}
}

func newTestNotifier(testDB *gorm.DB, m *recordingMailer, p *fakePusher) NotificationService {
	var pusher Pusher
	if p != nil {
		pusher = p
	}
	var mail mailer.Mailer
	if m != nil {
		mail = m
	}
	return NewNotificationService(
		repository.NewNotificationRepository(testDB),
		repository.NewUserRepository(testDB),
		mail,
		pusher,
	)
}

func notificationTitles(t *testing.T, testDB *gorm.DB, userID uint) []string {
	t.Helper()
	var titles []string
	require.NoError(t, testDB.Model(&model.Notification{}).
		Where("user_id = ?", userID).
		Order("id ASC").
		Pluck("title", &titles).Error)
	return titles
}
