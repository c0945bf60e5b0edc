package controller

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/repository"
	"github.com/ikkim/bloodlink-backend/internal/app/service"
	"github.com/ikkim/bloodlink-backend/internal/certificate"
	"github.com/ikkim/bloodlink-backend/internal/db"
	"github.com/ikkim/bloodlink-backend/internal/middleware"
	"github.com/ikkim/bloodlink-backend/internal/validation"
	"github.com/ikkim/bloodlink-backend/pkg/util"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "controller-test-secret"

type captureMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *captureMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+"|"+subject)
	return nil
}

// testEnv real services over an in-memory database.
type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	auth   *middleware.AuthMiddleware
	mailer *captureMailer

	otp          service.OTPService
	authSvc      service.AuthService
	notifier     service.NotificationService
	appointments service.AppointmentService
	donations    service.DonationService
	donors       service.DonorService
	hospitals    service.HospitalService
	requests     service.TransfusionService
	admin        service.AdminService
}

func setupControllerTest(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validation.Register())

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	userRepo := repository.NewUserRepository(testDB)
	donorRepo := repository.NewDonorRepository(testDB)
	hospitalRepo := repository.NewHospitalRepository(testDB)
	apptRepo := repository.NewAppointmentRepository(testDB)
	donationRepo := repository.NewDonationRepository(testDB)
	requestRepo := repository.NewTransfusionRequestRepository(testDB)

	m := &captureMailer{}
	env := &testEnv{
		db:     testDB,
		router: gin.New(),
		auth:   middleware.NewAuthMiddleware(testJWTSecret, nil),
		mailer: m,
	}
	env.otp = service.NewOTPService(testDB, repository.NewOTPRepository(testDB), m, 10*time.Minute)
	env.authSvc = service.NewAuthService(userRepo, env.otp, m, nil, nil, service.AuthConfig{
		JWTSecret:     testJWTSecret,
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: time.Hour,
	})
	env.notifier = service.NewNotificationService(repository.NewNotificationRepository(testDB), userRepo, m, nil)
	env.appointments = service.NewAppointmentService(testDB, apptRepo, donorRepo, hospitalRepo, donationRepo, env.notifier)
	env.donations = service.NewDonationService(donationRepo, donorRepo, hospitalRepo, certificate.NewRenderer("BloodLink"), "http://localhost:8080/api/v1/certificates")
	env.donors = service.NewDonorService(donorRepo, donationRepo)
	env.hospitals = service.NewHospitalService(hospitalRepo, donorRepo)
	env.requests = service.NewTransfusionService(requestRepo, hospitalRepo, userRepo, env.notifier)
	env.admin = service.NewAdminService(userRepo, donorRepo, hospitalRepo, requestRepo, apptRepo, donationRepo, env.notifier)
	return env
}

func (e *testEnv) createUser(t *testing.T, email string, role model.UserRole, name string) *model.User {
	t.Helper()
	hash, err := util.HashPassword("password123")
	require.NoError(t, err)
	user := &model.User{Email: email, PasswordHash: hash, Name: name, Role: role, IsVerified: true}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createDonor(t *testing.T, email string, group model.BloodGroup, last *time.Time) (*model.User, *model.Donor) {
	t.Helper()
	user := e.createUser(t, email, model.RoleDonor, "Donor "+email)
	donor := &model.Donor{
		UserID: user.ID, BloodGroup: group, Phone: "9800000000", City: "Pune",
		Age: 30, Gender: model.GenderFemale, IsAvailable: true, LastDonationDate: last,
	}
	require.NoError(t, e.db.Create(donor).Error)
	return user, donor
}

func (e *testEnv) createHospital(t *testing.T, email, license string) (*model.User, *model.Hospital) {
	t.Helper()
	user := e.createUser(t, email, model.RoleHospital, "Hospital "+license)
	now := time.Now()
	hospital := &model.Hospital{
		UserID: user.ID, LicenseNumber: license, Phone: "0200000000", Address: "1 Main Road",
		City: "Pune", HospitalType: model.HospitalTypePrivate, IsVerified: true, VerifiedAt: &now,
	}
	require.NoError(t, e.db.Create(hospital).Error)
	return user, hospital
}

func tokenFor(t *testing.T, user *model.User) string {
	t.Helper()
	tokens, err := util.GenerateTokenPair(user.ID, user.Email, string(user.Role), testJWTSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	return tokens.AccessToken
}

// do performs a request; body is JSON encoded when not nil.
func do(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	code, _ := decode(t, w)["error"].(string)
	return code
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, w.Code, w.Body.String())
}
