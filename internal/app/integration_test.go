package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bloodlink-backend/config"
	"github.com/ikkim/bloodlink-backend/internal/app/controller"
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/repository"
	"github.com/ikkim/bloodlink-backend/internal/app/service"
	"github.com/ikkim/bloodlink-backend/internal/certificate"
	"github.com/ikkim/bloodlink-backend/internal/db"
	"github.com/ikkim/bloodlink-backend/internal/middleware"
	"github.com/ikkim/bloodlink-backend/internal/router"
	"github.com/ikkim/bloodlink-backend/internal/validation"
	"github.com/ikkim/bloodlink-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const integrationSecret = "integration-secret"

type memoryMailer struct {
	mu   sync.Mutex
	sent map[string]int
}

func (m *memoryMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[to]++
	return nil
}

func (m *memoryMailer) count(to string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[to]
}

type TestServer struct {
	Router http.Handler
	DB     *gorm.DB
	OTP    service.OTPService
	Mailer *memoryMailer
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)
	require.NoError(t, validation.Register())

	// Setup database
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	// Setup repositories
	userRepo := repository.NewUserRepository(testDB)
	donorRepo := repository.NewDonorRepository(testDB)
	hospitalRepo := repository.NewHospitalRepository(testDB)
	appointmentRepo := repository.NewAppointmentRepository(testDB)
	donationRepo := repository.NewDonationRepository(testDB)
	requestRepo := repository.NewTransfusionRequestRepository(testDB)

	// Setup services
	m := &memoryMailer{sent: make(map[string]int)}
	otpService := service.NewOTPService(testDB, repository.NewOTPRepository(testDB), m, 10*time.Minute)
	authService := service.NewAuthService(userRepo, otpService, m, nil, nil, service.AuthConfig{
		JWTSecret:     integrationSecret,
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
	})
	notificationService := service.NewNotificationService(repository.NewNotificationRepository(testDB), userRepo, m, nil)
	appointmentService := service.NewAppointmentService(testDB, appointmentRepo, donorRepo, hospitalRepo, donationRepo, notificationService)
	donationService := service.NewDonationService(donationRepo, donorRepo, hospitalRepo,
		certificate.NewRenderer("BloodLink"), "http://localhost:8080/api/v1/certificates")

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	controllers := router.Controllers{
		Auth:         controller.NewAuthController(authService),
		Donor:        controller.NewDonorController(service.NewDonorService(donorRepo, donationRepo)),
		Hospital:     controller.NewHospitalController(service.NewHospitalService(hospitalRepo, donorRepo)),
		Appointment:  controller.NewAppointmentController(appointmentService),
		Donation:     controller.NewDonationController(donationService),
		Transfusion:  controller.NewTransfusionController(service.NewTransfusionService(requestRepo, hospitalRepo, userRepo, notificationService)),
		Notification: controller.NewNotificationController(notificationService, nil, cfg.CORS.AllowedOrigins),
		Admin: controller.NewAdminController(service.NewAdminService(userRepo, donorRepo, hospitalRepo, requestRepo,
			appointmentRepo, donationRepo, notificationService)),
		Upload: controller.NewUploadController(nil),
	}

	// Setup router
	r := router.NewRouter(
		controllers,
		middleware.NewAuthMiddleware(integrationSecret, nil),
		middleware.NewRateLimiter(1000, 1000),
		cfg,
	)

	return &TestServer{
		Router: r.Setup(),
		DB:     testDB,
		OTP:    otpService,
		Mailer: m,
	}
}

func (ts *TestServer) call(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func (ts *TestServer) login(t *testing.T, email, password string) string {
	t.Helper()
	w, resp := ts.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tokens := resp["tokens"].(map[string]interface{})
	return tokens["access_token"].(string)
}

func TestCompleteDonationJourney(t *testing.T) {
	ts := setupIntegrationTest(t)

	// 1. Register a donor
	t.Log("Step 1: Register donor")
	w, _ := ts.call(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Asha Patil",
		"email":    "asha@example.com",
		"password": "password123",
		"role":     "donor",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1, ts.Mailer.count("asha@example.com"))

	// 2. Login is refused until the email is verified
	t.Log("Step 2: Verify email")
	w, _ = ts.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "asha@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	code, err := ts.OTP.Issue("asha@example.com", model.OTPPurposeEmailVerification)
	require.NoError(t, err)
	w, _ = ts.call(t, http.MethodPost, "/api/v1/auth/verify-email", "", map[string]string{
		"email": "asha@example.com",
		"code":  code,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	donorToken := ts.login(t, "asha@example.com", "password123")

	// 3. Complete the donor profile
	t.Log("Step 3: Create donor profile")
	w, _ = ts.call(t, http.MethodPost, "/api/v1/donor/profile", donorToken, map[string]interface{}{
		"blood_group": "O-",
		"phone":       "9876543210",
		"city":        "Pune",
		"age":         29,
		"gender":      "female",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// A verified hospital, inserted directly for test convenience
	hash, err := util.HashPassword("hospital123")
	require.NoError(t, err)
	hospitalUser := &model.User{Email: "desk@city.example", PasswordHash: hash, Name: "City Hospital", Role: model.RoleHospital, IsVerified: true}
	require.NoError(t, ts.DB.Create(hospitalUser).Error)
	verifiedAt := time.Now()
	hospital := &model.Hospital{
		UserID: hospitalUser.ID, LicenseNumber: "MH-001", Phone: "0201234567", Address: "1 MG Road",
		City: "Pune", HospitalType: model.HospitalTypeGovernment, IsVerified: true, VerifiedAt: &verifiedAt,
	}
	require.NoError(t, ts.DB.Omit("User").Create(hospital).Error)
	hospitalToken := ts.login(t, "desk@city.example", "hospital123")

	// 4. Book an appointment
	t.Log("Step 4: Book appointment")
	w, resp := ts.call(t, http.MethodPost, "/api/v1/appointments", donorToken, map[string]interface{}{
		"hospital_id":  hospital.ID,
		"scheduled_at": time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	appointment := resp["appointment"].(map[string]interface{})
	assert.Equal(t, "pending", appointment["status"])
	appointmentPath := "/api/v1/appointments/" + jsonID(appointment["id"])

	// 5. Hospital confirms, then records the donation
	t.Log("Step 5: Confirm and complete")
	w, _ = ts.call(t, http.MethodPost, appointmentPath+"/confirm", hospitalToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = ts.call(t, http.MethodPost, appointmentPath+"/complete", hospitalToken, map[string]interface{}{
		"quantity": 1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	donation := resp["donation"].(map[string]interface{})
	assert.Equal(t, "O-", donation["blood_group"])

	// completing twice is an invalid transition
	w, _ = ts.call(t, http.MethodPost, appointmentPath+"/complete", hospitalToken, map[string]interface{}{
		"quantity": 1,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 6. The donor is now inside the waiting period
	t.Log("Step 6: Check eligibility")
	w, resp = ts.call(t, http.MethodGet, "/api/v1/donor/eligibility", donorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["eligible"])
	assert.EqualValues(t, 1, resp["total_donations"])

	w, _ = ts.call(t, http.MethodPost, "/api/v1/appointments", donorToken, map[string]interface{}{
		"hospital_id":  hospital.ID,
		"scheduled_at": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 7. Download the certificate and verify it publicly
	t.Log("Step 7: Certificate")
	donationPath := "/api/v1/donations/" + jsonID(donation["id"])
	w, _ = ts.call(t, http.MethodGet, donationPath+"/certificate", donorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	certificateID := w.Header().Get("X-Certificate-ID")
	require.NotEmpty(t, certificateID)

	w, resp = ts.call(t, http.MethodGet, "/api/v1/certificates/"+certificateID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["valid"])
	cert := resp["certificate"].(map[string]interface{})
	assert.Equal(t, "City Hospital", cert["hospital_name"])

	// 8. The donor was notified about each step
	t.Log("Step 8: Notifications")
	w, resp = ts.call(t, http.MethodGet, "/api/v1/notifications/unread-count", donorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.GreaterOrEqual(t, resp["unread_count"].(float64), float64(2))
}

func TestRoleSeparation(t *testing.T) {
	ts := setupIntegrationTest(t)

	hash, err := util.HashPassword("password123")
	require.NoError(t, err)
	donor := &model.User{Email: "d@example.com", PasswordHash: hash, Name: "Donor", Role: model.RoleDonor, IsVerified: true}
	require.NoError(t, ts.DB.Create(donor).Error)
	token := ts.login(t, "d@example.com", "password123")

	w, _ := ts.call(t, http.MethodGet, "/api/v1/admin/stats", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ts.call(t, http.MethodGet, "/api/v1/requests", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ts.call(t, http.MethodGet, "/api/v1/admin/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func jsonID(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}
