package controller

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/ikkim/bloodlink-backend/internal/app/model"
	apperrors "github.com/ikkim/bloodlink-backend/internal/errors"
	"github.com/ikkim/bloodlink-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupAdminControllerTest(t *testing.T) *testEnv {
	env := setupControllerTest(t)
	admin := NewAdminController(env.admin)
	requests := NewTransfusionController(env.requests)
	notifications := NewNotificationController(env.notifier, nil, nil)

	api := env.router.Group("/", env.auth.Authenticate())
	api.POST("/admin/hospitals/:id/verify", admin.VerifyHospital)
	api.GET("/admin/stats", admin.Stats)
	api.GET("/admin/export", admin.Export)
	api.POST("/requests", requests.CreateRequest)
	api.GET("/requests", requests.ListRequests)
	api.POST("/admin/requests/:id/approve", requests.ApproveRequest)
	api.POST("/admin/requests/:id/reject", requests.RejectRequest)
	api.POST("/admin/requests/:id/fulfill", requests.FulfillRequest)
	api.GET("/notifications", notifications.GetNotifications)
	api.PATCH("/notifications/read-all", notifications.MarkAllAsRead)
	api.POST("/admin/notifications/broadcast", notifications.Broadcast)
	api.GET("/notifications/ws", notifications.WebSocketHandler)
	return env
}

func TestAdminController_VerifyHospitalNotifies(t *testing.T) {
	env := setupAdminControllerTest(t)
	admin := env.createUser(t, "admin@example.com", model.RoleAdmin, "Admin")
	hospitalUser, hospital := env.createHospital(t, "h@example.com", "LIC-A")
	require.NoError(t, env.db.Model(hospital).Update("is_verified", false).Error)

	w := do(t, env.router, "POST", fmt.Sprintf("/admin/hospitals/%d/verify", hospital.ID), tokenFor(t, hospitalUser), nil)
	assertStatus(t, w, http.StatusForbidden)

	w = do(t, env.router, "POST", fmt.Sprintf("/admin/hospitals/%d/verify", hospital.ID), tokenFor(t, admin), nil)
	assertStatus(t, w, http.StatusOK)

	w = do(t, env.router, "POST", fmt.Sprintf("/admin/hospitals/%d/verify", hospital.ID), tokenFor(t, admin), nil)
	assertStatus(t, w, http.StatusConflict)

	w = do(t, env.router, "GET", "/notifications", tokenFor(t, hospitalUser), nil)
	assertStatus(t, w, http.StatusOK)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(1), body["unread_count"])

	w = do(t, env.router, "PATCH", "/notifications/read-all", tokenFor(t, hospitalUser), nil)
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, float64(1), decode(t, w)["updated"])
}

func TestTransfusionController_ReviewFlow(t *testing.T) {
	env := setupAdminControllerTest(t)
	admin := env.createUser(t, "admin@example.com", model.RoleAdmin, "Admin")
	hospitalUser, _ := env.createHospital(t, "h@example.com", "LIC-B")
	hospitalToken := tokenFor(t, hospitalUser)
	adminToken := tokenFor(t, admin)

	w := do(t, env.router, "POST", "/requests", hospitalToken, CreateTransfusionRequest{
		BloodGroup: "AB+", Quantity: 2, Urgency: "asap",
		RequiredBy: time.Now().AddDate(0, 0, 3).Format(dateLayout),
	})
	assertStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, decode(t, w)["fields"], "urgency")

	w = do(t, env.router, "POST", "/requests", hospitalToken, CreateTransfusionRequest{
		BloodGroup: "AB+", Quantity: 2, Urgency: "emergency",
		RequiredBy: time.Now().AddDate(0, 0, 3).Format(dateLayout), Reason: "surgery",
	})
	assertStatus(t, w, http.StatusCreated)
	requestID := idOf(t, decode(t, w), "request")

	// fulfil needs approval first
	w = do(t, env.router, "POST", fmt.Sprintf("/admin/requests/%d/fulfill", requestID), adminToken, nil)
	assertStatus(t, w, http.StatusConflict)
	assert.Equal(t, apperrors.RequestInvalidTransition, errorCodeOf(t, w))

	w = do(t, env.router, "POST", fmt.Sprintf("/admin/requests/%d/approve", requestID), hospitalToken, ReviewTransfusionRequest{})
	assertStatus(t, w, http.StatusForbidden)

	w = do(t, env.router, "POST", fmt.Sprintf("/admin/requests/%d/approve", requestID), adminToken, ReviewTransfusionRequest{Remarks: "stock available"})
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "approved", decode(t, w)["request"].(map[string]interface{})["status"])

	w = do(t, env.router, "POST", fmt.Sprintf("/admin/requests/%d/reject", requestID), adminToken, nil)
	assertStatus(t, w, http.StatusConflict)

	w = do(t, env.router, "POST", fmt.Sprintf("/admin/requests/%d/fulfill", requestID), adminToken, nil)
	assertStatus(t, w, http.StatusOK)

	w = do(t, env.router, "GET", "/requests?status=fulfilled", hospitalToken, nil)
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, float64(1), decode(t, w)["total"])
}

func TestAdminController_StatsAndExport(t *testing.T) {
	env := setupAdminControllerTest(t)
	admin := env.createUser(t, "admin@example.com", model.RoleAdmin, "Admin")
	env.createDonor(t, "d1@example.com", model.BloodGroupOPos, nil)
	env.createHospital(t, "h@example.com", "LIC-C")
	token := tokenFor(t, admin)

	w := do(t, env.router, "GET", "/admin/stats", token, nil)
	assertStatus(t, w, http.StatusOK)
	users := decode(t, w)["users"].(map[string]interface{})
	assert.Equal(t, float64(1), users["donor"])

	w = do(t, env.router, "GET", "/admin/export", token, nil)
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Donors")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestNotificationController_BroadcastAndWebsocketDisabled(t *testing.T) {
	env := setupAdminControllerTest(t)
	admin := env.createUser(t, "admin@example.com", model.RoleAdmin, "Admin")
	donorUser, _ := env.createDonor(t, "d1@example.com", model.BloodGroupOPos, nil)
	env.createDonor(t, "d2@example.com", model.BloodGroupANeg, nil)

	w := do(t, env.router, "POST", "/admin/notifications/broadcast", tokenFor(t, donorUser), BroadcastRequest{
		Role: "donor", Title: "Camp", Message: "Blood camp on Sunday",
	})
	assertStatus(t, w, http.StatusForbidden)

	w = do(t, env.router, "POST", "/admin/notifications/broadcast", tokenFor(t, admin), BroadcastRequest{
		Role: "donor", Title: "Camp", Message: "Blood camp on Sunday",
	})
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, float64(2), decode(t, w)["recipients"])

	w = do(t, env.router, "GET", "/notifications/ws", tokenFor(t, donorUser), nil)
	assertStatus(t, w, http.StatusServiceUnavailable)
}

type mockPresigner struct{ mock.Mock }

func (m *mockPresigner) PresignUpload(ctx context.Context, kind storage.UploadKind, userID uint, filename, contentType string, size int64) (*storage.PresignedURLResponse, error) {
	args := m.Called(kind, userID, filename, contentType, size)
	resp, _ := args.Get(0).(*storage.PresignedURLResponse)
	return resp, args.Error(1)
}

func TestUploadController_GeneratePresignedURL(t *testing.T) {
	env := setupControllerTest(t)
	presigner := &mockPresigner{}
	ctrl := NewUploadController(presigner)
	env.router.POST("/upload", env.auth.Authenticate(), ctrl.GeneratePresignedURL)

	donor := env.createUser(t, "d@example.com", model.RoleDonor, "D")
	hospital := env.createUser(t, "h@example.com", model.RoleHospital, "H")

	presigner.On("PresignUpload", storage.UploadDonorPhoto, donor.ID, "me.png", "image/png", int64(1024)).
		Return(&storage.PresignedURLResponse{UploadURL: "https://s3/put", FileURL: "https://cdn/me.png", Key: "donor-photos/1/x.png"}, nil)
	presigner.On("PresignUpload", storage.UploadHospitalDocument, hospital.ID, "lic.exe", "application/x-msdownload", int64(10)).
		Return(nil, fmt.Errorf("%w: application/x-msdownload", storage.ErrContentTypeDenied))

	w := do(t, env.router, "POST", "/upload", tokenFor(t, donor), GeneratePresignedURLRequest{
		Filename: "me.png", ContentType: "image/png", Size: 1024, Kind: "donor_photo",
	})
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "https://cdn/me.png", decode(t, w)["file_url"])

	// donors cannot upload hospital documents
	w = do(t, env.router, "POST", "/upload", tokenFor(t, donor), GeneratePresignedURLRequest{
		Filename: "lic.pdf", ContentType: "application/pdf", Size: 10, Kind: "hospital_document",
	})
	assertStatus(t, w, http.StatusForbidden)

	w = do(t, env.router, "POST", "/upload", tokenFor(t, hospital), GeneratePresignedURLRequest{
		Filename: "lic.exe", ContentType: "application/x-msdownload", Size: 10, Kind: "hospital_document",
	})
	assertStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, apperrors.UploadInvalidFileType, errorCodeOf(t, w))

	presigner.AssertExpectations(t)
}
