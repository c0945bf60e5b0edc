package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bloodlink-backend/config"
	"github.com/ikkim/bloodlink-backend/internal/app/controller"
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/middleware"
)

// Controllers groups every HTTP handler set the router mounts.
type Controllers struct {
	Auth         *controller.AuthController
	Donor        *controller.DonorController
	Hospital     *controller.HospitalController
	Appointment  *controller.AppointmentController
	Donation     *controller.DonationController
	Transfusion  *controller.TransfusionController
	Notification *controller.NotificationController
	Admin        *controller.AdminController
	Upload       *controller.UploadController
}

type Router struct {
	controllers    Controllers
	authMiddleware *middleware.AuthMiddleware
	otpLimiter     *middleware.RateLimiter
	config         *config.Config
}

func NewRouter(
	controllers Controllers,
	authMiddleware *middleware.AuthMiddleware,
	otpLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *Router {
	return &Router{
		controllers:    controllers,
		authMiddleware: authMiddleware,
		otpLimiter:     otpLimiter,
		config:         cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "BloodLink API is running",
		})
	})

	ctrl := r.controllers
	authn := r.authMiddleware.Authenticate()
	role := r.authMiddleware.RequireRole
	limited := r.otpLimiter.Limit()

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			// endpoints that send email or check secrets are rate limited per IP
			auth.POST("/register", limited, ctrl.Auth.Register)
			auth.POST("/verify-email", limited, ctrl.Auth.VerifyEmail)
			auth.POST("/resend-otp", limited, ctrl.Auth.ResendOTP)
			auth.POST("/login", limited, ctrl.Auth.Login)
			auth.POST("/forgot-password", limited, ctrl.Auth.ForgotPassword)
			auth.POST("/reset-password", limited, ctrl.Auth.ResetPassword)
			auth.POST("/refresh", ctrl.Auth.RefreshToken)
			auth.POST("/logout", authn, ctrl.Auth.Logout)
			auth.GET("/me", authn, ctrl.Auth.GetMe)
			auth.PUT("/me", authn, ctrl.Auth.UpdateMe)
		}

		donor := v1.Group("/donor", authn, role(model.RoleDonor))
		{
			donor.POST("/profile", ctrl.Donor.CreateProfile)
			donor.GET("/profile", ctrl.Donor.GetProfile)
			donor.PUT("/profile", ctrl.Donor.UpdateProfile)
			donor.PATCH("/availability", ctrl.Donor.SetAvailability)
			donor.GET("/eligibility", ctrl.Donor.Eligibility)
		}
		v1.GET("/donors/:id", authn, role(model.RoleHospital, model.RoleAdmin), ctrl.Donor.GetDonor)

		hospital := v1.Group("/hospital", authn, role(model.RoleHospital))
		{
			hospital.POST("/profile", ctrl.Hospital.CreateProfile)
			hospital.GET("/profile", ctrl.Hospital.GetProfile)
			hospital.PUT("/profile", ctrl.Hospital.UpdateProfile)
			hospital.GET("/suggested-donors", ctrl.Hospital.SuggestedDonors)
		}

		hospitals := v1.Group("/hospitals")
		{
			hospitals.GET("", ctrl.Hospital.ListHospitals)
			hospitals.GET("/:id", ctrl.Hospital.GetHospital)
		}

		appointments := v1.Group("/appointments", authn)
		{
			appointments.POST("", role(model.RoleDonor), ctrl.Appointment.CreateAppointment)
			appointments.GET("", ctrl.Appointment.ListAppointments)
			appointments.GET("/:id", ctrl.Appointment.GetAppointment)
			appointments.POST("/:id/confirm", role(model.RoleHospital), ctrl.Appointment.ConfirmAppointment)
			appointments.POST("/:id/complete", role(model.RoleHospital), ctrl.Appointment.CompleteAppointment)
			appointments.POST("/:id/cancel", ctrl.Appointment.CancelAppointment)
		}

		donations := v1.Group("/donations", authn)
		{
			donations.GET("", ctrl.Donation.ListDonations)
			donations.GET("/:id", ctrl.Donation.GetDonation)
			donations.GET("/:id/certificate", ctrl.Donation.DownloadCertificate)
		}
		// public, printed as a QR code on certificates
		v1.GET("/certificates/:certificateId", ctrl.Donation.VerifyCertificate)

		requests := v1.Group("/requests", authn, role(model.RoleHospital, model.RoleAdmin))
		{
			requests.POST("", role(model.RoleHospital), ctrl.Transfusion.CreateRequest)
			requests.GET("", ctrl.Transfusion.ListRequests)
			requests.GET("/:id", ctrl.Transfusion.GetRequest)
		}

		notifications := v1.Group("/notifications", authn)
		{
			notifications.GET("", ctrl.Notification.GetNotifications)
			notifications.GET("/unread-count", ctrl.Notification.GetUnreadCount)
			notifications.PATCH("/read-all", ctrl.Notification.MarkAllAsRead)
			notifications.PATCH("/:id/read", ctrl.Notification.MarkAsRead)
			notifications.DELETE("/:id", ctrl.Notification.DeleteNotification)
			notifications.GET("/settings", ctrl.Notification.GetNotificationSettings)
			notifications.PUT("/settings", ctrl.Notification.UpdateNotificationSettings)
			// browsers pass the token as ?token= on the handshake
			notifications.GET("/ws", ctrl.Notification.WebSocketHandler)
		}

		admin := v1.Group("/admin", authn, role(model.RoleAdmin))
		{
			admin.GET("/stats", ctrl.Admin.Stats)
			admin.GET("/users", ctrl.Admin.ListUsers)
			admin.GET("/donors", ctrl.Admin.ListDonors)
			admin.GET("/hospitals", ctrl.Admin.ListHospitals)
			admin.POST("/hospitals/:id/verify", ctrl.Admin.VerifyHospital)
			admin.POST("/requests/:id/approve", ctrl.Transfusion.ApproveRequest)
			admin.POST("/requests/:id/reject", ctrl.Transfusion.RejectRequest)
			admin.POST("/requests/:id/fulfill", ctrl.Transfusion.FulfillRequest)
			admin.POST("/notifications/broadcast", ctrl.Notification.Broadcast)
			admin.GET("/export", ctrl.Admin.Export)
		}

		upload := v1.Group("/upload", authn, role(model.RoleDonor, model.RoleHospital))
		{
			upload.POST("/presigned-url", ctrl.Upload.GeneratePresignedURL)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Certificate-ID, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
