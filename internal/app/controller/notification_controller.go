package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ikkim/bloodlink-backend/internal/app/model"
	"github.com/ikkim/bloodlink-backend/internal/app/service"
	apperrors "github.com/ikkim/bloodlink-backend/internal/errors"
	"github.com/ikkim/bloodlink-backend/internal/middleware"
	ws "github.com/ikkim/bloodlink-backend/internal/websocket"
)

// NotificationController in-app notifications and the realtime channel
type NotificationController struct {
	service  service.NotificationService
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewNotificationController hub may be nil, which disables the websocket endpoint.
func NewNotificationController(service service.NotificationService, hub *ws.Hub, allowedOrigins []string) *NotificationController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &NotificationController{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser clients send no Origin
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

type BroadcastRequest struct {
	Role    string `json:"role" binding:"required,oneof=donor hospital admin"`
	Title   string `json:"title" binding:"required,max=200"`
	Message string `json:"message" binding:"required,max=2000"`
	Type    string `json:"type" binding:"omitempty,oneof=info success warning error"`
}

func parseBoolQuery(c *gin.Context, key string) *bool {
	switch c.Query(key) {
	case "true":
		t := true
		return &t
	case "false":
		f := false
		return &f
	}
	return nil
}

// GetNotifications GET /api/v1/notifications?page=&page_size=&type=&is_read=
func (c *NotificationController) GetNotifications(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		apperrors.Unauthorized(ctx, "")
		return
	}

	page := queryInt(ctx, "page", 1)
	pageSize := queryInt(ctx, "page_size", 20)

	var notifType *model.NotificationType
	if typeStr := ctx.Query("type"); typeStr != "" {
		t := model.NotificationType(typeStr)
		notifType = &t
	}

	notifications, total, unreadCount, err := c.service.GetNotifications(
		userID,
		notifType,
		parseBoolQuery(ctx, "is_read"),
		page,
		pageSize,
	)
	if err != nil {
		respondServiceError(ctx, err, "notification")
		return
	}

	body := paged(notifications, total, page, pageSize)
	body["unread_count"] = unreadCount
	ctx.JSON(http.StatusOK, body)
}

// GetUnreadCount GET /api/v1/notifications/unread-count
func (c *NotificationController) GetUnreadCount(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		apperrors.Unauthorized(ctx, "")
		return
	}

	count, err := c.service.GetUnreadCount(userID)
	if err != nil {
		respondServiceError(ctx, err, "notification")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"unread_count": count,
	})
}

// MarkAsRead PATCH /api/v1/notifications/:id/read
func (c *NotificationController) MarkAsRead(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		apperrors.Unauthorized(ctx, "")
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	notification, err := c.service.MarkAsRead(id, userID)
	if err != nil {
		respondServiceError(ctx, err, "notification")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"notification": notification,
	})
}

// MarkAllAsRead PATCH /api/v1/notifications/read-all
func (c *NotificationController) MarkAllAsRead(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		apperrors.Unauthorized(ctx, "")
		return
	}

	updated, err := c.service.MarkAllAsRead(userID)
	if err != nil {
		respondServiceError(ctx, err, "notification")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "All notifications marked as read",
		"updated": updated,
	})
}

// DeleteNotification DELETE /api/v1/notifications/:id
func (c *NotificationController) DeleteNotification(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		apperrors.Unauthorized(ctx, "")
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.service.DeleteNotification(id, userID); err != nil {
		respondServiceError(ctx, err, "notification")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Notification deleted",
	})
}

// GetNotificationSettings GET /api/v1/notifications/settings
func (c *NotificationController) GetNotificationSettings(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		apperrors.Unauthorized(ctx, "")
		return
	}

	settings, err := c.service.GetNotificationSettings(userID)
	if err != nil {
		respondServiceError(ctx, err, "notification")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"settings": settings,
	})
}

// UpdateNotificationSettings PUT /api/v1/notifications/settings
func (c *NotificationController) UpdateNotificationSettings(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		apperrors.Unauthorized(ctx, "")
		return
	}

	var req service.UpdateNotificationSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	settings, err := c.service.UpdateNotificationSettings(userID, &req)
	if err != nil {
		respondServiceError(ctx, err, "notification")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"settings": settings,
	})
}

// Broadcast notifies every user of a role
// POST /api/v1/admin/notifications/broadcast
func (c *NotificationController) Broadcast(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req BroadcastRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}
	kind := model.NotificationType(req.Type)
	if kind == "" {
		kind = model.NotificationTypeInfo
	}

	sent, err := c.service.Broadcast(actor, model.UserRole(req.Role), req.Title, req.Message, kind)
	if err != nil {
		respondServiceError(ctx, err, "notification")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":    "Broadcast sent",
		"recipients": sent,
	})
}

// WebSocketHandler upgrades to the realtime notification stream.
// The token comes in the query string and must not be logged.
// GET /api/v1/notifications/ws?token=
func (c *NotificationController) WebSocketHandler(ctx *gin.Context) {
	log := middleware.GetLoggerFromContext(ctx)

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		apperrors.Unauthorized(ctx, "")
		return
	}
	if c.hub == nil {
		apperrors.RespondWithError(ctx, http.StatusServiceUnavailable, apperrors.InternalConfigError, "Realtime notifications are disabled")
		return
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := ws.NewClient(c.hub, conn, userID)
	c.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("WebSocket connection established", map[string]interface{}{
		"user_id": userID,
	})
}
