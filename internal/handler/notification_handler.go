package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	appmw "github.com/siberfx/wirechat/internal/middleware"
	"github.com/siberfx/wirechat/internal/model"
	"github.com/siberfx/wirechat/internal/service"
)

type NotificationHandler struct {
	svc service.NotificationService
}

func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

type NotificationListResponse struct {
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int64                `json:"unreadCount"`
}

func (h *NotificationHandler) List(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	unreadOnly := c.QueryParam("unread") == "true"
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	list, cnt, err := h.svc.List(c.Request().Context(), actor, unreadOnly, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, NotificationListResponse{Notifications: list, UnreadCount: cnt})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	if err := h.svc.MarkAllRead(c.Request().Context(), actor); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *NotificationHandler) MarkByConversation(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	convID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	if err := h.svc.MarkByConversation(c.Request().Context(), actor, convID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
