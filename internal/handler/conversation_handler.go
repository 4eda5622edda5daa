package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	appmw "github.com/siberfx/wirechat/internal/middleware"
	"github.com/siberfx/wirechat/internal/model"
	"github.com/siberfx/wirechat/internal/service"
)

type ConversationHandler struct {
	svc    service.ConversationService
	msgSvc service.MessageService
}

func NewConversationHandler(svc service.ConversationService, msgSvc service.MessageService) *ConversationHandler {
	return &ConversationHandler{svc: svc, msgSvc: msgSvc}
}

type ActorRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (a ActorRef) actor() model.Actor {
	kind := a.Kind
	if kind == "" {
		kind = model.ActorKindUser
	}
	return model.Actor{Kind: kind, ID: a.ID}
}

type CreatePrivateRequest struct {
	Other ActorRef `json:"other"`
	Body  string   `json:"body"`
}

type CreateGroupRequest struct {
	Name    string     `json:"name"`
	Members []ActorRef `json:"members"`
}

type AddParticipantRequest struct {
	Member ActorRef `json:"member"`
}

type ConversationResponse struct {
	ConversationID uint64                 `json:"conversationId"`
	Type           model.ConversationType `json:"type"`
	Name           string                 `json:"name,omitempty"`
	Participants   []model.Actor          `json:"participants"`
	UpdatedAt      string                 `json:"updatedAt"`
}

func toConversationResponse(cv *model.Conversation) ConversationResponse {
	parts := make([]model.Actor, 0, len(cv.Participations))
	for i := range cv.Participations {
		parts = append(parts, cv.Participations[i].Actor())
	}
	return ConversationResponse{
		ConversationID: cv.ID,
		Type:           cv.Type,
		Name:           cv.Name,
		Participants:   parts,
		UpdatedAt:      cv.UpdatedAt.Format(time.RFC3339),
	}
}

// CreatePrivate finds or creates the private conversation with the
// other actor and optionally delivers a first message in the same call.
func (h *ConversationHandler) CreatePrivate(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	var req CreatePrivateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if req.Other.ID == "" {
		return respondError(c, service.ErrValidation)
	}
	cv, err := h.svc.CreatePrivateWith(c.Request().Context(), actor, req.Other.actor())
	if err != nil {
		return respondError(c, err)
	}
	if req.Body != "" {
		if _, err := h.msgSvc.Send(c.Request().Context(), actor, cv.ID, service.SendInput{Body: req.Body}); err != nil {
			return respondError(c, err)
		}
	}
	return c.JSON(http.StatusOK, toConversationResponse(cv))
}

func (h *ConversationHandler) CreateGroup(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	var req CreateGroupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	members := make([]model.Actor, 0, len(req.Members))
	for _, m := range req.Members {
		members = append(members, m.actor())
	}
	cv, err := h.svc.CreateGroup(c.Request().Context(), actor, req.Name, members)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toConversationResponse(cv))
}

func (h *ConversationHandler) AddParticipant(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	convID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	var req AddParticipantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if err := h.svc.AddParticipant(c.Request().Context(), actor, convID, req.Member.actor()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ConversationHandler) List(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	convs, err := h.svc.ListFor(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]ConversationResponse, 0, len(convs))
	for i := range convs {
		resp = append(resp, toConversationResponse(&convs[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) Get(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	convID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	cv, err := h.svc.Get(c.Request().Context(), actor, convID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(cv))
}

func (h *ConversationHandler) Delete(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	convID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	if err := h.svc.DeleteFor(c.Request().Context(), actor, convID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ConversationHandler) Clear(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	convID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	if err := h.svc.ClearFor(c.Request().Context(), actor, convID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ConversationHandler) Exit(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	convID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	if err := h.svc.Exit(c.Request().Context(), actor, convID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
