package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	appmw "github.com/siberfx/wirechat/internal/middleware"
	"github.com/siberfx/wirechat/internal/service"
)

type MessageHandler struct {
	svc             service.MessageService
	defaultPageSize int
	maxUploadBytes  int64
}

func NewMessageHandler(svc service.MessageService, defaultPageSize int, maxUploadBytes int64) *MessageHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = 50
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &MessageHandler{svc: svc, defaultPageSize: defaultPageSize, maxUploadBytes: maxUploadBytes}
}

type SendMessageRequest struct {
	Body    string  `json:"body"`
	ReplyID *uint64 `json:"replyId"`
}

// Send accepts JSON for plain text and multipart/form-data when files
// ride along (fields: body, replyId, files).
func (h *MessageHandler) Send(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	convID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}

	in, err := h.bindSend(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}

	msgs, err := h.svc.Send(c.Request().Context(), actor, convID, *in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, msgs)
}

func (h *MessageHandler) bindSend(c echo.Context) (*service.SendInput, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		var req SendMessageRequest
		if err := c.Bind(&req); err != nil {
			return nil, err
		}
		return &service.SendInput{Body: req.Body, ReplyID: req.ReplyID}, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	in := service.SendInput{Body: c.FormValue("body")}
	if raw := c.FormValue("replyId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		in.ReplyID = &id
	}
	for _, fh := range form.File["files"] {
		if fh.Size > h.maxUploadBytes {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "file too large")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		in.Uploads = append(in.Uploads, service.Upload{
			Data:     data,
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
		})
	}
	return &in, nil
}

func (h *MessageHandler) Like(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	convID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	msg, err := h.svc.SendLike(c.Request().Context(), actor, convID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// Window returns the visible message window grouped by day, windowed
// from the tail; offset is the count already loaded by the client.
func (h *MessageHandler) Window(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	convID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	limit := h.defaultPageSize
	if raw := c.QueryParam("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			offset = v
		}
	}
	win, err := h.svc.LoadWindow(c.Request().Context(), actor, convID, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, win)
}

func (h *MessageHandler) DeleteForMe(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	msgID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid message id"))
	}
	if err := h.svc.DeleteForMe(c.Request().Context(), actor, msgID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *MessageHandler) DeleteForEveryone(c echo.Context) error {
	actor, ok := appmw.ActorFrom(c)
	if !ok {
		return respondError(c, service.ErrUnauthenticated)
	}
	msgID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid message id"))
	}
	if err := h.svc.DeleteForEveryone(c.Request().Context(), actor, msgID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
