package server

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/siberfx/wirechat/internal/chat"
	"github.com/siberfx/wirechat/internal/config"
	"github.com/siberfx/wirechat/internal/dispatch"
	"github.com/siberfx/wirechat/internal/handler"
	appmw "github.com/siberfx/wirechat/internal/middleware"
	"github.com/siberfx/wirechat/internal/queue"
	"github.com/siberfx/wirechat/internal/ratelimit"
	"github.com/siberfx/wirechat/internal/repository"
	"github.com/siberfx/wirechat/internal/service"
	"github.com/siberfx/wirechat/internal/storage"
	"gorm.io/gorm"
)

type Server struct {
	e         *echo.Echo
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	notifRepo repository.NotificationRepository
	tasks     *queue.Memory
}

func New(db *gorm.DB, cfg *config.Config) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			return strings.HasSuffix(u.Hostname(), "vercel.app"), nil
		},
	}))

	var blobs storage.BlobStore = storage.Disabled{}
	if cfg.StorageBucket != "" {
		gcs, err := storage.NewGCS(context.Background(), cfg.StorageBucket)
		if err != nil {
			return nil, err
		}
		blobs = gcs
	} else {
		log.Printf("STORAGE_BUCKET not set; attachment uploads disabled")
	}

	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	tasks := queue.NewMemory()
	hub := chat.NewHub()
	notifSvc := service.NewNotificationService(notifRepo)
	dispatch.RegisterHandlers(tasks, hub, notifSvc)
	dispatcher := dispatch.New(tasks)

	limiter := ratelimit.New(cfg.RateLimit, time.Duration(cfg.RateWindowSeconds)*time.Second)

	convSvc := service.NewConversationService(convRepo, blobs)
	msgSvc := service.NewMessageService(convRepo, msgRepo, limiter, blobs, dispatcher, service.MessageServiceOptions{
		AttachmentFolder: cfg.AttachmentFolder,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		RedactTombstones: cfg.RedactTombstones,
	})

	convHandler := handler.NewConversationHandler(convSvc, msgSvc)
	msgHandler := handler.NewMessageHandler(msgSvc, cfg.PageSize, cfg.MaxUploadBytes)
	notifHandler := handler.NewNotificationHandler(notifSvc)
	wsHandler := handler.NewWSHandler(hub)

	authMw, err := appmw.NewAuthMiddleware(context.Background())
	if err != nil {
		return nil, err
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
	})

	api := e.Group("/api", authMw.RequireAuth)
	api.POST("/conversations/private", convHandler.CreatePrivate)
	api.GET("/conversations", convHandler.List)
	api.GET("/conversations/:id", convHandler.Get)
	api.DELETE("/conversations/:id", convHandler.Delete)
	api.POST("/conversations/:id/clear", convHandler.Clear)
	api.POST("/conversations/:id/exit", convHandler.Exit)
	api.GET("/conversations/:id/messages", msgHandler.Window)
	api.POST("/conversations/:id/messages", msgHandler.Send)
	api.POST("/conversations/:id/like", msgHandler.Like)
	api.POST("/conversations/:id/read", notifHandler.MarkByConversation)
	api.POST("/groups", convHandler.CreateGroup)
	api.POST("/groups/:id/participants", convHandler.AddParticipant)
	api.DELETE("/messages/:id", msgHandler.DeleteForEveryone)
	api.POST("/messages/:id/hide", msgHandler.DeleteForMe)
	api.GET("/notifications", notifHandler.List)
	api.POST("/notifications/read", notifHandler.MarkAllRead)
	api.GET("/ws", wsHandler.Connect)

	return &Server{
		e:         e,
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		notifRepo: notifRepo,
		tasks:     tasks,
	}, nil
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.tasks.Stop()
	return s.e.Shutdown(ctx)
}

// SetDB late-binds the database once the async connect finishes.
func (s *Server) SetDB(db *gorm.DB) {
	s.convRepo.SetDB(db)
	s.msgRepo.SetDB(db)
	s.notifRepo.SetDB(db)
}
