package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/siberfx/wirechat/internal/config"
	"github.com/siberfx/wirechat/internal/db"
	"github.com/siberfx/wirechat/internal/model"
	"github.com/siberfx/wirechat/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	srv, err := server.New(nil, cfg)
	if err != nil {
		log.Fatalf("server init error: %v", err)
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)

	go func() {
		log.Printf("starting server on %s", addr)
		errCh <- srv.Start(addr)
	}()

	go func() {
		conn, err := db.Connect(cfg)
		if err != nil {
			log.Printf("db connect error: %v", err)
			return
		}
		if err := conn.AutoMigrate(
			&model.Conversation{},
			&model.Participation{},
			&model.Message{},
			&model.MessageVisibility{},
			&model.Attachment{},
			&model.Notification{},
		); err != nil {
			log.Printf("auto migrate error: %v", err)
		}
		srv.SetDB(conn)
	}()

	if err := <-errCh; err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
