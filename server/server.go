package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"uploadhub/config"
	"uploadhub/controller"
	"uploadhub/engine"
	"uploadhub/engine/httpengine"
	"uploadhub/engine/sftpengine"
	"uploadhub/upload"
)

// Start builds the engine and manager from config and serves the API. It
// blocks until the listener fails.
func Start(cfg *config.Config) error {
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	manager := upload.NewManager(eng, cfg.Engine.AppRoot)
	defer manager.Close()

	r := gin.Default()
	controller.SetupRoutes(r, manager)

	return r.Run(fmt.Sprintf(":%d", cfg.Server.Port))
}

func buildEngine(cfg *config.Config) (engine.Engine, error) {
	switch cfg.Engine.Kind {
	case "sftp":
		return sftpengine.Dial(cfg.Engine.SFTP.Addr, cfg.Engine.SFTP.User, cfg.Engine.SFTP.Password)
	default:
		client := &http.Client{
			Timeout: time.Duration(cfg.Engine.HTTP.TimeoutSeconds) * time.Second,
		}
		return httpengine.New(client), nil
	}
}
