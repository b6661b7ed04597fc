package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/riveredge/riveredge/pkg/log"
)

// NewServer starts the fiber app on the configured address and returns a
// shutdown hook. The hook blocks in-flight requests up to ShutdownTimeout.
func NewServer(cfg *Http, app *fiber.App) func() {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	go func() {
		log.Infof("http server start at: %s", addr)
		if err := app.Listen(addr); err != nil {
			panic(err)
		}
	}()

	return func() {
		log.Info("http server shutting down...")
		timeout := time.Duration(cfg.ShutdownTimeout) * time.Second
		if err := app.ShutdownWithTimeout(timeout); err != nil {
			log.Errorf("http server shutdown error: %v", err)
			return
		}
		log.Info("http server shut down gracefully")
	}
}
