package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"rdb/orm"
	"rdb/server/routes"
)

// New builds the fiber app exposing CRUD routes for every model in the
// registry. The caller owns listening and shutdown.
func New(reg *orm.Registry) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "rdb",
		DisableStartupMessage: true,
	})
	routes.SetupRoutes(app, reg)
	return app
}

// Listen starts the app on addr and blocks until it stops.
func Listen(app *fiber.App, addr string) error {
	slog.Info("http server listening", "addr", addr)
	return app.Listen(addr)
}
