package main

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/knownest/Backend-Knowledge-Nest/src/controllers"
	"github.com/knownest/Backend-Knowledge-Nest/src/directory"
	"github.com/knownest/Backend-Knowledge-Nest/src/docstore"
	"github.com/knownest/Backend-Knowledge-Nest/src/lib"
	"github.com/knownest/Backend-Knowledge-Nest/src/routes"
)

func main() {
	lib.LoadConfig()
	lib.InitLogger()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: lib.Cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	lib.ConnectDB()

	controllers.Directory = directory.New(docstore.NewMongo(lib.DB))

	routes.AuthRoutes(app)
	routes.UserRoutes(app)
	routes.PostRoutes(app)
	routes.ConnectionRoutes(app)
	routes.NotificationRoutes(app)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	slog.Info("server starting", "port", lib.Cfg.Port)
	if err := app.Listen(":" + lib.Cfg.Port); err != nil {
		slog.Error("server stopped", "error", err)
	}
}
