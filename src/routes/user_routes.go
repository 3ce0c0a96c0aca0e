package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/knownest/Backend-Knowledge-Nest/src/controllers"
	"github.com/knownest/Backend-Knowledge-Nest/src/middleware"
)

func UserRoutes(app *fiber.App) {
	user := app.Group("/api/v1/users", middleware.ProtectRoute)

	user.Get("/search", controllers.SearchUsers)
	user.Put("/me", controllers.UpdateProfile)
	user.Get("/:username", controllers.GetPublicProfile)
}
