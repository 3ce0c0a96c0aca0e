package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/knownest/Backend-Knowledge-Nest/src/controllers"
	"github.com/knownest/Backend-Knowledge-Nest/src/middleware"
)

// ConnectionRoutes sets up connection-related routes for sending, accepting, rejecting requests, listing requests and connections, and checking connection status
func ConnectionRoutes(app *fiber.App) {
	connection := app.Group("/api/v1/connections", middleware.ProtectRoute)

	connection.Post("/request/:username", controllers.SendConnectionRequest)
	connection.Put("/accept/:username", controllers.AcceptConnectionRequest)
	connection.Put("/reject/:username", controllers.RejectConnectionRequest)
	connection.Get("/received", controllers.GetReceivedRequests)
	connection.Get("/sent", controllers.GetSentRequests)
	connection.Get("/", controllers.GetUserConnections)
	connection.Get("/status/:username", controllers.GetConnectionStatus)
}
