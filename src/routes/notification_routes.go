package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/knownest/Backend-Knowledge-Nest/src/controllers"
	"github.com/knownest/Backend-Knowledge-Nest/src/middleware"
)

func NotificationRoutes(app *fiber.App) {
	notification := app.Group("/api/v1/notifications", middleware.ProtectRoute)

	notification.Get("/", controllers.GetNotifications)
	notification.Put("/:notificationId/read", controllers.MarkNotificationAsRead)
	notification.Delete("/:notificationId", controllers.DeleteNotification)
}
