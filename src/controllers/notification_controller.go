package controllers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/knownest/Backend-Knowledge-Nest/src/lib"
	"github.com/knownest/Backend-Knowledge-Nest/src/middleware"
	"github.com/knownest/Backend-Knowledge-Nest/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetNotifications returns the authenticated user's notifications, newest first
func GetNotifications(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(50)
	cursor, err := lib.DB.Collection("notifications").Find(c.Context(), bson.M{"recipient": user.Username}, opts)
	if err != nil {
		slog.Error("failed to fetch notifications", "username", user.Username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}
	defer cursor.Close(c.Context())

	notifications := []models.Notification{}
	if err := cursor.All(c.Context(), &notifications); err != nil {
		slog.Error("failed to decode notifications", "username", user.Username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	return c.Status(fiber.StatusOK).JSON(notifications)
}

// MarkNotificationAsRead marks a single notification as read
func MarkNotificationAsRead(c *fiber.Ctx) error {
	notificationID, err := primitive.ObjectIDFromHex(c.Params("notificationId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid notification ID format"))
	}

	user := middleware.CurrentUser(c)
	result, err := lib.DB.Collection("notifications").UpdateOne(
		c.Context(),
		bson.M{"_id": notificationID, "recipient": user.Username},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		slog.Error("failed to mark notification read", "id", notificationID.Hex(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}
	if result.MatchedCount == 0 {
		return c.Status(fiber.StatusNotFound).JSON(lib.MessageResponse("Notification not found"))
	}

	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Notification marked as read"))
}

// DeleteNotification removes a notification belonging to the authenticated user
func DeleteNotification(c *fiber.Ctx) error {
	notificationID, err := primitive.ObjectIDFromHex(c.Params("notificationId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid notification ID format"))
	}

	user := middleware.CurrentUser(c)
	result, err := lib.DB.Collection("notifications").DeleteOne(
		c.Context(),
		bson.M{"_id": notificationID, "recipient": user.Username},
	)
	if err != nil {
		slog.Error("failed to delete notification", "id", notificationID.Hex(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}
	if result.DeletedCount == 0 {
		return c.Status(fiber.StatusNotFound).JSON(lib.MessageResponse("Notification not found"))
	}

	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Notification deleted"))
}
