package controllers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/knownest/Backend-Knowledge-Nest/src/lib"
	"github.com/knownest/Backend-Knowledge-Nest/src/middleware"
	"github.com/knownest/Backend-Knowledge-Nest/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetPublicProfile returns another user's profile. Shared materials are
// included only when the viewer holds an accepted connection with the
// profile owner (or is the owner).
func GetPublicProfile(c *fiber.Ctx) error {
	username := c.Params("username")
	viewer := middleware.CurrentUser(c)

	var profileUser models.User
	err := lib.DB.Collection("users").FindOne(c.Context(), bson.M{"username": username}).Decode(&profileUser)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.Status(fiber.StatusNotFound).JSON(lib.MessageResponse("User not found"))
		}
		slog.Error("failed to find user", "username", username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	connected := viewer.Username == username
	if !connected {
		connected, err = Directory.Connected(c.Context(), viewer.Username, username)
		if err != nil {
			slog.Error("failed to check connection", "viewer", viewer.Username, "target", username, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
		}
	}

	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := lib.DB.Collection("posts").Find(c.Context(), bson.M{"author": username}, opts)
	if err != nil {
		slog.Error("failed to fetch profile posts", "username", username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}
	defer cursor.Close(c.Context())

	posts := []models.Post{}
	if err := cursor.All(c.Context(), &posts); err != nil {
		slog.Error("failed to decode profile posts", "username", username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	profile := models.PublicProfile{
		UserDto:   profileUser.ToDto(),
		Connected: connected,
		Posts:     posts,
	}
	if connected {
		profile.Materials = profileUser.Materials
	}

	return c.Status(fiber.StatusOK).JSON(profile)
}

// UpdateProfile updates the authenticated user's profile fields
func UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Name           *string            `json:"name"`
		Bio            *string            `json:"bio"`
		Skills         *[]string          `json:"skills"`
		Materials      *[]models.Material `json:"materials"`
		ProfilePicture *string            `json:"profilePicture"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid request body"))
	}

	update := bson.M{}
	if req.Name != nil {
		update["name"] = *req.Name
	}
	if req.Bio != nil {
		update["bio"] = *req.Bio
	}
	if req.Skills != nil {
		update["skills"] = *req.Skills
	}
	if req.Materials != nil {
		update["materials"] = *req.Materials
	}
	if req.ProfilePicture != nil {
		update["profile_picture"] = *req.ProfilePicture
	}
	if len(update) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Nothing to update"))
	}

	user := middleware.CurrentUser(c)
	_, err := lib.DB.Collection("users").UpdateOne(
		c.Context(),
		bson.M{"_id": user.Id},
		bson.M{"$set": update},
	)
	if err != nil {
		slog.Error("failed to update profile", "username", user.Username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Failed to update profile"))
	}

	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Profile updated"))
}

// SearchUsers returns public profiles whose handle or name matches the
// search term.
func SearchUsers(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Search term is required"))
	}

	pattern := bson.M{"$regex": q, "$options": "i"}
	filter := bson.M{"$or": []bson.M{
		{"username": pattern},
		{"name": pattern},
	}}
	opts := options.Find().SetLimit(20).SetProjection(bson.M{
		"username":        1,
		"name":            1,
		"bio":             1,
		"skills":          1,
		"profile_picture": 1,
	})

	cursor, err := lib.DB.Collection("users").Find(c.Context(), filter, opts)
	if err != nil {
		slog.Error("failed to search users", "q", q, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}
	defer cursor.Close(c.Context())

	var users []models.User
	if err := cursor.All(c.Context(), &users); err != nil {
		slog.Error("failed to decode users", "q", q, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	dtos := make([]models.UserDto, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, u.ToDto())
	}
	return c.Status(fiber.StatusOK).JSON(dtos)
}
