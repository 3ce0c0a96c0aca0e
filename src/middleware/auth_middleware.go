package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/knownest/Backend-Knowledge-Nest/src/lib"
	"github.com/knownest/Backend-Knowledge-Nest/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProtectRoute checks for a valid bearer token, loads the user it names,
// and attaches it to the request context.
func ProtectRoute(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - token not provided"))
	}

	token, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found || token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - invalid token format"))
	}

	decoded, err := lib.VerifyJWT(token)
	if err != nil || decoded == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - invalid token"))
	}

	userID, ok := decoded["userId"].(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - invalid token"))
	}

	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Invalid user ID"))
	}

	var user models.User
	err = lib.DB.Collection("users").FindOne(c.Context(), bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("User not found"))
	}

	user.Password = ""
	c.Locals("user", user)

	return c.Next()
}

// CurrentUser returns the authenticated user stored by ProtectRoute.
func CurrentUser(c *fiber.Ctx) models.User {
	user, _ := c.Locals("user").(models.User)
	return user
}
