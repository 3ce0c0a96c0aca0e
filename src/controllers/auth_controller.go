package controllers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/knownest/Backend-Knowledge-Nest/src/lib"
	"github.com/knownest/Backend-Knowledge-Nest/src/middleware"
	"github.com/knownest/Backend-Knowledge-Nest/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// Signup registers a new account. The public handle is derived from the
// email's local part, matching what the rest of the network keys on.
func Signup(c *fiber.Ctx) error {
	var userData struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.BodyParser(&userData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid request body"))
	}

	if userData.Name == "" || userData.Email == "" || userData.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("All fields are required"))
	}

	if len(userData.Password) < 6 {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Password must be at least 6 characters"))
	}

	username, err := lib.UsernameFromEmail(userData.Email)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid email address"))
	}

	users := lib.DB.Collection("users")

	var existing models.User
	err = users.FindOne(c.Context(), bson.M{"$or": []bson.M{
		{"email": userData.Email},
		{"username": username},
	}}).Decode(&existing)
	if err == nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("An account with this email already exists"))
	} else if err != mongo.ErrNoDocuments {
		slog.Error("failed to check existing user", "email", userData.Email, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(userData.Password), 11)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	newUser := models.User{
		Username: username,
		Name:     userData.Name,
		Email:    userData.Email,
		Password: string(hashedPassword),
		Skills:   []string{},
	}

	result, err := users.InsertOne(c.Context(), newUser)
	if err != nil {
		// The unique index can still lose a race here.
		if mongo.IsDuplicateKeyError(err) {
			return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("An account with this email already exists"))
		}
		slog.Error("failed to create user", "username", username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Failed to create user"))
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		slog.Error("unexpected inserted id type", "username", username)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}
	token, err := lib.GenerateJWT(insertedID.Hex())
	if err != nil {
		slog.Error("failed to generate token", "username", username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Account created successfully",
		"token":    token,
		"username": username,
	})
}

// Login authenticates by email and password and returns a JWT
func Login(c *fiber.Ctx) error {
	var loginData struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.BodyParser(&loginData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid request body"))
	}

	if loginData.Email == "" || loginData.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Email and password are required"))
	}

	var user models.User
	err := lib.DB.Collection("users").FindOne(c.Context(), bson.M{"email": loginData.Email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid credentials"))
		}
		slog.Error("failed to look up user", "email", loginData.Email, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(loginData.Password)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid credentials"))
	}

	token, err := lib.GenerateJWT(user.Id.Hex())
	if err != nil {
		slog.Error("failed to generate token", "username", user.Username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	return c.JSON(fiber.Map{
		"message":  "Logged in successfully",
		"token":    token,
		"username": user.Username,
	})
}

// Logout acknowledges a sign-out. Tokens are stateless, so the client
// discards its copy; nothing is revoked server-side.
func Logout(c *fiber.Ctx) error {
	return c.JSON(lib.MessageResponse("Logged out successfully"))
}

// GetCurrentUser returns the currently authenticated user's data
func GetCurrentUser(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user.Username == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Not authenticated"))
	}
	return c.JSON(user)
}
