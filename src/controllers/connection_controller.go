package controllers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/knownest/Backend-Knowledge-Nest/src/directory"
	"github.com/knownest/Backend-Knowledge-Nest/src/lib"
	"github.com/knownest/Backend-Knowledge-Nest/src/middleware"
	"github.com/knownest/Backend-Knowledge-Nest/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Directory is the connection-request domain model all connection routes
// delegate to; main wires it to the Mongo-backed store.
var Directory *directory.Directory

// SendConnectionRequest sends a connection request from the authenticated user to another user
func SendConnectionRequest(c *fiber.Ctx) error {
	target := c.Params("username")
	user := middleware.CurrentUser(c)

	if user.Username == target {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("You can't send a connection request to yourself"))
	}

	outcome, err := Directory.RequestConnection(c.Context(), user.Username, target)
	if err != nil {
		if errors.Is(err, directory.ErrInvalidArgument) {
			return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid username"))
		}
		slog.Error("failed to send connection request", "from", user.Username, "to", target, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Failed to send connection request"))
	}

	switch outcome {
	case directory.OutcomeCreated:
		return c.Status(fiber.StatusCreated).JSON(lib.MessageResponse("Connection request sent to @" + target))
	case directory.OutcomeAlreadyConnected:
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("You are already connected with @" + target))
	case directory.OutcomeAlreadyPending:
		// Word the duplicate notice by which side sent first.
		status, serr := Directory.StatusBetween(c.Context(), user.Username, target)
		if serr == nil && status == directory.PairPendingReceived {
			return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("@" + target + " already sent you a request"))
		}
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("You've already requested @" + target))
	}

	return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
}

// AcceptConnectionRequest accepts a pending connection request addressed to the authenticated user
func AcceptConnectionRequest(c *fiber.Ctx) error {
	requester := c.Params("username")
	user := middleware.CurrentUser(c)

	outcome, err := Directory.AcceptRequest(c.Context(), requester, user.Username)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(lib.MessageResponse("Connection request not found"))
		case errors.Is(err, directory.ErrInvalidArgument):
			return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid username"))
		}
		slog.Error("failed to accept connection request", "requester", requester, "recipient", user.Username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Failed to accept request"))
	}

	if outcome == directory.OutcomeAccepted {
		notifyConnectionAccepted(c, requester, user.Username)
	}

	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Accepted @" + requester))
}

// RejectConnectionRequest rejects a pending connection request addressed to the authenticated user
func RejectConnectionRequest(c *fiber.Ctx) error {
	requester := c.Params("username")
	user := middleware.CurrentUser(c)

	_, err := Directory.RejectRequest(c.Context(), requester, user.Username)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(lib.MessageResponse("Connection request not found"))
		case errors.Is(err, directory.ErrInvalidArgument):
			return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid username"))
		}
		slog.Error("failed to reject connection request", "requester", requester, "recipient", user.Username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Failed to reject request"))
	}

	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Rejected @" + requester))
}

// GetReceivedRequests returns the handles of users with pending requests to the authenticated user
func GetReceivedRequests(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	peers, err := Directory.ListReceivedPending(c.Context(), user.Username)
	if err != nil {
		slog.Error("failed to list received requests", "user", user.Username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	return c.Status(fiber.StatusOK).JSON(peers)
}

// GetSentRequests returns the handles of users the authenticated user has pending requests to
func GetSentRequests(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	peers, err := Directory.ListSentPending(c.Context(), user.Username)
	if err != nil {
		slog.Error("failed to list sent requests", "user", user.Username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	return c.Status(fiber.StatusOK).JSON(peers)
}

// GetUserConnections returns the profiles of all users connected to the authenticated user
func GetUserConnections(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	peers, err := Directory.ListAccepted(c.Context(), user.Username)
	if err != nil {
		slog.Error("failed to list connections", "user", user.Username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}
	if len(peers) == 0 {
		return c.Status(fiber.StatusOK).JSON([]models.UserDto{})
	}

	dtos, err := userDtosByUsername(c, peers)
	if err != nil {
		slog.Error("failed to load connection profiles", "user", user.Username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	return c.Status(fiber.StatusOK).JSON(dtos)
}

// GetConnectionStatus returns the connection status between the authenticated user and another user
func GetConnectionStatus(c *fiber.Ctx) error {
	target := c.Params("username")
	user := middleware.CurrentUser(c)

	status, err := Directory.StatusBetween(c.Context(), user.Username, target)
	if err != nil {
		if errors.Is(err, directory.ErrInvalidArgument) {
			return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Cannot check connection status with yourself"))
		}
		slog.Error("failed to check connection status", "user", user.Username, "target", target, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": status})
}

// userDtosByUsername resolves handles to public profiles, keeping the input
// order. Handles without an account are skipped.
func userDtosByUsername(c *fiber.Ctx, usernames []string) ([]models.UserDto, error) {
	filter := bson.M{"username": bson.M{"$in": usernames}}
	opts := options.Find().SetProjection(bson.M{
		"username":        1,
		"name":            1,
		"bio":             1,
		"skills":          1,
		"profile_picture": 1,
	})

	cursor, err := lib.DB.Collection("users").Find(c.Context(), filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(c.Context())

	var users []models.User
	if err := cursor.All(c.Context(), &users); err != nil {
		return nil, err
	}

	byName := make(map[string]models.User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}

	dtos := make([]models.UserDto, 0, len(usernames))
	for _, name := range usernames {
		if u, ok := byName[name]; ok {
			dtos = append(dtos, u.ToDto())
		}
	}
	return dtos, nil
}

// notifyConnectionAccepted records a notification for the requester. Not
// critical: a failure is logged and the accept still succeeds.
func notifyConnectionAccepted(c *fiber.Ctx, requester, recipient string) {
	if lib.DB == nil {
		return
	}
	notification := models.Notification{
		Recipient:   requester,
		Type:        models.NotificationConnectionAccepted,
		RelatedUser: recipient,
		Read:        false,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := lib.DB.Collection("notifications").InsertOne(c.Context(), notification); err != nil {
		slog.Warn("failed to create notification", "recipient", requester, "error", err)
	}
}
