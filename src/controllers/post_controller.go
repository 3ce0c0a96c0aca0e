package controllers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/knownest/Backend-Knowledge-Nest/src/lib"
	"github.com/knownest/Backend-Knowledge-Nest/src/middleware"
	"github.com/knownest/Backend-Knowledge-Nest/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreatePost creates a new post for the authenticated user
func CreatePost(c *fiber.Ctx) error {
	type CreatePostRequest struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		ImageURL    string `json:"imageUrl,omitempty"`
		VideoURL    string `json:"videoUrl,omitempty"`
	}

	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid request body"))
	}

	if req.Title == "" || req.Description == "" {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Title and description are required"))
	}

	user := middleware.CurrentUser(c)
	now := time.Now().UTC()
	newPost := models.Post{
		Id:          primitive.NewObjectID(),
		Author:      user.Username,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		VideoURL:    req.VideoURL,
		LikedBy:     []string{},
		Comments:    []models.Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := lib.DB.Collection("posts").InsertOne(c.Context(), newPost); err != nil {
		slog.Error("failed to create post", "author", user.Username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Failed to create post"))
	}

	return c.Status(fiber.StatusCreated).JSON(newPost)
}

// GetFeedPosts returns all posts newest first, optionally filtered by a search term on title and description
func GetFeedPosts(c *fiber.Ctx) error {
	filter := bson.M{}
	if q := c.Query("q"); q != "" {
		pattern := primitive.Regex{Pattern: q, Options: "i"}
		filter["$or"] = []bson.M{
			{"title": pattern},
			{"description": pattern},
			{"author": pattern},
		}
	}

	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := lib.DB.Collection("posts").Find(c.Context(), filter, opts)
	if err != nil {
		slog.Error("failed to fetch feed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}
	defer cursor.Close(c.Context())

	posts := []models.Post{}
	if err := cursor.All(c.Context(), &posts); err != nil {
		slog.Error("failed to decode posts", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

// GetUserPosts returns every post authored by the given user, newest first
func GetUserPosts(c *fiber.Ctx) error {
	username := c.Params("username")

	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := lib.DB.Collection("posts").Find(c.Context(), bson.M{"author": username}, opts)
	if err != nil {
		slog.Error("failed to fetch user posts", "author", username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}
	defer cursor.Close(c.Context())

	posts := []models.Post{}
	if err := cursor.All(c.Context(), &posts); err != nil {
		slog.Error("failed to decode posts", "author", username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

// LikePost toggles the authenticated user's like on a post
func LikePost(c *fiber.Ctx) error {
	postID, err := primitive.ObjectIDFromHex(c.Params("postId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid post ID format"))
	}

	user := middleware.CurrentUser(c)
	posts := lib.DB.Collection("posts")

	var post models.Post
	if err := posts.FindOne(c.Context(), bson.M{"_id": postID}).Decode(&post); err != nil {
		if err == mongo.ErrNoDocuments {
			return c.Status(fiber.StatusNotFound).JSON(lib.MessageResponse("Post not found"))
		}
		slog.Error("failed to find post", "post", postID.Hex(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	liked := false
	for _, name := range post.LikedBy {
		if name == user.Username {
			liked = true
			break
		}
	}

	var update bson.M
	if liked {
		update = bson.M{
			"$pull": bson.M{"likedBy": user.Username},
			"$inc":  bson.M{"likeCount": -1},
		}
	} else {
		update = bson.M{
			"$addToSet": bson.M{"likedBy": user.Username},
			"$inc":      bson.M{"likeCount": 1},
		}
	}

	if _, err := posts.UpdateOne(c.Context(), bson.M{"_id": postID}, update); err != nil {
		slog.Error("failed to update like", "post", postID.Hex(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Failed to update like"))
	}

	if !liked && post.Author != user.Username {
		notifyPostActivity(c, post, user.Username, models.NotificationLike)
	}

	if liked {
		return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Like removed"))
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Post liked"))
}

// CommentPost appends a comment to a post
func CommentPost(c *fiber.Ctx) error {
	postID, err := primitive.ObjectIDFromHex(c.Params("postId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid post ID format"))
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Comment content is required"))
	}

	user := middleware.CurrentUser(c)
	comment := models.Comment{
		Id:        primitive.NewObjectID(),
		User:      user.Username,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}

	posts := lib.DB.Collection("posts")

	var post models.Post
	if err := posts.FindOne(c.Context(), bson.M{"_id": postID}).Decode(&post); err != nil {
		if err == mongo.ErrNoDocuments {
			return c.Status(fiber.StatusNotFound).JSON(lib.MessageResponse("Post not found"))
		}
		slog.Error("failed to find post", "post", postID.Hex(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	update := bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	if _, err := posts.UpdateOne(c.Context(), bson.M{"_id": postID}, update); err != nil {
		slog.Error("failed to add comment", "post", postID.Hex(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Failed to add comment"))
	}

	if post.Author != user.Username {
		notifyPostActivity(c, post, user.Username, models.NotificationComment)
	}

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeletePost removes a post owned by the authenticated user
func DeletePost(c *fiber.Ctx) error {
	postID, err := primitive.ObjectIDFromHex(c.Params("postId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(lib.MessageResponse("Invalid post ID format"))
	}

	user := middleware.CurrentUser(c)
	posts := lib.DB.Collection("posts")

	var post models.Post
	if err := posts.FindOne(c.Context(), bson.M{"_id": postID}).Decode(&post); err != nil {
		if err == mongo.ErrNoDocuments {
			return c.Status(fiber.StatusNotFound).JSON(lib.MessageResponse("Post not found"))
		}
		slog.Error("failed to find post", "post", postID.Hex(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Server error"))
	}

	if post.Author != user.Username {
		return c.Status(fiber.StatusForbidden).JSON(lib.MessageResponse("Not authorized to delete this post"))
	}

	if _, err := posts.DeleteOne(c.Context(), bson.M{"_id": postID}); err != nil {
		slog.Error("failed to delete post", "post", postID.Hex(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(lib.MessageResponse("Failed to delete post"))
	}

	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Post deleted"))
}

// notifyPostActivity records a like or comment notification for the post
// author. Not critical: failures are logged, never surfaced.
func notifyPostActivity(c *fiber.Ctx, post models.Post, actor string, kind models.NotificationType) {
	notification := models.Notification{
		Recipient:   post.Author,
		Type:        kind,
		RelatedUser: actor,
		PostId:      post.Id,
		Read:        false,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := lib.DB.Collection("notifications").InsertOne(c.Context(), notification); err != nil {
		slog.Warn("failed to create notification", "recipient", post.Author, "error", err)
	}
}
