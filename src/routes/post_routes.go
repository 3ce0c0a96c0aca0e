package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/knownest/Backend-Knowledge-Nest/src/controllers"
	"github.com/knownest/Backend-Knowledge-Nest/src/middleware"
)

func PostRoutes(app *fiber.App) {
	post := app.Group("/api/v1/posts", middleware.ProtectRoute)

	post.Post("/", controllers.CreatePost)
	post.Get("/", controllers.GetFeedPosts)
	post.Get("/user/:username", controllers.GetUserPosts)
	post.Put("/:postId/like", controllers.LikePost)
	post.Post("/:postId/comments", controllers.CommentPost)
	post.Delete("/:postId", controllers.DeletePost)
}
