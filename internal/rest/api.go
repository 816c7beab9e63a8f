package rest

import (
	"github.com/dfryer1193/newsroom/blog/application"
	"github.com/dfryer1193/newsroom/internal/middleware"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with logging, panic recovery and the API.
func NewRouter(service *application.PostService) *gin.Engine {
	router := gin.New()
	router.Use(middleware.LoggingMiddleware(), gin.CustomRecovery(middleware.HandlePanics()))

	NewApi(router, service)

	return router
}

func NewApi(router *gin.Engine, service *application.PostService) {
	h := NewPostsHandler(service)

	postsV1 := router.Group("posts/v1")
	{
		postsV1.GET("/", h.GetPosts)
		postsV1.GET("/:postId", h.GetPost)
		postsV1.GET("/slug/:slug", h.GetPostBySlug)
	}

	mutations := postsV1.Group("", middleware.RequireActor())
	{
		mutations.POST("/", h.CreatePost)
		mutations.PATCH("/:postId", h.UpdatePost)
		mutations.DELETE("/:postId", h.DeletePost)
		mutations.POST("/:postId/cancel-schedule", h.CancelSchedule)
		mutations.POST("/:postId/reschedule", h.Reschedule)
		mutations.POST("/:postId/publish", h.PublishNow)
	}
}
