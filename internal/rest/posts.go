package rest

import (
	"net/http"

	"github.com/dfryer1193/newsroom/api"
	"github.com/dfryer1193/newsroom/blog/application"
	"github.com/dfryer1193/newsroom/blog/domain"
	"github.com/dfryer1193/newsroom/internal/middleware"
	"github.com/gin-gonic/gin"
)

const defaultPageSize = 10

type PostsHandler struct {
	service  *application.PostService
	excerpts *ExcerptExtractor
}

func NewPostsHandler(service *application.PostService) *PostsHandler {
	return &PostsHandler{
		service:  service,
		excerpts: NewExcerptExtractor(),
	}
}

type listQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

func (h *PostsHandler) GetPosts(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, domain.NewValidationError("invalid paging: %v", err))
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultPageSize
	}

	posts, err := h.service.ListPublished(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := api.PostList{
		Posts:  make([]api.Post, 0, len(posts)),
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	for _, p := range posts {
		resp.Posts = append(resp.Posts, toAPIPost(p))
	}

	c.JSON(http.StatusOK, resp)
}

func (h *PostsHandler) GetPost(c *gin.Context) {
	post, err := h.service.Get(c.Request.Context(), c.Param("postId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAPIPost(post))
}

func (h *PostsHandler) GetPostBySlug(c *gin.Context) {
	post, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAPIPost(post))
}

func (h *PostsHandler) CreatePost(c *gin.Context) {
	proto := &api.PostProto{}
	if err := c.ShouldBindJSON(proto); err != nil {
		writeError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	changes, err := changesFromProto(proto)
	if err != nil {
		writeError(c, err)
		return
	}
	if proto.Excerpt == "" {
		excerpt := h.excerpts.Extract(proto.Body)
		changes.Excerpt = &excerpt
	}

	actor, _ := middleware.Actor(c)
	post, err := h.service.Create(c.Request.Context(), actor, changes)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Location", "/posts/v1/"+post.ID)
	c.JSON(http.StatusCreated, toAPIPost(post))
}

func (h *PostsHandler) UpdatePost(c *gin.Context) {
	patch := &api.PostPatch{}
	if err := c.ShouldBindJSON(patch); err != nil {
		writeError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	changes, err := changesFromPatch(patch)
	if err != nil {
		writeError(c, err)
		return
	}

	actor, _ := middleware.Actor(c)
	post, err := h.service.Update(c.Request.Context(), actor, c.Param("postId"), changes)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAPIPost(post))
}

func (h *PostsHandler) DeletePost(c *gin.Context) {
	actor, _ := middleware.Actor(c)
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("postId")); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *PostsHandler) CancelSchedule(c *gin.Context) {
	actor, _ := middleware.Actor(c)
	post, err := h.service.CancelSchedule(c.Request.Context(), actor, c.Param("postId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAPIPost(post))
}

func (h *PostsHandler) Reschedule(c *gin.Context) {
	proto := &api.ScheduleProto{}
	if err := c.ShouldBindJSON(proto); err != nil {
		writeError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	at, err := application.ParseInstant(proto.ScheduledAt)
	if err != nil {
		writeError(c, err)
		return
	}

	actor, _ := middleware.Actor(c)
	post, err := h.service.Reschedule(c.Request.Context(), actor, c.Param("postId"), &at, proto.Timezone)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAPIPost(post))
}

func (h *PostsHandler) PublishNow(c *gin.Context) {
	actor, _ := middleware.Actor(c)
	post, err := h.service.PublishNow(c.Request.Context(), actor, c.Param("postId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAPIPost(post))
}
