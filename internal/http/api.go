package http

import (
	"errors"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crop-doctor/internal/domain"
	"crop-doctor/internal/service"
	"crop-doctor/internal/storage"
)

const maxUploadBytes = 10 << 20

// Handler wires HTTP routes to domain services.
type Handler struct {
	users     service.UserService
	feed      service.FeedService
	storage   storage.Service
	bucket    string
	keyPrefix string
	jwtSecret string
	tokenTTL  time.Duration
	logger    *logrus.Logger
}

func NewHandler(users service.UserService, feed service.FeedService, store storage.Service, bucket, keyPrefix, jwtSecret string, tokenTTL time.Duration, logger *logrus.Logger) *Handler {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Handler{
		users:     users,
		feed:      feed,
		storage:   store,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	router.POST("/signup", h.signUp)
	router.POST("/signin", h.signIn)
	router.GET("/posts", h.listFeed)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	authed := router.Group("/", authRequired(h.jwtSecret))
	{
		authed.POST("/posts", h.createPost)
		authed.POST("/comments", h.createComment)
		authed.POST("/uploads", h.uploadImage)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type signUpRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createPostRequest struct {
	UserID  int64  `json:"user_id"` // accepted for compatibility, identity comes from the token
	Caption string `json:"caption" binding:"required"`
	Image   string `json:"image"`
}

type createCommentRequest struct {
	PostID  int64  `json:"post_id" binding:"required"`
	UserID  int64  `json:"user_id"` // accepted for compatibility, identity comes from the token
	Comment string `json:"comment" binding:"required"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	PhotoURL string `json:"photo_url,omitempty"`
}

type feedCommentResponse struct {
	PostID    int64  `json:"post_id"`
	Comment   string `json:"comment"`
	CreatedAt string `json:"created_at"`
	Username  string `json:"username"`
}

type feedItemResponse struct {
	PostID    int64                 `json:"post_id"`
	Caption   string                `json:"caption"`
	Image     string                `json:"image"`
	CreatedAt string                `json:"created_at"`
	Username  string                `json:"username"`
	Comments  []feedCommentResponse `json:"comments"`
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "username, email and password are required"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"message": "User already exists"})
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		default:
			h.logger.Errorf("sign up: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Sign up failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User signed up successfully",
		"user":    userToResponse(user),
	})
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
			return
		}
		h.logger.Errorf("sign in: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Sign in failed"})
		return
	}

	token, err := issueToken(user, h.jwtSecret, h.tokenTTL)
	if err != nil {
		h.logger.Errorf("issue token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Sign in failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sign in successful",
		"token":   token,
		"user":    userToResponse(user),
	})
}

func (h *Handler) createPost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authorization token required"})
		return
	}

	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "caption is required"})
		return
	}

	postID, err := h.feed.CreatePost(c.Request.Context(), userID, req.Caption, req.Image)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		h.logger.Errorf("create post: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Post created successfully",
		"postId":  postID,
	})
}

func (h *Handler) createComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authorization token required"})
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "post_id and comment are required"})
		return
	}

	err := h.feed.CreateComment(c.Request.Context(), req.PostID, userID, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPostNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Post not found"})
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		default:
			h.logger.Errorf("create comment: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to add comment"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment added successfully"})
}

func (h *Handler) listFeed(c *gin.Context) {
	items, err := h.feed.ListFeed(c.Request.Context())
	if err != nil {
		h.logger.Errorf("list feed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch posts"})
		return
	}

	resp := make([]feedItemResponse, len(items))
	for i := range items {
		resp[i] = feedItemToResponse(items[i])
	}
	c.JSON(http.StatusOK, gin.H{"posts": resp})
}

func (h *Handler) uploadImage(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "image uploads are not configured"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "an image file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Errorf("open uploaded image: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to store image"})
		return
	}
	defer file.Close()

	key := path.Join(h.keyPrefix, uuid.NewString()+path.Ext(fileHeader.Filename))
	url, err := h.storage.UploadImage(c.Request.Context(), file, storage.UploadOptions{
		Bucket:      h.bucket,
		Key:         key,
		ContentType: fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		h.logger.Errorf("upload image: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to store image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func userToResponse(user *domain.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		PhotoURL: user.AvatarURL,
	}
}

func feedItemToResponse(item domain.FeedItem) feedItemResponse {
	resp := feedItemResponse{
		PostID:    item.PostID,
		Caption:   item.Caption,
		Image:     item.ImageURL,
		CreatedAt: item.CreatedAt.Format(time.RFC3339),
		Username:  item.Username,
		Comments:  make([]feedCommentResponse, len(item.Comments)),
	}
	for i := range item.Comments {
		resp.Comments[i] = feedCommentResponse{
			PostID:    item.Comments[i].PostID,
			Comment:   item.Comments[i].Text,
			CreatedAt: item.Comments[i].CreatedAt.Format(time.RFC3339),
			Username:  item.Comments[i].Username,
		}
	}
	return resp
}
