package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/chat"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/internal/service"
)

type UserController struct {
	users service.UserInteractor
}

func NewUserController(users service.UserInteractor) *UserController {
	return &UserController{users: users}
}

type profileResponse struct {
	*domain.Profile
	DisplayName string `json:"display_name"`
}

func toProfileResponse(p *domain.Profile) profileResponse {
	return profileResponse{Profile: p, DisplayName: chat.DisplayName(p)}
}

// CreateUser registers a profile. At least one of username or email is
// required; an email must be well formed.
func (c *UserController) CreateUser(ctx *gin.Context) {
	type CreateUserRequest struct {
		Username string `json:"username" binding:"omitempty,max=64"`
		Email    string `json:"email" binding:"omitempty,email,max=254"`
	}

	var req CreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Username) == "" && strings.TrimSpace(req.Email) == "" {
		abortWith(ctx, service.ErrIdentityRequired)
		return
	}

	profile, err := c.users.CreateUser(ctx.Request.Context(), req.Username, req.Email)
	if err != nil {
		abortWith(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": toProfileResponse(profile)})
}

func (c *UserController) GetUser(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("userID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	profile, err := c.users.GetProfile(ctx.Request.Context(), id)
	if err != nil {
		abortWith(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": toProfileResponse(profile)})
}
