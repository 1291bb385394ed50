package controller

import (
	"lingo_stake_backend/internal/service"
	"lingo_stake_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxAvatarBytes = 5 << 20

type UserController struct {
	UserService    *service.UserService
	StorageService *service.StorageService
}

func NewUserController(userService *service.UserService, storageService *service.StorageService) *UserController {
	return &UserController{
		UserService:    userService,
		StorageService: storageService,
	}
}

// UpdateProfile godoc
// @Summary Update profile fields
// @Description Empty fields are left unchanged. walletAddress must be a 0x-prefixed hex address.
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 400 {object} util.Response
// @Router /api/user/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	var req service.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.UpdateProfile(currentUserID(ctx), &req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// UploadAvatar godoc
// @Summary Upload an avatar image
// @Tags User
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Image file"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Router /api/user/avatar/upload [post]
func (c *UserController) UploadAvatar(ctx *gin.Context) {
	file, err := ctx.FormFile("avatar")
	if err != nil {
		util.BadRequest(ctx, "avatar file is required")
		return
	}
	if file.Size > maxAvatarBytes {
		util.Error(ctx, http.StatusRequestEntityTooLarge, "avatar must be smaller than 5MB")
		return
	}
	if !util.HasAllowedExtension(file.Filename, util.AllowedImageExtensions) {
		util.BadRequest(ctx, "unsupported image format")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, []string{util.MimeImage})
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if _, err := src.Seek(0, 0); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	userID := currentUserID(ctx)
	name := service.ObjectName("avatars", userID, file.Filename)
	url, err := c.StorageService.Upload(ctx.Request.Context(), name, src, file.Size, mimeType)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if err := c.UserService.UpdateAvatar(userID, url); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"avatar": url})
}

// Stats godoc
// @Summary Dashboard counters for the current user
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.UserStats}
// @Router /api/users/stats [get]
func (c *UserController) Stats(ctx *gin.Context) {
	stats, err := c.UserService.Stats(ctx.Request.Context(), currentUserID(ctx))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
