package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quillside/quillside-api/internal/application"
	"github.com/quillside/quillside-api/internal/interface/middleware"
	"github.com/quillside/quillside-api/pkg/response"
	"github.com/quillside/quillside-api/pkg/validation"
)

type AccountHandler struct {
	Svc    *application.AccountService
	Blogs  *application.BlogService
	Logger *logrus.Logger
}

func NewAccountHandler(svc *application.AccountService, blogs *application.BlogService, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{Svc: svc, Blogs: blogs, Logger: logger}
}

// fail maps service errors onto the response envelope. Business failures are
// 4xx with their message; anything else is a logged 500 that leaks nothing.
func (h *AccountHandler) fail(c *gin.Context, err error) {
	var ferr *validation.FieldError
	if errors.As(err, &ferr) {
		response.Error(c, http.StatusBadRequest, ferr.Error(), ferr)
		return
	}
	switch {
	case errors.Is(err, application.ErrDuplicateEmail),
		errors.Is(err, application.ErrDuplicateUsername),
		errors.Is(err, application.ErrUserNotFound),
		errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrMalformedToken),
		errors.Is(err, application.ErrExpiredToken),
		errors.Is(err, application.ErrInvalidToken),
		errors.Is(err, application.ErrInvalidOTP),
		errors.Is(err, application.ErrExpiredOTP):
		response.Error(c, http.StatusBadRequest, err.Error(), nil)
	default:
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("path", c.FullPath()).Error("account operation failed")
		}
		response.Error(c, http.StatusInternalServerError, "something went wrong", nil)
	}
}

func (h *AccountHandler) Register(c *gin.Context) {
	var req validation.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		ferr := validation.First(err)
		response.Error(c, http.StatusBadRequest, ferr.Error(), ferr)
		return
	}
	out, err := h.Svc.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out, "User registered successfully")
}

type loginRequest struct {
	// User is the login handle: email or username.
	User     string `json:"user" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ferr := validation.First(err)
		response.Error(c, http.StatusBadRequest, ferr.Error(), ferr)
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.User, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "Login successful")
}

func (h *AccountHandler) Current(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	u, err := h.Svc.GetProfile(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, u.Public(), "The requested user was found")
}

func (h *AccountHandler) GetUser(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	blogs, err := h.Blogs.ListByAuthor(c.Request.Context(), u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"user":  u.Public(),
		"blogs": blogs,
	}, "User fetched successfully")
}

type updateProfileRequest struct {
	Name     string  `form:"name" json:"name"`
	Username string  `form:"userName" json:"userName" binding:"omitempty,alphanum,min=3,max=16"`
	Email    string  `form:"email" json:"email" binding:"omitempty,email"`
	Bio      *string `form:"bio" json:"bio"`
}

func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)

	var req updateProfileRequest
	multipart := strings.HasPrefix(c.ContentType(), "multipart/")
	if multipart {
		if err := c.ShouldBind(&req); err != nil {
			ferr := validation.First(err)
			response.Error(c, http.StatusBadRequest, ferr.Error(), ferr)
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		ferr := validation.First(err)
		response.Error(c, http.StatusBadRequest, ferr.Error(), ferr)
		return
	}

	in := application.UpdateProfileInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Bio:      req.Bio,
	}

	if multipart {
		if fh, err := c.FormFile("profilePic"); err == nil {
			f, err := fh.Open()
			if err != nil {
				h.fail(c, err)
				return
			}
			defer func() { _ = f.Close() }()
			url, err := h.Svc.UploadProfilePic(c.Request.Context(), uid, f, fh.Filename, fh.Header.Get("Content-Type"))
			if err != nil {
				h.fail(c, err)
				return
			}
			in.ProfilePicURL = url
		}
	}

	u, err := h.Svc.UpdateProfile(c.Request.Context(), uid, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, u.Public(), "Profile updated successfully")
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=255,strongpwd"`
}

func (h *AccountHandler) ChangePassword(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ferr := validation.First(err)
		response.Error(c, http.StatusBadRequest, ferr.Error(), ferr)
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), uid, req.OldPassword, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Password changed successfully")
}

type verifyConfirmRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *AccountHandler) VerifyConfirm(c *gin.Context) {
	var req verifyConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ferr := validation.First(err)
		response.Error(c, http.StatusBadRequest, ferr.Error(), ferr)
		return
	}
	if err := h.Svc.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"verified": true}, "Email verified successfully")
}

func (h *AccountHandler) VerifyResend(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.ResendVerification(c.Request.Context(), uid); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Verification email sent")
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *AccountHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ferr := validation.First(err)
		response.Error(c, http.StatusBadRequest, ferr.Error(), ferr)
		return
	}
	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Reset code sent")
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required,len=6,numeric"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=255,strongpwd"`
}

func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ferr := validation.First(err)
		response.Error(c, http.StatusBadRequest, ferr.Error(), ferr)
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Password updated successfully")
}
