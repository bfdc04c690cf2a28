package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quillside/quillside-api/internal/container"
	handlers "github.com/quillside/quillside-api/internal/interface/http"
	"github.com/quillside/quillside-api/internal/interface/middleware"
	"github.com/quillside/quillside-api/pkg/auth"
)

// AccountModule wires registration, login, verification and password flows.
// Public: register, login, verify/confirm, forgot, reset, user by id.
// Protected: current user, profile update, password change, verify/resend.
type AccountModule struct {
	Handler *handlers.AccountHandler
	Tokens  *auth.TokenIssuer
}

func NewAccountModule(h *handlers.AccountHandler, tokens *auth.TokenIssuer) *AccountModule {
	return &AccountModule{Handler: h, Tokens: tokens}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	registerLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath())
	loginLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIP())
	resetLimiter := middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByIPAndPath())

	rg.POST("/users/register", registerLimiter, m.Handler.Register)
	rg.POST("/users/login", loginLimiter, m.Handler.Login)
	rg.POST("/auth/verify/confirm", resetLimiter, m.Handler.VerifyConfirm)
	rg.POST("/auth/forgot", resetLimiter, m.Handler.ForgotPassword)
	rg.POST("/auth/reset", resetLimiter, m.Handler.ResetPassword)

	authd := rg.Group("/")
	authd.Use(middleware.Auth(m.Tokens))
	authd.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID()))
	{
		authd.GET("/users/current", m.Handler.Current)
		authd.PUT("/users/profile", m.Handler.UpdateProfile)
		authd.POST("/users/password", m.Handler.ChangePassword)
		authd.POST("/auth/verify/resend", m.Handler.VerifyResend)
	}

	// /users/current is matched before the param route
	rg.GET("/users/:userId", m.Handler.GetUser)
}
