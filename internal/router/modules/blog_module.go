package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quillside/quillside-api/internal/container"
	handlers "github.com/quillside/quillside-api/internal/interface/http"
	"github.com/quillside/quillside-api/internal/interface/middleware"
	"github.com/quillside/quillside-api/pkg/auth"
)

// BlogModule wires blog browsing, search and authoring routes.
type BlogModule struct {
	Handler *handlers.BlogHandler
	Tokens  *auth.TokenIssuer
}

func NewBlogModule(h *handlers.BlogHandler, tokens *auth.TokenIssuer) *BlogModule {
	return &BlogModule{Handler: h, Tokens: tokens}
}

func (m *BlogModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	rg.GET("/blogs", m.Handler.List)
	rg.GET("/blogs/search", m.Handler.Search)
	rg.GET("/blogs/:blogId", m.Handler.Get)

	authd := rg.Group("/blogs")
	authd.Use(middleware.Auth(m.Tokens))
	authd.Use(middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByUserID()))
	{
		authd.POST("", m.Handler.Create)
		authd.DELETE("/:blogId", m.Handler.Delete)
	}
}
