package router

import (
	"github.com/quillside/quillside-api/internal/application"
	"github.com/quillside/quillside-api/internal/container"
	pginfra "github.com/quillside/quillside-api/internal/infrastructure/postgres"
	handlers "github.com/quillside/quillside-api/internal/interface/http"
	"github.com/quillside/quillside-api/internal/router/modules"
)

// InitModules builds services, handlers and feature modules from the
// container singletons and registers them with the router registry. Called
// once during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()

	userRepo := pginfra.NewUserRepository(container.GetPGPool())
	blogRepo := pginfra.NewBlogRepository(container.GetPGPool())

	blogSvc := application.NewBlogService(
		blogRepo,
		container.GetLogger(),
		container.GetGCS(),
		cfg.GCSBucket,
		container.GetES(),
		cfg.ESBlogsIndex,
	)
	accountSvc := application.NewAccountService(
		userRepo,
		container.GetTokens(),
		container.GetRabbitPub(),
		container.GetLogger(),
		cfg,
		container.GetGCS(),
		cfg.GCSBucket,
	)

	accountHandler := handlers.NewAccountHandler(accountSvc, blogSvc, container.GetLogger())
	blogHandler := handlers.NewBlogHandler(blogSvc, container.GetLogger())

	r.Add(modules.NewAccountModule(accountHandler, container.GetTokens()))
	r.Add(modules.NewBlogModule(blogHandler, container.GetTokens()))
}
