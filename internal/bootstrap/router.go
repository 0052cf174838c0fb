package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	httpapi "github.com/devin-clone/core-backend/internal/api/http"
	"github.com/devin-clone/core-backend/internal/api/http/middleware"
	"github.com/devin-clone/core-backend/internal/auth"
	authhttp "github.com/devin-clone/core-backend/internal/auth/http"
	"github.com/devin-clone/core-backend/internal/billing"
	chathttp "github.com/devin-clone/core-backend/internal/chat/http"
	chatrepo "github.com/devin-clone/core-backend/internal/chat/repository"
	chatsvc "github.com/devin-clone/core-backend/internal/chat/service"
	fileshttp "github.com/devin-clone/core-backend/internal/files/http"
	filesrepo "github.com/devin-clone/core-backend/internal/files/repository"
	filesvc "github.com/devin-clone/core-backend/internal/files/service"
	"github.com/devin-clone/core-backend/internal/projects"
	"github.com/devin-clone/core-backend/internal/users"

	"github.com/devin-clone/core-backend/config"
)

type RouterDeps struct {
	Cfg      *config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Provider chatsvc.Completer
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	corsCfg := cors.DefaultConfig()
	if len(dep.Cfg.Server.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = dep.Cfg.Server.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Request-Id")
	corsCfg.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsCfg))

	healthHandler := httpapi.NewHealthHandler("core-backend", dep.Cfg.App.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	userRepo := users.NewRepo(dep.DB)
	projectRepo := projects.NewRepo(dep.DB)
	projectCache := projects.NewCache(dep.Redis)
	fileStore := filesrepo.NewRepo(dep.DB)
	quota := filesvc.NewEnforcer(fileStore)
	tree := filesvc.NewTree(fileStore, quota)
	chatRepo := chatrepo.NewRepo(dep.DB)
	relay := chatsvc.NewRelay(chatRepo, tree, userRepo, dep.Provider)
	billingRepo := billing.NewRepo(dep.DB)
	billingProc := billing.NewProcessor(billingRepo, userRepo)

	api := r.Group("/api/v1")

	authhttp.Register(api.Group("/auth"), dep.Cfg.Auth, userRepo)
	billing.RegisterWebhook(api.Group("/billing"), billingProc, dep.Cfg.Billing.WebhookSecret)

	authed := api.Group("")
	authed.Use(auth.RequireUser(dep.Cfg.Auth.Secret, userRepo))

	projectsGroup := authed.Group("/projects")
	projects.Register(projectsGroup, projectRepo, projectCache)
	fileshttp.RegisterProjectSubroutes(projectsGroup, tree, quota, projectRepo)

	chatGroup := authed.Group("/projects")
	chatGroup.Use(middleware.RateLimit(rate.Every(2*time.Second), 5))
	chathttp.RegisterProjectSubroutes(chatGroup, chatRepo, relay, projectRepo)

	billing.Register(authed.Group("/billing"), billingRepo, userRepo)

	return r
}
