package bootstrap

import (
	httpapi "github.com/aquainfra/mitgcm-ogc-backend/internal/api/http"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/api/http/middleware"
	ogchttp "github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/http"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/results"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	APIKey      string
	Redis       *redis.Client
	DB          *pgxpool.Pool
	Processes   *ogchttp.Handler
	// Downloads, when non-nil, is served under /downloads.
	Downloads *results.LocalStore
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())
	r.Use(middleware.RequestID())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Redis, dep.DB)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/")
	dep.Processes.Register(api)

	admin := r.Group("/")
	admin.Use(middleware.APIKey(dep.APIKey))
	dep.Processes.RegisterAdmin(admin)

	if dep.Downloads != nil {
		r.Static("/downloads", dep.Downloads.Dir())
	}

	return r
}
