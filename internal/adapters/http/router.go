package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/fluxsocial/voicerelay/internal/adapters/signal"
	"github.com/fluxsocial/voicerelay/internal/app/orch"
	"github.com/fluxsocial/voicerelay/internal/config"
	"github.com/fluxsocial/voicerelay/internal/domain"
)

// IdentityMiddleware resolves the authenticated user id for the
// connection. The id arrives as a connection-establishment parameter
// (query param, as the upstream auth layer passes it) and is pinned in
// the cookie session; anonymous connections get a generated id.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		raw := c.Query("userId")
		if raw == "" {
			if v, ok := sess.Get("user_id").(string); ok {
				raw = v
			}
		}
		uid, err := domain.ParseUserID(raw)
		if err != nil {
			uid = domain.UserID(uuid.NewString())
		}
		if stored, ok := sess.Get("user_id").(string); !ok || stored != string(uid) {
			sess.Set("user_id", string(uid))
			_ = sess.Save()
		}
		c.Set("user_id", string(uid))
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, reg *prometheus.Registry) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("VoiceRelaySessions", store))
	r.Use(IdentityMiddleware())

	if cfg.MetricsEnabled && reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	ctl := signal.NewController(o, cfg)

	api := r.Group("/api")
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("user", c.GetString("user_id")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})
	api.GET("/presence", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.Sessions.Snapshot()})
	})

	return r
}
