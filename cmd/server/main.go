package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pagecart/internal/config"
	"github.com/pagecart/internal/db"
	"github.com/pagecart/internal/handler"
	"github.com/pagecart/internal/logging"
	"github.com/pagecart/internal/router"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	if err := db.EnsureUser(nil, cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure super root user")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := handler.NewAPI(db.DB, cfg)

	// 后台清理闲置的下单流程与限流记录
	go api.Flows().Run(ctx, time.Minute)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := api.Limiter().Cleanup(10 * time.Minute); n > 0 {
					log.Debug().Int("removed", n).Msg("visitor limiter cleanup")
				}
			}
		}
	}()

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, cfg.SessionSecret)
	log.Info().Str("addr", cfg.ListenAddr).Msg("pagecart listening")
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("failed to run server")
	}
}
