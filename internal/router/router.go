package router

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/pagecart/internal/handler"
	"github.com/pagecart/internal/metrics"
)

const sessionName = "pagecart_session"

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), metrics.Instrument())

	// 配置会话中间件，访客 ID 与后台登录共用同一个 cookie 会话
	secret := strings.TrimSpace(sessionSecret)
	if secret == "" {
		secret = "pagecart-dev-secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.SetHTMLTemplate(handler.Templates())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/healthz", api.HealthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 公开页面
	r.GET("/p/:slug", api.ShowPage)
	r.GET("/api/pages/:slug", api.GetPageTree)

	// 下单流程
	flow := r.Group("/api/checkout/:slug/:sectionID")
	{
		flow.POST("/start", api.StartCheckout)
		flow.POST("/variant", api.SelectCheckoutVariant)
		flow.POST("/fields", api.UpdateCheckoutFields)
		flow.POST("/submit", api.Limiter().Middleware(), api.SubmitCheckout)
		flow.GET("/state", api.GetCheckoutState)
		flow.DELETE("", api.LeaveCheckout)
	}

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.POST("/login", api.Login)
		admin.GET("/logout", api.Logout)

		// 需要认证的后台路由
		auth := admin.Group("/api")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("/me", api.Me)
			auth.GET("/schema", api.GetSchema)

			auth.GET("/pages", api.ListPages)
			auth.POST("/pages", api.CreatePage)
			auth.GET("/pages/:id", api.GetPage)
			auth.PUT("/pages/:id", api.UpdatePage)
			auth.DELETE("/pages/:id", api.DeletePage)
			auth.GET("/pages/:id/preview", api.PreviewPage)

			auth.POST("/pages/:id/sections", api.AddSection)
			auth.PATCH("/pages/:id/sections/:sid", api.UpdateSection)
			auth.DELETE("/pages/:id/sections/:sid", api.DeleteSection)
			auth.POST("/pages/:id/sections/:sid/move", api.MoveSection)
			auth.POST("/pages/:id/sections/:sid/duplicate", api.DuplicateSection)

			auth.GET("/catalog/variants", api.ListVariants)
			auth.POST("/seed", api.ImportSeed)

			auth.POST("/orders/quote", api.QuoteOrder)
			auth.POST("/orders", api.CreateManualOrder)
			auth.GET("/orders", api.ListOrders)
			auth.GET("/orders/:id", api.GetOrder)
			auth.GET("/drafts", api.ListDrafts)
			auth.GET("/courier/:phone", api.CourierLookup)
		}
	}

	return r
}
