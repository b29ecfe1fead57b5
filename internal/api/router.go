package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/keh4l/outlook-mail-manager/internal/mail"
	"github.com/keh4l/outlook-mail-manager/internal/proxygw"
	"github.com/keh4l/outlook-mail-manager/internal/store"
)

// Server holds the HTTP handler dependencies.
type Server struct {
	accounts *store.AccountStore
	proxies  *store.ProxyStore
	cache    *store.MailCache
	mail     *mail.Service
	gateway  *proxygw.Gateway

	registry     *prometheus.Registry
	proxyTestURL string
	pageSize     int
	logger       *logrus.Logger
}

// NewServer wires the API layer.
func NewServer(
	accounts *store.AccountStore,
	proxies *store.ProxyStore,
	cache *store.MailCache,
	mailSvc *mail.Service,
	gateway *proxygw.Gateway,
	registry *prometheus.Registry,
	proxyTestURL string,
	pageSize int,
	logger *logrus.Logger,
) *Server {
	return &Server{
		accounts:     accounts,
		proxies:      proxies,
		cache:        cache,
		mail:         mailSvc,
		gateway:      gateway,
		registry:     registry,
		proxyTestURL: proxyTestURL,
		pageSize:     pageSize,
		logger:       logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		accounts := api.Group("/accounts")
		{
			accounts.GET("", s.listAccounts)
			accounts.POST("", s.createAccount)
			accounts.GET("/:id", s.getAccount)
			accounts.PUT("/:id", s.updateAccount)
			accounts.DELETE("/:id", s.deleteAccount)
			accounts.POST("/batch-delete", s.batchDeleteAccounts)
			accounts.POST("/import", s.importAccounts)
			accounts.POST("/export", s.exportAccounts)
		}

		proxies := api.Group("/proxies")
		{
			proxies.GET("", s.listProxies)
			proxies.POST("", s.createProxy)
			proxies.PUT("/:id", s.updateProxy)
			proxies.DELETE("/:id", s.deleteProxy)
			proxies.POST("/:id/test", s.testProxy)
			proxies.POST("/:id/default", s.setDefaultProxy)
		}

		mails := api.Group("/mails")
		{
			mails.POST("/fetch", s.fetchMails)
			mails.POST("/clear", s.clearMailbox)
			mails.GET("/cached", s.cachedMails)
		}

		api.GET("/dashboard/stats", s.dashboardStats)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("Handled request")
	}
}
