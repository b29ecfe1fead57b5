package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keh4l/outlook-mail-manager/internal/store"
	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

func (s *Server) listProxies(c *gin.Context) {
	proxies, err := s.proxies.List()
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, proxies)
}

type createProxyRequest struct {
	Name      string `json:"name" binding:"required"`
	Type      string `json:"type" binding:"required,oneof=socks5 http"`
	Host      string `json:"host" binding:"required"`
	Port      int    `json:"port" binding:"required,min=1,max=65535"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	IsDefault bool   `json:"is_default"`
}

func (s *Server) createProxy(c *gin.Context) {
	var req createProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	proxy, err := s.proxies.Create(&types.Proxy{
		Name:      req.Name,
		Type:      req.Type,
		Host:      req.Host,
		Port:      req.Port,
		Username:  req.Username,
		Password:  req.Password,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, proxy)
}

type updateProxyRequest struct {
	Name      *string `json:"name"`
	Type      *string `json:"type"`
	Host      *string `json:"host"`
	Port      *int    `json:"port"`
	Username  *string `json:"username"`
	Password  *string `json:"password"`
	IsDefault *bool   `json:"is_default"`
}

func (s *Server) updateProxy(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req updateProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	proxy, err := s.proxies.Update(id, store.ProxyUpdate{
		Name:      req.Name,
		Type:      req.Type,
		Host:      req.Host,
		Port:      req.Port,
		Username:  req.Username,
		Password:  req.Password,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, proxy)
}

func (s *Server) deleteProxy(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	deleted, err := s.proxies.Delete(id)
	if err != nil {
		failErr(c, err)
		return
	}
	if !deleted {
		fail(c, http.StatusNotFound, "proxy not found")
		return
	}
	ok(c, gin.H{"deleted": true})
}

func (s *Server) testProxy(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	proxy, err := s.proxies.GetByID(id)
	if err != nil {
		failErr(c, err)
		return
	}

	result := s.gateway.Test(proxy, s.proxyTestURL)
	if err := s.proxies.UpdateTestResult(id, result.IP, result.Status); err != nil {
		s.logger.WithError(err).WithField("proxy_id", id).Warn("Failed to store proxy test result")
	}
	ok(c, result)
}

func (s *Server) setDefaultProxy(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	proxy, err := s.proxies.SetDefault(id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, proxy)
}
