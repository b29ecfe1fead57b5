package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

type fetchMailsRequest struct {
	AccountID int64  `json:"account_id" binding:"required"`
	Mailbox   string `json:"mailbox"`
	ProxyID   *int64 `json:"proxy_id"`
	Limit     int    `json:"limit"`
}

func (s *Server) fetchMails(c *gin.Context) {
	var req fetchMailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	folder, err := types.ParseFolder(req.Mailbox)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.mail.Fetch(c.Request.Context(), req.AccountID, folder, req.ProxyID, req.Limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, result)
}

type clearMailboxRequest struct {
	AccountID int64  `json:"account_id" binding:"required"`
	Mailbox   string `json:"mailbox"`
	ProxyID   *int64 `json:"proxy_id"`
}

func (s *Server) clearMailbox(c *gin.Context) {
	var req clearMailboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	folder, err := types.ParseFolder(req.Mailbox)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := s.mail.ClearMailbox(c.Request.Context(), req.AccountID, folder, req.ProxyID)
	if err != nil {
		failErr(c, err)
		return
	}
	// The folder is empty remotely now; stale cache rows would resurface on
	// the next degraded read.
	if err := s.cache.Clear(req.AccountID, folder); err != nil {
		s.logger.WithError(err).WithField("account_id", req.AccountID).Warn("Failed to purge mail cache after clear")
	}
	ok(c, stats)
}

func (s *Server) cachedMails(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Query("account_id"), 10, 64)
	if err != nil || accountID <= 0 {
		fail(c, http.StatusBadRequest, "invalid account_id")
		return
	}
	folder, err := types.ParseFolder(c.Query("mailbox"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(s.pageSize)))

	mails, total, err := s.cache.GetPage(accountID, folder, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"mails": mails, "total": total, "page": page, "page_size": pageSize})
}
