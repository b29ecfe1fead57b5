package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/keh4l/outlook-mail-manager/internal/store"
)

func (s *Server) listAccounts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(s.pageSize)))
	search := c.Query("search")

	accounts, total, err := s.accounts.List(page, pageSize, search)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"accounts": accounts, "total": total, "page": page, "page_size": pageSize})
}

func (s *Server) getAccount(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	account, err := s.accounts.GetByID(id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, account)
}

type createAccountRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password"`
	ClientID     string `json:"client_id" binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (s *Server) createAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	account, err := s.accounts.Create(req.Email, req.Password, req.ClientID, req.RefreshToken)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, account)
}

type updateAccountRequest struct {
	Email        *string `json:"email"`
	Password     *string `json:"password"`
	ClientID     *string `json:"client_id"`
	RefreshToken *string `json:"refresh_token"`
	Remark       *string `json:"remark"`
	Status       *string `json:"status"`
}

func (s *Server) updateAccount(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	account, err := s.accounts.Update(id, store.AccountUpdate{
		Email:        req.Email,
		Password:     req.Password,
		ClientID:     req.ClientID,
		RefreshToken: req.RefreshToken,
		Remark:       req.Remark,
		Status:       req.Status,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, account)
}

func (s *Server) deleteAccount(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	deleted, err := s.accounts.Delete(id)
	if err != nil {
		failErr(c, err)
		return
	}
	if !deleted {
		fail(c, http.StatusNotFound, "account not found")
		return
	}
	ok(c, gin.H{"deleted": true})
}

type batchDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1"`
}

func (s *Server) batchDeleteAccounts(c *gin.Context) {
	var req batchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	n, err := s.accounts.BatchDelete(req.IDs)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"deleted": n})
}

type importAccountsRequest struct {
	Content   string   `json:"content" binding:"required"`
	Separator string   `json:"separator"`
	Format    []string `json:"format"`
	Overwrite bool     `json:"overwrite"`
}

func (s *Server) importAccounts(c *gin.Context) {
	var req importAccountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.accounts.Import(req.Content, req.Separator, req.Format, req.Overwrite)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, result)
}

type exportAccountsRequest struct {
	IDs       []int64  `json:"ids"`
	Separator string   `json:"separator"`
	Format    []string `json:"format"`
}

func (s *Server) exportAccounts(c *gin.Context) {
	var req exportAccountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	content, err := s.accounts.Export(req.IDs, req.Separator, req.Format)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"content": content})
}
