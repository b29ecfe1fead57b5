package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keh4l/outlook-mail-manager/internal/store"
	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

func testServer(t *testing.T) (*Server, *store.AccountStore, *store.MailCache) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	accounts := store.NewAccountStore(db, logger)
	proxies := store.NewProxyStore(db, logger)
	cache := store.NewMailCache(db, logger)

	srv := NewServer(accounts, proxies, cache, nil, nil, prometheus.NewRegistry(), "", 50, logger)
	return srv, accounts, cache
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestFetchMails_RejectsUnknownMailbox(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/mails/fetch",
		`{"account_id": 1, "mailbox": "Drafts"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFetchMails_RejectsMissingAccountID(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/mails/fetch", `{"mailbox": "INBOX"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCachedMails_ServesStoredPage(t *testing.T) {
	srv, accounts, cache := testServer(t)
	router := srv.Router()

	acc, err := accounts.Create("a@outlook.com", "pw", "c", "rt")
	require.NoError(t, err)
	require.NoError(t, cache.Upsert(acc.ID, types.FolderInbox, []types.MailSummary{
		{MailID: "m1", Subject: "hello"},
	}))

	w := doJSON(t, router, http.MethodGet,
		"/api/mails/cached?account_id="+itoa(acc.ID)+"&mailbox=INBOX", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Total int                 `json:"total"`
			Mails []types.MailSummary `json:"mails"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Mails, 1)
	assert.Equal(t, "hello", resp.Data.Mails[0].Subject)
}

func TestCachedMails_RequiresAccountID(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodGet, "/api/mails/cached?mailbox=INBOX", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountsCRUDOverHTTP(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/accounts",
		`{"email": "a@outlook.com", "client_id": "c1", "refresh_token": "rt1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		Data types.Account `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "a@outlook.com", created.Data.Email)

	w = doJSON(t, router, http.MethodGet, "/api/accounts/"+itoa(created.Data.ID), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/accounts/9999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/accounts/"+itoa(created.Data.ID), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAccount_RejectsInvalidEmail(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/accounts",
		`{"email": "not-an-email", "client_id": "c1", "refresh_token": "rt1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
