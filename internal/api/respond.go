package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "ok", "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"code": status, "message": msg})
}

// failErr maps domain errors onto HTTP statuses.
func failErr(c *gin.Context, err error) {
	var nf *types.NotFoundError
	var tee *types.TokenExchangeError
	var agg *types.AggregateError
	switch {
	case errors.As(err, &nf):
		fail(c, http.StatusNotFound, err.Error())
	case errors.As(err, &tee):
		fail(c, http.StatusBadGateway, err.Error())
	case errors.As(err, &agg):
		fail(c, http.StatusBadGateway, err.Error())
	default:
		fail(c, http.StatusInternalServerError, err.Error())
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
