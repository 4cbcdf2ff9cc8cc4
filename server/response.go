package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/milk9111/tilecanvas/session"
	"github.com/milk9111/tilecanvas/tilemap"
)

const (
	CodeSuccess  = 0
	CodeInvalid  = 4000
	CodeNotFound = 4004
	CodeInternal = 5000
)

// Response is the envelope of every JSON reply.
type Response struct {
	Code      int    `json:"code"`
	Msg       string `json:"msg"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Msg: "success", Data: data, Timestamp: time.Now().Unix()})
}

func fail(c *gin.Context, status, code int, msg string) {
	c.AbortWithStatusJSON(status, Response{Code: code, Msg: msg, Timestamp: time.Now().Unix()})
}

// failErr maps err onto a status: validation problems are the caller's
// fault, everything else is ours.
func failErr(c *gin.Context, err error) {
	switch {
	case session.IsValidation(err),
		errors.Is(err, tilemap.ErrInvalidDocument),
		errors.Is(err, tilemap.ErrDenseUnbounded):
		fail(c, http.StatusBadRequest, CodeInvalid, err.Error())
	default:
		fail(c, http.StatusInternalServerError, CodeInternal, err.Error())
	}
}

func badRequest(c *gin.Context, err error) {
	fail(c, http.StatusBadRequest, CodeInvalid, err.Error())
}
