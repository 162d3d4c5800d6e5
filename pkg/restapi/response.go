package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"audio-convert-service/pkg/errno"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 返回成功响应
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Failed 返回失败响应，errno错误映射到对应HTTP状态码
func Failed(ctx *gin.Context, err error) {
	var e *errno.Errno
	if !errors.As(err, &e) {
		e = errno.ErrInternalServer
	}

	ctx.JSON(httpStatus(e), Response{
		Code:    e.Code,
		Message: err.Error(),
	})
}

func httpStatus(e *errno.Errno) int {
	switch {
	case e.Code >= 400 && e.Code < 600:
		return e.Code
	case e.Code >= 20001 && e.Code < 20005:
		return http.StatusBadRequest
	case e == errno.ErrJobNotFound || e == errno.ErrOutputMissing:
		return http.StatusNotFound
	case e == errno.ErrJobNotCompleted:
		return http.StatusNotFound
	case e == errno.ErrQueueFull:
		// 背压,不是服务端故障
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
