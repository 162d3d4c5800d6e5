package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"audio-convert-service/ddd/application/app"
	"audio-convert-service/ddd/application/cqe"
	"audio-convert-service/pkg/errno"
	"audio-convert-service/pkg/restapi"
)

// ConvertController 转换任务控制器
type ConvertController struct {
	convertApp app.ConvertApp
}

// NewConvertController 创建转换任务控制器
func NewConvertController(convertApp app.ConvertApp) *ConvertController {
	return &ConvertController{
		convertApp: convertApp,
	}
}

// SubmitConversion 提交转换任务
func (c *ConvertController) SubmitConversion(ctx *gin.Context) {
	var req cqe.SubmitConversionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrValidation, err))
		return
	}

	resp, err := c.convertApp.SubmitConversion(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}

// GetConversion 查询转换任务状态
func (c *ConvertController) GetConversion(ctx *gin.Context) {
	jobUUID := ctx.Param("job_id")

	resp, err := c.convertApp.GetConversion(ctx.Request.Context(), jobUUID)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}

// DownloadOutput 下载转换产物
func (c *ConvertController) DownloadOutput(ctx *gin.Context) {
	jobUUID := ctx.Param("job_id")

	_, fileName, stream, size, err := c.convertApp.DownloadOutput(ctx.Request.Context(), jobUUID)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	defer stream.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", fileName),
	}
	ctx.DataFromReader(http.StatusOK, size, "audio/mpeg", stream, extraHeaders)
}

// PreviewMetadata 解析媒体元数据
func (c *ConvertController) PreviewMetadata(ctx *gin.Context) {
	var req cqe.PreviewMetadataReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrValidation, err))
		return
	}

	resp, err := c.convertApp.PreviewMetadata(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}

// ListConversions 按状态列出转换任务
func (c *ConvertController) ListConversions(ctx *gin.Context) {
	req := cqe.ListConversionsReq{
		Status: ctx.Query("status"),
	}

	resp, err := c.convertApp.ListConversions(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}
