package cqe

import (
	"audio-convert-service/ddd/domain/vo"
	"audio-convert-service/pkg/errno"
)

// SubmitConversionReq 提交转换任务请求
type SubmitConversionReq struct {
	URL     string `json:"url" binding:"required"`      // 源视频URL
	Quality string `json:"quality" binding:"required"`  // 目标音质 128/192/320
}

func (req *SubmitConversionReq) Validate() error {
	if req.URL == "" {
		return errno.ErrURLRequired
	}
	if !vo.QualityTier(req.Quality).IsValid() {
		return errno.ErrQualityInvalid
	}
	return nil
}

// PreviewMetadataReq 元数据预览请求
type PreviewMetadataReq struct {
	URL string `json:"url" binding:"required"` // 源视频URL
}

func (req *PreviewMetadataReq) Validate() error {
	if req.URL == "" {
		return errno.ErrURLRequired
	}
	return nil
}

// QueryConversionReq 查询转换任务请求
type QueryConversionReq struct {
	JobUUID string `uri:"job_id" binding:"required"`
}

func (req *QueryConversionReq) Validate() error {
	if req.JobUUID == "" {
		return errno.ErrInvalidParam
	}
	return nil
}

// ListConversionsReq 按状态列出转换任务请求
type ListConversionsReq struct {
	Status string `form:"status" binding:"required"`
}

func (req *ListConversionsReq) Validate() error {
	if !vo.JobStatus(req.Status).IsValid() {
		return errno.ErrInvalidParam
	}
	return nil
}
