package errno

import "errors"

// code=0 请求成功
// code=4xx 客户端请求错误
// code=5xx 服务器端错误
// code=2xxxx 业务处理错误码

type Errno struct {
	Code    int
	Message string
}

// Error 实现error接口
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrInvalidParam = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrUnauthorized = &Errno{Code: 401, Message: "Unauthorized"}
	ErrNotFound     = &Errno{Code: 404, Message: "Not found"}
	ErrTooManyReqs  = &Errno{Code: 429, Message: "Too many requests"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrDatabase       = &Errno{Code: 501, Message: "Database error"}
	ErrUnknown        = &Errno{Code: 510, Message: "Unknown error"}

	// 业务错误码
	ErrValidation        = &Errno{Code: 20001, Message: "Request validation failed"}
	ErrURLRequired       = &Errno{Code: 20002, Message: "Source URL is required"}
	ErrUnsupportedURL    = &Errno{Code: 20003, Message: "Source URL is not a supported video reference"}
	ErrQualityInvalid    = &Errno{Code: 20004, Message: "Quality must be one of 128, 192, 320"}
	ErrJobNotFound       = &Errno{Code: 20005, Message: "Conversion job not found"}
	ErrJobNotCompleted   = &Errno{Code: 20006, Message: "Conversion job has not completed"}
	ErrOutputMissing     = &Errno{Code: 20007, Message: "Output file is missing from storage"}
	ErrInvalidTransition = &Errno{Code: 20008, Message: "Invalid job status transition"}
	ErrQueueFull         = &Errno{Code: 20009, Message: "Conversion queue is full"}

	// 转换流水线错误码（写入任务的error_message，不向轮询方抛出）
	ErrInvalidSource       = &Errno{Code: 20101, Message: "Source cannot be resolved to a playable video"}
	ErrUpstreamUnavailable = &Errno{Code: 20102, Message: "Upstream media source is unreachable"}
	ErrNoSuitableFormat    = &Errno{Code: 20103, Message: "No audio-only format is available"}
	ErrStorageFailure      = &Errno{Code: 20104, Message: "Failed to write output to storage"}
)

// pipelineKinds 流水线错误按声明顺序匹配
var pipelineKinds = []*Errno{
	ErrInvalidSource,
	ErrUpstreamUnavailable,
	ErrNoSuitableFormat,
	ErrStorageFailure,
}

// Classify 将流水线错误归类到已知错误码，未识别的一律按存储类错误处理，
// 保证任务总能落入终态。
func Classify(err error) *Errno {
	for _, kind := range pipelineKinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrStorageFailure
}
