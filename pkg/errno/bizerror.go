package errno

import "fmt"

// BizError 携带原始原因的业务错误,响应层按内嵌错误码渲染
type BizError struct {
	errno *Errno
	cause error
}

// NewBizError 用已知错误码包装底层错误
func NewBizError(code *Errno, cause error) *BizError {
	return &BizError{errno: code, cause: cause}
}

func (e *BizError) Error() string {
	if e.cause == nil {
		return e.errno.Message
	}
	return fmt.Sprintf("%s: %v", e.errno.Message, e.cause)
}

// Unwrap 同时暴露错误码和底层原因,支持errors.Is/As
func (e *BizError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.errno}
	}
	return []error{e.errno, e.cause}
}
