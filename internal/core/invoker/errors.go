package invoker

import (
	"errors"
	"fmt"
)

// InvalidRequestMessage 非法能力路径的固定提示
const InvalidRequestMessage = "Invalid type, namespace, or method"

// ErrInvalidRequest 能力路径不存在，未发起任何远程调用
var ErrInvalidRequest = errors.New("invalid type, namespace, or method")

// UpstreamError 历史视图解析或能力调用失败
type UpstreamError struct {
	Op  string // at | invoke
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
