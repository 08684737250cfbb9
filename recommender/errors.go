package recommender

import (
	"errors"
	"fmt"
)

// ErrUnparseableOutput 进程输出中找不到合法的 JSON 对象
var ErrUnparseableOutput = errors.New("recommender output is not valid JSON")

// Kind 进程失败的类别
type Kind int

const (
	KindStart       Kind = iota + 1 // 无法启动或等待进程
	KindExit                        // 非零退出且没有可解析的输出
	KindTimeout                     // 超过调用超时
	KindUnparseable                 // 正常退出但输出无法解析
	KindUnavailable                 // 熔断器打开，未调用
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindExit:
		return "exit"
	case KindTimeout:
		return "timeout"
	case KindUnparseable:
		return "unparseable"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ProcessError 推荐进程本身的失败（与进程报告的业务错误区分）
type ProcessError struct {
	Flow     string
	Kind     Kind
	ExitCode int
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Kind == KindExit {
		return fmt.Sprintf("recommender %s: exit code %d: %v", e.Flow, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("recommender %s: %s: %v", e.Flow, e.Kind, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsKind 判断 err 是否为指定类别的 ProcessError
func IsKind(err error, kind Kind) bool {
	var pe *ProcessError
	return errors.As(err, &pe) && pe.Kind == kind
}

// DomainError 进程正常返回但报告了业务错误，例如没有匹配标签的路线图
type DomainError struct {
	Message       string
	AvailableTags []string
}

func (e *DomainError) Error() string {
	return e.Message
}
