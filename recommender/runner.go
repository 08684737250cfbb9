package recommender

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// Runner 执行外部命令并返回合并后的 stdout+stderr 和退出码
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (output []byte, exitCode int, err error)
}

// ExecRunner 使用 os/exec 运行命令。非零退出码不视为错误，由调用方根据输出判断。
type ExecRunner struct {
	// WaitDelay 进程被终止后等待其输出管道关闭的时间
	WaitDelay time.Duration
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8")
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 5 * time.Second
	}

	out, err := cmd.CombinedOutput()
	if err == nil {
		return out, 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return out, exitErr.ExitCode(), nil
	}
	return out, -1, err
}
