package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/shlex"
	"github.com/to404hanga/online_judge_pipeline/model"
	"github.com/to404hanga/pkg404/logger"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

// ProcessInvoker runs the judger as a local child process. Every run gets its
// own temporary workspace which is removed when Invoke returns.
type ProcessInvoker struct {
	log     loggerv2.Logger
	command []string
	workDir string // 临时目录的父目录, 为空时使用系统临时目录
	timeout time.Duration
}

var _ Invoker = (*ProcessInvoker)(nil)

func NewProcessInvoker(log loggerv2.Logger, commandLine, workDir string, timeout time.Duration) (*ProcessInvoker, error) {
	command, err := shlex.Split(commandLine)
	if err != nil {
		return nil, fmt.Errorf("parse judger command failed: %w", err)
	}
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: empty judger command", ErrJudgerUnavailable)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ProcessInvoker{
		log:     log,
		command: command,
		workDir: workDir,
		timeout: timeout,
	}, nil
}

func (p *ProcessInvoker) Invoke(ctx context.Context, language model.SubmissionLanguage, code string, problemID uint64) (string, error) {
	cfg, err := languageConfig(language)
	if err != nil {
		return "", err
	}

	bin, err := exec.LookPath(p.command[0])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrJudgerUnavailable, err)
	}

	workspace, err := os.MkdirTemp(p.workDir, "oj-submission-*")
	if err != nil {
		return "", fmt.Errorf("create workspace failed: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			p.log.WarnContext(ctx, "remove workspace failed", logger.String("workspace", workspace), logger.Error(err))
		}
	}()

	sourcePath := filepath.Join(workspace, cfg.SourceFileName)
	if err = os.WriteFile(sourcePath, []byte(code), 0o644); err != nil {
		return "", fmt.Errorf("write source failed: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	argv := judgerArgv(p.command, problemID, cfg.Tag, sourcePath)
	cmd := exec.CommandContext(runCtx, bin, argv[1:]...)
	cmd.Dir = workspace
	cmd.WaitDelay = time.Second // 子进程持有管道时不无限等待
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	startAt := time.Now()
	err = cmd.Run()
	p.log.DebugContext(ctx, "judger finished",
		logger.String("workspace", workspace),
		logger.Any("elapsed", time.Since(startAt).String()))

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w after %s", ErrJudgerTimeout, p.timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: exit code %d: %s", ErrJudgerFailed, exitErr.ExitCode(), truncate(stderr.String()))
		}
		return "", fmt.Errorf("%w: %v", ErrJudgerUnavailable, err)
	}
	return stdout.String(), nil
}
