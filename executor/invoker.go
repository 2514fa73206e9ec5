package executor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/to404hanga/online_judge_pipeline/executor/config"
	"github.com/to404hanga/online_judge_pipeline/model"
)

// DefaultTimeout is the wall-clock budget of one judger run.
const DefaultTimeout = 30 * time.Second

const maxStderrLen = 1024

var (
	ErrJudgerUnavailable   = errors.New("judger unavailable")
	ErrJudgerTimeout       = errors.New("judger timed out")
	ErrJudgerFailed        = errors.New("judger failed")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Invoker runs the external judger for one submission and returns its raw stdout.
type Invoker interface {
	Invoke(ctx context.Context, language model.SubmissionLanguage, code string, problemID uint64) (string, error)
}

func languageConfig(language model.SubmissionLanguage) (config.LanguageConfig, error) {
	cfg, ok := config.LanguageConfigs[language]
	if !ok {
		return config.LanguageConfig{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	return cfg, nil
}

// judgerArgv appends the judger's positional arguments to the configured command.
func judgerArgv(command []string, problemID uint64, tag, sourcePath string) []string {
	argv := make([]string, 0, len(command)+3)
	argv = append(argv, command...)
	return append(argv, strconv.FormatUint(problemID, 10), tag, sourcePath)
}

func truncate(s string) string {
	if len(s) <= maxStderrLen {
		return s
	}
	return s[:maxStderrLen] + "..."
}
