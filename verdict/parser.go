// Package verdict turns the raw text printed by the judger into a model.Verdict.
package verdict

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/to404hanga/online_judge_pipeline/model"
)

var ErrMalformedVerdict = errors.New("malformed judger output")

const (
	compileErrorMarker = "CompileError("
	maxSnippetLen      = 256
)

var (
	compileErrorPattern = regexp.MustCompile(`(?s)CompileError\(\s*(?:"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')\s*\)`)
	// 去掉绝对路径前缀, 只保留文件名 (及其后的 :行:列)
	pathPrefixPattern = regexp.MustCompile("(^|[\\s\"'(`])(?:[A-Za-z]:)?(?:[/\\\\][^\\s/\\\\:\"'()<>`]+)*[/\\\\]([^\\s/\\\\:\"'()<>`]+)")
	maxTimePattern    = regexp.MustCompile(`(?i)max\s*time\s*:\s*([0-9]+(?:\.[0-9]+)?)\s*(ms|s)\b`)
	maxMemoryPattern  = regexp.MustCompile(`(?i)max\s*memory\s*:\s*([0-9]+)\s*bytes?`)
)

var statusKeywords = func() map[string]model.SubmissionStatus {
	m := make(map[string]model.SubmissionStatus, len(model.TerminalStatuses))
	for _, s := range model.TerminalStatuses {
		m[normalizeKeyword(string(s))] = s
	}
	return m
}()

// Parse converts judger output into a verdict. The returned verdict is always
// usable: when the output is malformed the missing fields default to zero,
// SystemError is reported if no status can be found, and the error wraps
// ErrMalformedVerdict.
func Parse(output string) (model.Verdict, error) {
	if strings.Contains(output, compileErrorMarker) {
		return parseCompileError(output)
	}
	return parseReport(output)
}

func parseCompileError(output string) (model.Verdict, error) {
	v := model.Verdict{Status: model.SubmissionStatusCompileError}
	if m := compileErrorPattern.FindStringSubmatch(output); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		v.ErrorText = CleanDiagnostic(unescape(raw))
		return v, nil
	}

	// 标记被截断, 尽量取出后面的内容
	rest := output[strings.Index(output, compileErrorMarker)+len(compileErrorMarker):]
	rest = strings.TrimSpace(rest)
	rest = strings.TrimLeft(rest, `"'`)
	rest = strings.TrimRight(rest, `"') `+"\n")
	v.ErrorText = CleanDiagnostic(unescape(rest))
	return v, fmt.Errorf("%w: unterminated compile error marker", ErrMalformedVerdict)
}

func parseReport(output string) (model.Verdict, error) {
	lines := nonBlankLines(output)

	idx := -1
	var v model.Verdict
	for i, line := range lines {
		if s, ok := statusKeywords[normalizeKeyword(line)]; ok {
			v.Status = s
			idx = i
			break
		}
	}
	if idx < 0 {
		v = model.SystemErrorVerdict(fmt.Sprintf("unrecognized judger output: %s", snippet(output)))
		return v, fmt.Errorf("%w: no verdict line", ErrMalformedVerdict)
	}

	var problems []string
	rest := strings.Join(lines[idx+1:], "\n")
	if m := maxTimePattern.FindStringSubmatch(rest); m != nil {
		ms, err := toMillis(m[1], m[2])
		if err != nil {
			problems = append(problems, err.Error())
		} else {
			v.TimeUsed = ms
		}
	} else {
		problems = append(problems, "missing max time")
	}
	if m := maxMemoryPattern.FindStringSubmatch(rest); m != nil {
		b, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("bad max memory %q", m[1]))
		} else {
			v.MemoryUsed = b
		}
	} else {
		problems = append(problems, "missing max memory")
	}

	if v.Status.IsInfraError() {
		v.TimeUsed, v.MemoryUsed = 0, 0
		v.ErrorText = strings.Join(lines[idx+1:], "\n")
		return v, nil
	}
	if len(problems) > 0 {
		return v, fmt.Errorf("%w: %s", ErrMalformedVerdict, strings.Join(problems, ", "))
	}
	return v, nil
}

// CleanDiagnostic strips filesystem path prefixes from compiler output so that
// only the source file name and its line/column remain.
func CleanDiagnostic(s string) string {
	return strings.TrimSpace(pathPrefixPattern.ReplaceAllString(s, "${1}${2}"))
}

func toMillis(value, unit string) (int64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, fmt.Errorf("bad max time %q", value)
	}
	if strings.EqualFold(unit, "s") {
		f *= 1000
	}
	f = math.Round(f)
	if f >= math.MaxInt64 {
		return 0, fmt.Errorf("max time %q out of range", value+unit)
	}
	return int64(f), nil
}

func nonBlankLines(s string) []string {
	raw := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func normalizeKeyword(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '\t', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// unescape handles the escapes a Python or C style string repr may contain.
func unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		if len(s) >= 2 && s[0] == '\\' && (s[1] == '\'' || s[1] == '"') {
			b.WriteByte(s[1])
			s = s[2:]
			continue
		}
		r, multibyte, tail, err := strconv.UnquoteChar(s, 0)
		if err != nil {
			b.WriteByte(s[0])
			s = s[1:]
			continue
		}
		if r < utf8.RuneSelf || !multibyte {
			b.WriteByte(byte(r))
		} else {
			b.WriteRune(r)
		}
		s = tail
	}
	return b.String()
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxSnippetLen {
		return s
	}
	return s[:maxSnippetLen] + "..."
}
