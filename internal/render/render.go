// Package render emits the two published artifacts: the plain-text link
// list and the Clash configuration. Output is assembled line by line
// instead of going through a YAML marshaller: the publish step only
// commits when bytes changed, so rendering must be byte-stable for
// identical input across runs and Go versions.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/airfreed/proxypipe-go/internal/model"
)

type RenderError struct {
	AppError model.AppError
	Cause    error
}

func (e *RenderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &RenderError{
			AppError: model.AppError{
				Code:    "WRITE_FAILED",
				Message: "无法创建输出目录",
				Stage:   "write_output",
				URL:     path,
			},
			Cause: err,
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return &RenderError{
			AppError: model.AppError{
				Code:    "WRITE_FAILED",
				Message: "写入输出文件失败",
				Stage:   "write_output",
				URL:     path,
			},
			Cause: err,
		}
	}
	return nil
}

// RenderPlainText renders the proxies.txt body: one original share link
// per line, trailing newline.
func RenderPlainText(proxies []model.Proxy) string {
	var b strings.Builder
	for _, p := range proxies {
		if p.Raw == "" {
			continue
		}
		b.WriteString(p.Raw)
		b.WriteByte('\n')
	}
	return b.String()
}

// WritePlainText writes proxies.txt at path.
func WritePlainText(path string, proxies []model.Proxy) error {
	return writeFile(path, RenderPlainText(proxies))
}

// WriteClashConfig writes clash_config.yaml at path.
func WriteClashConfig(path string, proxies []model.Proxy) error {
	return writeFile(path, RenderClashConfig(proxies))
}
