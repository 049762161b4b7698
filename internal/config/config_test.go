package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_DefaultsApplied(t *testing.T) {
	cfg, err := Parse([]byte("sources:\n  - https://example.com/sub.txt\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/sub.txt"}, cfg.Sources)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 5*time.Second, cfg.CheckTimeout)
	assert.Equal(t, 50, cfg.MaxConcurrentChecks)
	assert.Equal(t, 0, cfg.TopN)
	assert.False(t, cfg.DedupeTrojanByPassword)
	assert.Equal(t, "output/proxies.txt", cfg.Output.PlainPath())
	assert.Equal(t, "output/clash_config.yaml", cfg.Output.ClashPath())
	assert.Empty(t, cfg.Generator.Command)
	assert.Equal(t, 10*time.Minute, cfg.Generator.Timeout)
	assert.Equal(t, "github-actions[bot]", cfg.Git.Name)
	assert.Contains(t, cfg.Git.Message, "[skip ci]")
}

func TestParse_FullDocument(t *testing.T) {
	doc := `
sources:
  - https://example.com/a.txt
  - http://example.org/b
fetch_timeout: 3s
check_timeout: 1s
max_concurrent_checks: 8
top_n: 100
dedupe_trojan_by_password: true
output:
  dir: out
  plain: nodes.txt
  clash: clash.yaml
generator:
  command: ["python3", "main.py"]
  timeout: 2m
git:
  name: bot
  email: bot@example.com
  message: "update [skip ci]"
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Len(t, cfg.Sources, 2)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, time.Second, cfg.CheckTimeout)
	assert.Equal(t, 8, cfg.MaxConcurrentChecks)
	assert.Equal(t, 100, cfg.TopN)
	assert.True(t, cfg.DedupeTrojanByPassword)
	assert.Equal(t, "out/nodes.txt", cfg.Output.PlainPath())
	assert.Equal(t, []string{"python3", "main.py"}, cfg.Generator.Command)
	assert.Equal(t, 2*time.Minute, cfg.Generator.Timeout)
	assert.Equal(t, "bot", cfg.Git.Name)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code string
	}{
		{"no sources", "top_n: 3\n", "CONFIG_VALIDATE_ERROR"},
		{"bad scheme", "sources: [\"ftp://example.com/x\"]\n", "CONFIG_VALIDATE_ERROR"},
		{"bad duration", "sources: [\"https://e.com/x\"]\nfetch_timeout: soon\n", "CONFIG_VALIDATE_ERROR"},
		{"negative duration", "sources: [\"https://e.com/x\"]\ncheck_timeout: -1s\n", "CONFIG_VALIDATE_ERROR"},
		{"zero concurrency", "sources: [\"https://e.com/x\"]\nmax_concurrent_checks: 0\n", "CONFIG_VALIDATE_ERROR"},
		{"negative top_n", "sources: [\"https://e.com/x\"]\ntop_n: -1\n", "CONFIG_VALIDATE_ERROR"},
		{"path in filename", "sources: [\"https://e.com/x\"]\noutput:\n  plain: a/b.txt\n", "CONFIG_VALIDATE_ERROR"},
		{"absolute output dir", "sources: [\"https://e.com/x\"]\noutput:\n  dir: /tmp/out\n", "CONFIG_VALIDATE_ERROR"},
		{"unknown key", "sources: [\"https://e.com/x\"]\nretries: 3\n", "CONFIG_PARSE_ERROR"},
		{"not yaml", ":\n  - [", "CONFIG_PARSE_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "expected *ParseError, got %T: %v", err, err)
			assert.Equal(t, tt.code, pe.AppError.Code)
			assert.Equal(t, "load_config", pe.AppError.Stage)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(t.TempDir() + "/nope.yaml")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "CONFIG_READ_ERROR", pe.AppError.Code)
}
