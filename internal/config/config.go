package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/airfreed/proxypipe-go/internal/model"
)

// Config is the fully validated run configuration. Zero values never
// survive Load/Parse: every optional field is defaulted before the
// caller sees it.
type Config struct {
	Sources []string

	FetchTimeout        time.Duration
	CheckTimeout        time.Duration
	MaxConcurrentChecks int

	// TopN caps how many nodes (lowest latency first) reach the output
	// files. 0 means all.
	TopN int

	DedupeTrojanByPassword bool

	Output    Output
	Generator Generator
	Git       Git
}

type Output struct {
	Dir   string
	Plain string
	Clash string
}

// PlainPath/ClashPath join the output directory with the artifact
// filename, relative to the repository root.
func (o Output) PlainPath() string { return filepath.Join(o.Dir, o.Plain) }
func (o Output) ClashPath() string { return filepath.Join(o.Dir, o.Clash) }

// Generator describes the external generator process. An empty Command
// means "run the built-in generator in-process"; a non-empty Command is
// executed argv-style with no extra arguments, per the process contract.
type Generator struct {
	Command []string
	Timeout time.Duration
}

type Git struct {
	Name    string
	Email   string
	Message string
}

type ParseError struct {
	AppError model.AppError
	Cause    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// rawConfig mirrors the YAML document. Durations are strings so the
// config file can say "10s" / "5m"; they are parsed during validation.
type rawConfig struct {
	Sources []string `yaml:"sources"`

	FetchTimeout        string `yaml:"fetch_timeout"`
	CheckTimeout        string `yaml:"check_timeout"`
	MaxConcurrentChecks *int   `yaml:"max_concurrent_checks"`
	TopN                *int   `yaml:"top_n"`

	DedupeTrojanByPassword bool `yaml:"dedupe_trojan_by_password"`

	Output struct {
		Dir   string `yaml:"dir"`
		Plain string `yaml:"plain"`
		Clash string `yaml:"clash"`
	} `yaml:"output"`

	Generator struct {
		Command []string `yaml:"command"`
		Timeout string   `yaml:"timeout"`
	} `yaml:"generator"`

	Git struct {
		Name    string `yaml:"name"`
		Email   string `yaml:"email"`
		Message string `yaml:"message"`
	} `yaml:"git"`
}

// Default returns the configuration used when a key is absent. The
// values mirror the ones the original deployment ran with, including the
// CI bot identity and the [skip ci] commit tag that keeps the published
// commit from re-triggering the pipeline.
func Default() *Config {
	return &Config{
		FetchTimeout:        10 * time.Second,
		CheckTimeout:        5 * time.Second,
		MaxConcurrentChecks: 50,
		TopN:                0,
		Output: Output{
			Dir:   "output",
			Plain: "proxies.txt",
			Clash: "clash_config.yaml",
		},
		Generator: Generator{
			Timeout: 10 * time.Minute,
		},
		Git: Git{
			Name:    "github-actions[bot]",
			Email:   "41898282+github-actions[bot]@users.noreply.github.com",
			Message: "chore: update proxy lists [skip ci]",
		},
	}
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{
			AppError: model.AppError{
				Code:    "CONFIG_READ_ERROR",
				Message: "无法读取配置文件",
				Stage:   "load_config",
				URL:     path,
			},
			Cause: err,
		}
	}
	return Parse(b)
}

// Parse decodes and validates a config document. Unknown keys are
// rejected so that a typo fails the run instead of silently running with
// defaults.
func Parse(b []byte) (*Config, error) {
	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, &ParseError{
			AppError: model.AppError{
				Code:    "CONFIG_PARSE_ERROR",
				Message: "配置文件不是合法 YAML",
				Stage:   "load_config",
			},
			Cause: err,
		}
	}

	cfg := Default()

	if len(raw.Sources) == 0 {
		return nil, validateErr("CONFIG_VALIDATE_ERROR", "sources 不能为空", "at least one http(s) URL", nil)
	}
	for _, s := range raw.Sources {
		u, err := url.Parse(strings.TrimSpace(s))
		if err != nil || u == nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, validateErr("CONFIG_VALIDATE_ERROR", fmt.Sprintf("source 不是合法 http(s) URL：%s", s), "", err)
		}
		cfg.Sources = append(cfg.Sources, strings.TrimSpace(s))
	}

	var err error
	if cfg.FetchTimeout, err = parseDuration(raw.FetchTimeout, cfg.FetchTimeout, "fetch_timeout"); err != nil {
		return nil, err
	}
	if cfg.CheckTimeout, err = parseDuration(raw.CheckTimeout, cfg.CheckTimeout, "check_timeout"); err != nil {
		return nil, err
	}
	if cfg.Generator.Timeout, err = parseDuration(raw.Generator.Timeout, cfg.Generator.Timeout, "generator.timeout"); err != nil {
		return nil, err
	}

	if raw.MaxConcurrentChecks != nil {
		if *raw.MaxConcurrentChecks < 1 {
			return nil, validateErr("CONFIG_VALIDATE_ERROR", "max_concurrent_checks 必须 >= 1", "", nil)
		}
		cfg.MaxConcurrentChecks = *raw.MaxConcurrentChecks
	}
	if raw.TopN != nil {
		if *raw.TopN < 0 {
			return nil, validateErr("CONFIG_VALIDATE_ERROR", "top_n 不能为负数", "0 means all", nil)
		}
		cfg.TopN = *raw.TopN
	}
	cfg.DedupeTrojanByPassword = raw.DedupeTrojanByPassword

	if raw.Output.Dir != "" {
		cfg.Output.Dir = raw.Output.Dir
	}
	if raw.Output.Plain != "" {
		cfg.Output.Plain = raw.Output.Plain
	}
	if raw.Output.Clash != "" {
		cfg.Output.Clash = raw.Output.Clash
	}
	for _, name := range []string{cfg.Output.Plain, cfg.Output.Clash} {
		if name != filepath.Base(name) {
			return nil, validateErr("CONFIG_VALIDATE_ERROR", fmt.Sprintf("output 文件名不能包含路径分隔符：%s", name), "use output.dir for the directory", nil)
		}
	}
	if filepath.IsAbs(cfg.Output.Dir) {
		return nil, validateErr("CONFIG_VALIDATE_ERROR", "output.dir 必须是仓库内的相对路径", "", nil)
	}

	cfg.Generator.Command = raw.Generator.Command
	if len(cfg.Generator.Command) > 0 && strings.TrimSpace(cfg.Generator.Command[0]) == "" {
		return nil, validateErr("CONFIG_VALIDATE_ERROR", "generator.command 第一个元素不能为空", "", nil)
	}

	if raw.Git.Name != "" {
		cfg.Git.Name = raw.Git.Name
	}
	if raw.Git.Email != "" {
		cfg.Git.Email = raw.Git.Email
	}
	if raw.Git.Message != "" {
		cfg.Git.Message = raw.Git.Message
	}

	return cfg, nil
}

func parseDuration(s string, def time.Duration, key string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, validateErr("CONFIG_VALIDATE_ERROR", fmt.Sprintf("%s 不是合法时长：%s", key, s), `example: "10s"`, err)
	}
	if d <= 0 {
		return 0, validateErr("CONFIG_VALIDATE_ERROR", fmt.Sprintf("%s 必须为正时长", key), "", nil)
	}
	return d, nil
}

func validateErr(code, message, hint string, cause error) error {
	return &ParseError{
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   "load_config",
			Hint:    hint,
		},
		Cause: cause,
	}
}
