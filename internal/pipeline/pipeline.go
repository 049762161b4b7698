// Package pipeline runs the update-and-publish sequence: preflight,
// ensure the output directory, regenerate the artifacts, then commit
// and push them when their bytes changed. Every step is fail-fast; a
// run where the artifacts did not change is a successful no-op.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/airfreed/proxypipe-go/internal/config"
	"github.com/airfreed/proxypipe-go/internal/generator"
	"github.com/airfreed/proxypipe-go/internal/gitrepo"
	"github.com/airfreed/proxypipe-go/internal/model"
)

type StepError struct {
	AppError model.AppError
	Cause    error
}

func (e *StepError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *StepError) Unwrap() error { return e.Cause }

func stepErr(code, message, stage string, cause error) error {
	return &StepError{
		AppError: model.AppError{Code: code, Message: message, Stage: stage},
		Cause:    cause,
	}
}

type Pipeline struct {
	cfg     *config.Config
	repoDir string
	repo    *gitrepo.Repository
}

func New(cfg *config.Config, repoDir string) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		repoDir: repoDir,
		repo:    gitrepo.New(repoDir),
	}
}

type step struct {
	name string
	fn   func(context.Context) error
}

// Run executes every step in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := strings.SplitN(uuid.NewString(), "-", 2)[0]
	steps := []step{
		{"preflight", p.preflight},
		{"ensure_output", p.ensureOutput},
		{"generate", p.generate},
		{"publish", p.publish},
	}

	start := time.Now()
	for _, s := range steps {
		stepStart := time.Now()
		log.Printf("[%s] 步骤 %s 开始", runID, s.name)
		if err := s.fn(ctx); err != nil {
			log.Printf("[%s] 步骤 %s 失败（耗时 %s）：%v", runID, s.name, time.Since(stepStart).Round(time.Millisecond), err)
			return err
		}
		log.Printf("[%s] 步骤 %s 完成（耗时 %s）", runID, s.name, time.Since(stepStart).Round(time.Millisecond))
	}
	log.Printf("[%s] 流水线完成（总耗时 %s）", runID, time.Since(start).Round(time.Millisecond))
	return nil
}

// preflight verifies git is installed and repoDir is a working tree
// before anything touches the filesystem.
func (p *Pipeline) preflight(ctx context.Context) error {
	if _, err := exec.LookPath("git"); err != nil {
		return stepErr("GIT_NOT_FOUND", "找不到 git 可执行文件", "preflight", err)
	}
	if !p.repo.IsWorkTree(ctx) {
		return stepErr("NOT_A_REPOSITORY", fmt.Sprintf("目录不是 git 仓库：%s", p.repoDir), "preflight", nil)
	}
	return nil
}

// ensureOutput creates the output directory. Creating an existing
// directory is a no-op, so reruns are safe.
func (p *Pipeline) ensureOutput(ctx context.Context) error {
	dir := filepath.Join(p.repoDir, p.cfg.Output.Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stepErr("ENSURE_OUTPUT_FAILED", fmt.Sprintf("无法创建输出目录：%s", dir), "ensure_output", err)
	}
	return nil
}

// generate produces the artifacts, either by running the configured
// external command or the built-in generator, then verifies both files
// exist. The external process inherits stdout/stderr so its own logs
// land in the pipeline's output.
func (p *Pipeline) generate(ctx context.Context) error {
	if len(p.cfg.Generator.Command) > 0 {
		runCtx, cancel := context.WithTimeout(ctx, p.cfg.Generator.Timeout)
		defer cancel()

		cmd := exec.CommandContext(runCtx, p.cfg.Generator.Command[0], p.cfg.Generator.Command[1:]...)
		cmd.Dir = p.repoDir
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			if runCtx.Err() == context.DeadlineExceeded {
				return stepErr("GENERATOR_TIMEOUT", fmt.Sprintf("生成器超时（%s）", p.cfg.Generator.Timeout), "generate", err)
			}
			return stepErr("GENERATOR_FAILED", "生成器进程退出失败", "generate", err)
		}
	} else {
		if _, err := generator.New(p.cfg, p.repoDir).Run(ctx); err != nil {
			return err
		}
	}

	for _, rel := range []string{p.cfg.Output.PlainPath(), p.cfg.Output.ClashPath()} {
		path := filepath.Join(p.repoDir, rel)
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return stepErr("ARTIFACT_MISSING", fmt.Sprintf("生成器未产出文件：%s", rel), "generate", err)
		}
	}
	return nil
}

// publish stages exactly the two artifacts and commits and pushes when
// the index differs from HEAD. No staged difference means the upstream
// is already current.
func (p *Pipeline) publish(ctx context.Context) error {
	if err := p.repo.SetIdentity(ctx, p.cfg.Git.Name, p.cfg.Git.Email); err != nil {
		return stepErr("GIT_CONFIG_FAILED", "设置提交身份失败", "publish", err)
	}
	if err := p.repo.Add(ctx, p.cfg.Output.PlainPath(), p.cfg.Output.ClashPath()); err != nil {
		return stepErr("GIT_ADD_FAILED", "暂存输出文件失败", "publish", err)
	}

	staged, err := p.repo.HasStagedChanges(ctx)
	if err != nil {
		return stepErr("GIT_ADD_FAILED", "检查暂存区失败", "publish", err)
	}
	if !staged {
		log.Printf("输出无变化，跳过提交")
		return nil
	}

	if err := p.repo.Commit(ctx, p.cfg.Git.Message); err != nil {
		return stepErr("COMMIT_FAILED", "提交失败", "publish", err)
	}
	if err := p.repo.Push(ctx); err != nil {
		return stepErr("PUSH_REJECTED", "推送失败", "publish", err)
	}
	return nil
}
