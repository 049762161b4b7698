// Package gitrepo wraps the git command line for the publish step. It
// shells out instead of linking a git library: the pipeline runs where
// a working git (with credentials and remote already configured) is a
// precondition, and the CLI honors that ambient setup for free.
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Repository is a handle on a local working tree. All commands run
// with `git -C dir` so the caller's working directory never matters.
type Repository struct {
	dir string
}

func New(dir string) *Repository {
	return &Repository{dir: dir}
}

func (r *Repository) Dir() string { return r.dir }

func (r *Repository) command(ctx context.Context, args ...string) *exec.Cmd {
	full := append([]string{"-C", r.dir}, args...)
	return exec.CommandContext(ctx, "git", full...)
}

// Run executes a git subcommand and returns its trimmed stdout. Stderr
// is folded into the error so failures carry git's own explanation.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	cmd := r.command(ctx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg != "" {
			return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, msg)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// IsWorkTree reports whether dir is inside a git working tree.
func (r *Repository) IsWorkTree(ctx context.Context) bool {
	out, err := r.Run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// SetIdentity sets the repository-local author identity for the
// publish commit.
func (r *Repository) SetIdentity(ctx context.Context, name, email string) error {
	if _, err := r.Run(ctx, "config", "user.name", name); err != nil {
		return err
	}
	_, err := r.Run(ctx, "config", "user.email", email)
	return err
}

// Add stages exactly the given paths.
func (r *Repository) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	_, err := r.Run(ctx, args...)
	return err
}

// HasStagedChanges reports whether the index differs from HEAD.
func (r *Repository) HasStagedChanges(ctx context.Context) (bool, error) {
	// Exit 0 means no staged changes, 1 means changes, anything else is
	// a real failure.
	cmd := r.command(ctx, "diff", "--cached", "--quiet")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	msg := strings.TrimSpace(stderr.String())
	if msg != "" {
		return false, fmt.Errorf("git diff --cached --quiet: %w: %s", err, msg)
	}
	return false, fmt.Errorf("git diff --cached --quiet: %w", err)
}

// Commit records the staged changes with the given message.
func (r *Repository) Commit(ctx context.Context, message string) error {
	_, err := r.Run(ctx, "commit", "-m", message)
	return err
}

// Push publishes the current branch to its configured upstream.
func (r *Repository) Push(ctx context.Context) error {
	_, err := r.Run(ctx, "push")
	return err
}
