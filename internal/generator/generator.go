// Package generator is the built-in artifact generator: fetch every
// configured source, harvest nodes, dedupe, keep the reachable ones
// sorted by latency, and write the two output files under the
// repository root.
package generator

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"

	"github.com/airfreed/proxypipe-go/internal/check"
	"github.com/airfreed/proxypipe-go/internal/config"
	"github.com/airfreed/proxypipe-go/internal/fetch"
	"github.com/airfreed/proxypipe-go/internal/model"
	"github.com/airfreed/proxypipe-go/internal/render"
	"github.com/airfreed/proxypipe-go/internal/sub"
)

type GenerateError struct {
	AppError model.AppError
	Cause    error
}

func (e *GenerateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *GenerateError) Unwrap() error { return e.Cause }

func genErr(code, message string) error {
	return &GenerateError{AppError: model.AppError{
		Code:    code,
		Message: message,
		Stage:   "generate",
	}}
}

// Summary reports what a run produced, for logging and tests.
type Summary struct {
	SourcesFetched int
	Parsed         int
	Skipped        int
	Unique         int
	Alive          int
	Written        int
}

type Generator struct {
	cfg  *config.Config
	root string // repository root; output paths are joined onto it
}

func New(cfg *config.Config, root string) *Generator {
	return &Generator{cfg: cfg, root: root}
}

// Run executes the whole harvest and writes both artifacts. A source
// that fails to fetch is skipped; a run where every source fails, or
// where nothing parses or nothing is reachable, is an error so the
// pipeline never publishes an empty list.
func (g *Generator) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{}

	texts := fetch.FetchSources(ctx, g.cfg.Sources, fetch.Options{Timeout: g.cfg.FetchTimeout})
	sum.SourcesFetched = len(texts)
	if len(texts) == 0 {
		return sum, genErr("NO_SOURCE_CONTENT", "所有订阅源都抓取失败")
	}

	var all []model.Proxy
	for _, st := range texts {
		proxies, skipped := sub.ParseSourceText(st.URL, st.Text)
		sum.Parsed += len(proxies)
		sum.Skipped += skipped
		log.Printf("解析订阅源 %s：%d 个节点，跳过 %d 行", st.URL, len(proxies), skipped)
		all = append(all, proxies...)
	}
	if len(all) == 0 {
		return sum, genErr("NO_PROXIES", "没有解析出任何节点")
	}

	unique := dedupe(all, g.cfg.DedupeTrojanByPassword)
	sum.Unique = len(unique)
	log.Printf("去重后剩余 %d 个节点（原始 %d 个）", len(unique), len(all))

	alive := check.Reachable(ctx, unique, check.Options{
		Timeout:       g.cfg.CheckTimeout,
		MaxConcurrent: g.cfg.MaxConcurrentChecks,
	})
	sum.Alive = len(alive)
	if len(alive) == 0 {
		return sum, genErr("NO_ALIVE_PROXIES", "没有可达的节点")
	}

	sort.SliceStable(alive, func(i, j int) bool {
		return alive[i].LatencyMS < alive[j].LatencyMS
	})
	if g.cfg.TopN > 0 && len(alive) > g.cfg.TopN {
		alive = alive[:g.cfg.TopN]
	}
	sum.Written = len(alive)

	plainPath := filepath.Join(g.root, g.cfg.Output.PlainPath())
	clashPath := filepath.Join(g.root, g.cfg.Output.ClashPath())
	if err := render.WritePlainText(plainPath, alive); err != nil {
		return sum, err
	}
	if err := render.WriteClashConfig(clashPath, alive); err != nil {
		return sum, err
	}
	log.Printf("已写出 %d 个节点：%s，%s", len(alive), plainPath, clashPath)
	return sum, nil
}

// dedupe keeps the first occurrence of each identity key, preserving
// input order.
func dedupe(proxies []model.Proxy, trojanByPassword bool) []model.Proxy {
	seen := make(map[string]struct{}, len(proxies))
	out := make([]model.Proxy, 0, len(proxies))
	for _, p := range proxies {
		k := p.Key(trojanByPassword)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
