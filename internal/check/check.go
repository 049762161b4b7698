// Package check measures TCP reachability of harvested nodes. It is a
// liveness filter, not a protocol validator: a node that accepts a TCP
// connection within the timeout passes, everything else is dropped.
package check

import (
	"context"
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/airfreed/proxypipe-go/internal/model"
)

type Options struct {
	Timeout       time.Duration // per-dial; default 5s
	MaxConcurrent int           // dials in flight; default 50
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 50
	}
	return o
}

// Reachable dials every node and returns the ones that answered, with
// LatencyMS filled in. Input order is preserved for the survivors so the
// caller's sort is stable across runs.
func Reachable(ctx context.Context, proxies []model.Proxy, opt Options) []model.Proxy {
	opt = opt.withDefaults()

	sem := semaphore.NewWeighted(int64(opt.MaxConcurrent))
	results := make([]*model.Proxy, len(proxies))

	var wg sync.WaitGroup
	for i, p := range proxies {
		i, p := i, p
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled; whatever finished so far is the answer.
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			latency, err := dialLatency(ctx, p.Server, p.Port, opt.Timeout)
			if err != nil {
				return
			}
			p.LatencyMS = latency
			results[i] = &p
		}()
	}
	wg.Wait()

	out := make([]model.Proxy, 0, len(proxies))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	log.Printf("验证完成：%d/%d 个节点可达", len(out), len(proxies))
	return out
}

func dialLatency(ctx context.Context, server string, port int, timeout time.Duration) (float64, error) {
	d := net.Dialer{Timeout: timeout}
	addr := net.JoinHostPort(server, strconv.Itoa(port))

	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, err
	}
	latency := float64(time.Since(start)) / float64(time.Millisecond)
	_ = conn.Close()

	// Guard against a zero reading on loopback; sorted output treats 0 as
	// "unchecked".
	if latency <= 0 {
		latency = 0.001
	}
	return latency, nil
}
