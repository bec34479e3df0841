package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/contentgenie/publisher/config"
	"github.com/contentgenie/publisher/internal/adapter"
	"github.com/contentgenie/publisher/internal/model"
	"github.com/contentgenie/publisher/internal/service"
)

// stubAdapter 模拟外部服务：固定延迟 + 可配置失败率
type stubAdapter struct {
	kind     model.ServiceKind
	latency  time.Duration
	failRate float64
}

func (s *stubAdapter) Service() model.ServiceKind { return s.kind }

func (s *stubAdapter) Publish(ctx context.Context, _ model.AccountData, _ adapter.Content) (string, error) {
	select {
	case <-time.After(s.latency):
	case <-ctx.Done():
		return "", adapter.NewError(adapter.KindNetworkError, "stub: %v", ctx.Err())
	}
	if rand.Float64() < s.failRate {
		return "", adapter.NewError(adapter.KindRateLimited, "stub: throttled")
	}
	return fmt.Sprintf("msg-%d", rand.Int63()), nil
}

func main() {
	N := 200
	if s := os.Getenv("N"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { N = v } }
	CONC := 4
	if s := os.Getenv("CONC"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { CONC = v } }
	FAIL := 0.1
	if s := os.Getenv("FAIL"); s != "" { if v, e := strconv.ParseFloat(s, 64); e == nil && v >= 0 { FAIL = v } }

	policy := service.NewDispatchPolicy(config.DispatchConfig{
		MaxParallel:    CONC,
		AttemptTimeout: 5 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 20 * time.Millisecond,
	})
	ad := &stubAdapter{kind: model.ServiceTelegram, latency: 30 * time.Millisecond, failRate: FAIL}
	content := adapter.Content{Text: "bench"}

	ctx := context.Background()
	durs := make([]time.Duration, N)
	var okCnt, failCnt int
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(N)
	start := time.Now()
	for i := 0; i < N; i++ {
		go func(i int) {
			defer wg.Done()
			st := time.Now()
			_, _, err := policy.Execute(ctx, ad, model.AccountData{}, content)
			mu.Lock()
			durs[i] = time.Since(st)
			if err != nil { failCnt++ } else { okCnt++ }
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	total := time.Since(start)

	pct := func(vs []time.Duration, p float64) time.Duration {
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(float64(len(xs)) * p)
		if k >= len(xs) { k = len(xs) - 1 }
		return xs[k]
	}
	var sum time.Duration
	for _, d := range durs { sum += d }
	fmt.Printf("N=%d CONC=%d FAIL=%.2f\n", N, CONC, FAIL)
	fmt.Printf("ok=%d fail=%d total=%v throughput=%.1f/s\n", okCnt, failCnt, total, float64(N)/total.Seconds())
	fmt.Printf("attempt latency: avg=%v p95=%v p99=%v\n", sum/time.Duration(N), pct(durs, 0.95), pct(durs, 0.99))
}
