// Package main 消费中继交换事件并写入结构化日志。
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"trade-caddie/internal/config"
	"trade-caddie/internal/model"
	"trade-caddie/pkg/kafka"
	"trade-caddie/pkg/log"
)

// tally 是消费进程启动以来的累计统计。
type tally struct {
	mu        sync.Mutex
	total     int
	failed    int
	cacheHits int
	byKind    map[string]int
}

func newTally() *tally {
	return &tally{byKind: make(map[string]int)}
}

func (t *tally) record(ctx context.Context, event model.RelayEvent) error {
	t.mu.Lock()
	t.total++
	if event.CacheHit {
		t.cacheHits++
	}
	if event.ErrorKind != "" {
		t.failed++
		t.byKind[event.ErrorKind]++
	}
	total, failed, hits := t.total, t.failed, t.cacheHits
	t.mu.Unlock()

	log.Infow("relay exchange",
		"request_id", event.RequestID,
		"status", event.Status,
		"error_kind", event.ErrorKind,
		"messages", event.MessageCount,
		"cache_hit", event.CacheHit,
		"latency_ms", event.LatencyMs,
		"at", event.Timestamp.String(),
		"total", total,
		"failed", failed,
		"cache_hits", hits,
	)
	return nil
}

func main() {
	configPath := pflag.String("config", "./configs/config.yaml", "配置文件路径")
	pflag.Parse()

	config.Init(*configPath)
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := newTally()
	if err := kafka.Consume(ctx, cfg.Kafka, t.record); err != nil {
		log.Fatal("Kafka 消费失败", err)
	}

	t.mu.Lock()
	log.Infow("审计消费者已退出", "total", t.total, "failed", t.failed, "by_kind", t.byKind)
	t.mu.Unlock()
}
