// Package main 是中继端点服务的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"trade-caddie/internal/config"
	"trade-caddie/internal/handler"
	"trade-caddie/internal/middleware"
	"trade-caddie/internal/service"
	"trade-caddie/pkg/database"
	"trade-caddie/pkg/kafka"
	"trade-caddie/pkg/kvstore"
	"trade-caddie/pkg/log"
	"trade-caddie/pkg/upstream"
)

func main() {
	configPath := pflag.String("config", "./configs/config.yaml", "配置文件路径")
	pflag.Parse()

	// 1. 初始化配置
	config.Init(*configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Infow("日志记录器初始化成功", "upstream", cfg.Upstream.URL)

	// 3. 初始化可选的回复缓存与事件发布
	var opts []service.Option
	store, closeStore, err := newReplyCache(cfg)
	if err != nil {
		log.Fatal("回复缓存初始化失败", err)
	}
	defer closeStore()
	if store != nil {
		opts = append(opts, service.WithCache(store, cfg.Cache.TTL))
	}

	if cfg.Kafka.Enabled {
		publisher := kafka.NewPublisher(cfg.Kafka)
		defer publisher.Close()
		opts = append(opts, service.WithEvents(publisher))
		log.Infof("中继事件将发布到 Kafka topic %s", cfg.Kafka.Topic)
	}

	// 4. 初始化 Service (依赖注入)
	upstreamClient := upstream.NewClient(cfg.Upstream)
	relayService := service.NewRelayService(upstreamClient, opts...)

	// 5. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestID(), middleware.RequestLogger(), gin.Recovery())

	// 6. 注册路由
	handler.RegisterRoutes(r, handler.NewChatHandler(relayService))

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP 服务器关闭失败", err)
		return
	}
	log.Info("服务已优雅关闭")
}

// newReplyCache 按配置创建回复缓存，未启用时返回 nil。
func newReplyCache(cfg config.Config) (kvstore.Store, func(), error) {
	noop := func() {}
	if !cfg.Cache.Enabled {
		return nil, noop, nil
	}

	switch cfg.Cache.Backend {
	case "memory":
		log.Info("回复缓存使用进程内存")
		return kvstore.NewMemoryStore(), noop, nil
	case "", "redis":
		client, err := database.NewRedis(context.Background(), cfg.Database.Redis)
		if err != nil {
			return nil, noop, err
		}
		log.Infof("回复缓存使用 Redis %s", cfg.Database.Redis.Addr)
		return kvstore.NewRedisStore(client, cfg.Cache.Prefix), func() { _ = client.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("未知的缓存后端: %s", cfg.Cache.Backend)
	}
}
