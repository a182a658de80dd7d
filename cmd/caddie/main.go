// Package main 是 Trade Caddie 终端聊天客户端。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"trade-caddie/internal/config"
	"trade-caddie/internal/consumer"
	"trade-caddie/internal/routine"
	"trade-caddie/internal/tui"
	"trade-caddie/pkg/log"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "caddie:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("caddie", pflag.ContinueOnError)
	configPath := flags.String("config", "./configs/config.yaml", "配置文件路径")
	flags.String("relay-url", "", "中继端点地址")
	flags.String("routine", "", "会话预设: "+strings.Join(routine.Names(), ", "))
	flags.String("session", "", "会话 ID，默认随机生成")
	if err := flags.Parse(args); err != nil {
		return err
	}

	v := config.New()
	for key, name := range map[string]string{
		"client.relay_url": "relay-url",
		"client.routine":   "routine",
		"client.session":   "session",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}
	cfg, err := config.LoadWith(v, *configPath)
	if err != nil {
		return err
	}

	// 终端被界面占用，日志只写文件
	log.InitFileOnly(cfg.Log.Level, cfg.Client.LogPath)
	defer log.Sync()

	preset, ok := routine.Lookup(cfg.Client.Routine)
	if !ok {
		return fmt.Errorf("未知的会话预设 %q，可选: %s", cfg.Client.Routine, strings.Join(routine.Names(), ", "))
	}
	persona := cfg.Client.Persona
	if persona == "" {
		persona = preset.Persona
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observer, updates := tui.SnapshotChannel(256)
	c := consumer.New(consumer.NewRelayClient(cfg.Client.RelayURL), consumer.WithObserver(observer))
	m := tui.New(ctx, c, updates, tui.Options{
		Persona:   persona,
		Title:     preset.Name,
		SessionID: cfg.Client.Session,
		Seed:      consumer.Seed{Greeting: preset.Greeting, Prompts: preset.Prompts()},
	})

	log.Infow("caddie started", "relay_url", cfg.Client.RelayURL, "routine", preset.Name)
	return tui.Run(ctx, m)
}
