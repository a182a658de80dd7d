// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，由 Init 填充。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Client   ClientConfig   `mapstructure:"client"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// UpstreamConfig 描述外部 AI 后端。Timeout 为 0 时沿用传输层默认值。
type UpstreamConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig 控制可选的回复缓存。
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Backend string        `mapstructure:"backend"` // "redis" 或 "memory"
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
}

// DatabaseConfig 存储所有外部存储连接的配置。
type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ClientConfig 是终端客户端的配置。
type ClientConfig struct {
	RelayURL string `mapstructure:"relay_url"`
	Routine  string `mapstructure:"routine"`
	Session  string `mapstructure:"session"`
	Persona  string `mapstructure:"persona"` // 为空时使用预设的名称
	LogPath  string `mapstructure:"log_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("upstream.url", "http://127.0.0.1:5002/api/v1/chat")
	v.SetDefault("upstream.timeout", time.Duration(0))
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.backend", "redis")
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.prefix", "caddie:relay:")
	v.SetDefault("database.redis.addr", "127.0.0.1:6379")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "127.0.0.1:9092")
	v.SetDefault("kafka.topic", "caddie-relay-events")
	v.SetDefault("kafka.group_id", "caddie-auditlog")
	v.SetDefault("client.relay_url", "http://127.0.0.1:8080/api/chat")
	v.SetDefault("client.routine", "market")
}

// New 返回一个已设置默认值和环境变量覆盖规则的 viper 实例。
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 与前端部署保持一致的历史环境变量名
	_ = v.BindEnv("upstream.url", "UPSTREAM_URL", "FLASK_API_URL")
	return v
}

// Load 从 configPath 读取 YAML 配置。文件不存在时只使用默认值与环境变量。
func Load(configPath string) (Config, error) {
	return LoadWith(New(), configPath)
}

// LoadWith 使用调用方提供的 viper 实例（例如已绑定命令行参数）加载配置。
func LoadWith(v *viper.Viper, configPath string) (Config, error) {
	var cfg Config
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if strings.TrimSpace(cfg.Upstream.URL) == "" {
		return cfg, errors.New("upstream.url 不能为空")
	}
	return cfg, nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
