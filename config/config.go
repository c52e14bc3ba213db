package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	OAuth     OAuthConfig     `mapstructure:"oauth"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, postgres, sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	Path         string `mapstructure:"path"` // sqlite 文件路径
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type DiscordConfig struct {
	Token          string `mapstructure:"token"`
	ApplicationID  string `mapstructure:"application_id"`
	GuildID        string `mapstructure:"guild_id"`
	PremiumRoleID  string `mapstructure:"premium_role_id"`
	ErrorChannelID string `mapstructure:"error_channel_id"` // 运维频道：异常报告
	StaffChannelID string `mapstructure:"staff_channel_id"` // 管理频道：订阅事件通知
	InviteURL      string `mapstructure:"invite_url"`
	Presence       string `mapstructure:"presence"`
}

type OAuthConfig struct {
	Discord DiscordOAuthConfig `mapstructure:"discord"`
}

type DiscordOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type AdminConfig struct {
	UserIDs []string `mapstructure:"user_ids"`
}

type ReconcileConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

type QueueConfig struct {
	ReportQueue  string `mapstructure:"report_queue"`
	EventChannel string `mapstructure:"event_channel"`
	MaxWorkers   int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// IsAdmin 判断用户是否在管理员白名单中
func (c *AdminConfig) IsAdmin(userID string) bool {
	for _, id := range c.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func Load(configPath string) (*Config, error) {
	// .env 可选，主要用于存放 bot token 等密钥
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("reconcile.interval_minutes", 30)
	v.SetDefault("queue.report_queue", "report_queue")
	v.SetDefault("queue.event_channel", "premium_events")
	v.SetDefault("queue.max_workers", 1)
	v.SetDefault("discord.presence", "/subscribe")
	v.SetDefault("jwt.expire_hours", 24)

	// 环境变量覆盖，例如 DISCORD_TOKEN
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
