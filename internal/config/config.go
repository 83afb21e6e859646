package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Agent    AgentConfig
	SMTP     SMTPConfig
	Admin    AdminConfig
	Chat     ChatConfig
	Worker   WorkerConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AgentConfig 外部 Agent 运行时配置
type AgentConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      int
}

// SMTPConfig 邮件发送配置
type SMTPConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	FromEmail      string
	FromName       string
	ConnectTimeout int
	MaxRetries     int
	RetryDelay     int
}

// AdminConfig 管理后台配置
type AdminConfig struct {
	Username     string
	Password     string
	PasswordHash string
	SessionTTL   int // 小时
}

// ChatConfig 聊天编排配置
type ChatConfig struct {
	DefaultBrand    string
	FallbackBrandID uint
	ContextWindow   int
	MinResponseLen  int
	SessionTTL      int // 分钟
	MaxSessions     int
}

// WorkerConfig 后台写任务池配置
type WorkerConfig struct {
	PoolSize  int
	QueueSize int
}

var globalConfig *Config

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("BRANDCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "brandchat")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "brandchat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 20)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Agent
	v.SetDefault("agent.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("agent.defaultModel", "gpt-4.1-nano")
	v.SetDefault("agent.timeout", 60)

	// SMTP
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.fromName", "Chatbot")
	v.SetDefault("smtp.connectTimeout", 15)
	v.SetDefault("smtp.maxRetries", 3)
	v.SetDefault("smtp.retryDelay", 2)

	// Admin
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.sessionTTL", 24)

	// Chat
	v.SetDefault("chat.defaultBrand", "gbpseo")
	v.SetDefault("chat.fallbackBrandID", 1)
	v.SetDefault("chat.contextWindow", 10)
	v.SetDefault("chat.minResponseLen", 10)
	v.SetDefault("chat.sessionTTL", 120)
	v.SetDefault("chat.maxSessions", 10000)

	// Worker
	v.SetDefault("worker.poolSize", 8)
	v.SetDefault("worker.queueSize", 1024)
}
