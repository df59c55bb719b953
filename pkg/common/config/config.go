package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ServerConfig struct {
	Address string `json:"address" env:"SERVER_ADDR"`
}

// BackendConfig 描述被桥接的后端 API
type BackendConfig struct {
	Origin      string        `json:"origin" env:"BACKEND_ORIGIN"`
	Timeout     time.Duration `json:"timeout" env:"BACKEND_TIMEOUT"`
	DialTimeout time.Duration `json:"dialTimeout" env:"BACKEND_DIAL_TIMEOUT"`
}

type SecurityConfig struct {
	MaxBodySize    int64    `json:"maxBodySize" env:"MAX_BODY_SIZE"` // 单位：字节
	AllowedMethods []string `json:"allowedMethods" env:"ALLOWED_METHODS" envSeparator:","`
}

type TimeoutConfig struct {
	RequestTimeout int `json:"requestTimeout" env:"REQUEST_TIMEOUT"` // 单位：秒
}

type CORSConfig struct {
	AllowOrigins     []string      `json:"allowOrigins" env:"CORS_ALLOW_ORIGINS" envSeparator:","`
	AllowMethods     []string      `json:"allowMethods"`
	AllowHeaders     []string      `json:"allowHeaders"`
	ExposeHeaders    []string      `json:"exposeHeaders"`
	AllowCredentials bool          `json:"allowCredentials"`
	MaxAge           time.Duration `json:"maxAge"`
	TrustedDomains   []string      `json:"trustedDomains" env:"CORS_TRUSTED_DOMAINS" envSeparator:","`
}

// SessionConfig 后端签发的登录令牌相关配置
// Secret 必须与后端的 JWT_SECRET 一致，否则令牌校验失败
type SessionConfig struct {
	Secret        string        `json:"secret" env:"JWT_SECRET"`
	CookieName    string        `json:"cookieName" env:"SESSION_COOKIE"`
	CookieMaxAge  time.Duration `json:"cookieMaxAge" env:"SESSION_MAX_AGE"`
	SigningMethod string        `json:"signingMethod" env:"JWT_ALGORITHM"`
	Realm         string        `json:"realm"`
	// ClientCookie 标识浏览器的 cookie，每个浏览器有自己的输出区域
	ClientCookie string `json:"clientCookie" env:"CLIENT_COOKIE"`
}

// OutputConfig 输出区域按浏览器分开保存，超过上限时淘汰最久未用的
type OutputConfig struct {
	MaxClients int `json:"maxClients" env:"OUTPUT_MAX_CLIENTS"`
}

type RateLimitConfig struct {
	Rate     int           `json:"rate" env:"RATE_LIMIT"`
	Interval time.Duration `json:"interval" env:"RATE_LIMIT_INTERVAL"`
}

type MiddlewareConfig struct {
	Security  SecurityConfig  `json:"security"`
	Session   SessionConfig   `json:"session"`
	Timeout   TimeoutConfig   `json:"timeout"`
	CORS      CORSConfig      `json:"cors"`
	RateLimit RateLimitConfig `json:"rateLimit"`
}

type DatabaseConfig struct {
	Enabled     bool   `json:"enabled" env:"DB_ENABLED"`
	Host        string `json:"host" env:"DB_HOST"`
	Port        int    `json:"port" env:"DB_PORT"`
	Username    string `json:"username" env:"DB_USER"`
	Password    string `json:"password" env:"DB_PASSWORD"`
	DBName      string `json:"dbname" env:"DB_NAME"`
	UseUnixSock bool   `json:"useUnixSock" env:"DB_SOCKET"` // Host 存放 socket 路径
	MinPoolSize int    `json:"minPoolSize" env:"DB_MIN_POOL"`
	MaxPoolSize int    `json:"maxPoolSize" env:"DB_MAX_POOL"`
	LogLevel    string `json:"logLevel" env:"DB_LOG_LEVEL"`
}

type Config struct {
	Server     ServerConfig     `json:"server"`
	Backend    BackendConfig    `json:"backend"`
	Output     OutputConfig     `json:"output"`
	Database   DatabaseConfig   `json:"database"`
	Middleware MiddlewareConfig `json:"middleware"`
	Env        string           `json:"env" env:"APP_ENV"`
}

// Default 返回默认配置的副本
func Default() *Config {
	cfg := Config{
		Server: ServerConfig{
			Address: ":8080",
		},
		Backend: BackendConfig{
			Origin:      "http://localhost:7474",
			Timeout:     10 * time.Second,
			DialTimeout: 2 * time.Second,
		},
		Output: OutputConfig{
			MaxClients: 10000,
		},
		Database: DatabaseConfig{
			Enabled:     false,
			Host:        "localhost",
			Port:        3306,
			Username:    "root",
			Password:    "root",
			DBName:      "quick_swgoh",
			MinPoolSize: 2,
			MaxPoolSize: 10,
			LogLevel:    "warn",
		},
		Middleware: MiddlewareConfig{
			Security: SecurityConfig{
				MaxBodySize:    1 << 20, // 1MB，表单只有一两个字段
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			},
			Session: SessionConfig{
				Secret:        "mysecret", // 与后端默认值保持一致
				CookieName:    "session",
				CookieMaxAge:  24 * time.Hour,
				SigningMethod: "HS256",
				Realm:         "quick-swgoh",
				ClientCookie:  "client",
			},
			Timeout: TimeoutConfig{
				RequestTimeout: 15,
			},
			CORS: CORSConfig{
				AllowOrigins:     []string{"http://localhost:8080"},
				AllowMethods:     []string{"GET", "POST", "OPTIONS"},
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-Request-ID"},
				ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
				AllowCredentials: false,
				MaxAge:           12 * time.Hour,
				TrustedDomains:   []string{"localhost", "127.0.0.1"},
			},
			RateLimit: RateLimitConfig{
				Rate:     20,
				Interval: 100 * time.Millisecond,
			},
		},
		Env: "development",
	}
	return &cfg
}

// IsProd 判断当前是否生产环境
func (c *Config) IsProd() bool {
	return c.Env == "production"
}

// Load 加载配置（优先级：环境变量 > 配置文件 > 默认值）
func Load() (*Config, error) {
	cfg := Default()

	// .env 只补充尚未设置的环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		hlog.Warnf("Failed to load .env file: %v", err)
	}

	if path := getConfigPath(); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getConfigPath 获取配置文件路径
func getConfigPath() string {
	if path := os.Getenv("APP_CONFIG"); path != "" {
		return path
	}

	searchPaths := []string{
		"./config.json",
		"../config.json",
		"/etc/quick-swgoh/config.json",
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func (c *Config) normalize() error {
	c.Backend.Origin = strings.TrimRight(strings.TrimSpace(c.Backend.Origin), "/")
	if !strings.HasPrefix(c.Backend.Origin, "http://") && !strings.HasPrefix(c.Backend.Origin, "https://") {
		return fmt.Errorf("backend origin must be an http(s) URL, got %q", c.Backend.Origin)
	}

	algorithm := strings.ToUpper(strings.ReplaceAll(c.Middleware.Session.SigningMethod, " ", ""))
	switch algorithm {
	case "HS256", "HS384", "HS512":
		c.Middleware.Session.SigningMethod = algorithm
	default:
		hlog.Warnf("Unsupported JWT algorithm %q, falling back to HS256", c.Middleware.Session.SigningMethod)
		c.Middleware.Session.SigningMethod = "HS256"
	}

	if c.Middleware.Session.ClientCookie == "" || c.Middleware.Session.ClientCookie == c.Middleware.Session.CookieName {
		return fmt.Errorf("client cookie name must be set and differ from the session cookie %q", c.Middleware.Session.CookieName)
	}
	if c.Output.MaxClients <= 0 {
		c.Output.MaxClients = Default().Output.MaxClients
	}

	c.Database.LogLevel = strings.ToLower(c.Database.LogLevel)
	return nil
}

func (c *Config) InitDB() (*gorm.DB, error) {
	var dsn string
	charsetParam := "charset=utf8mb4&parseTime=True&loc=Local"

	if c.Database.UseUnixSock {
		dsn = fmt.Sprintf("%s:%s@unix(%s)/%s?%s",
			c.Database.Username,
			c.Database.Password,
			c.Database.Host,
			c.Database.DBName,
			charsetParam)
	} else {
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			c.Database.Username,
			c.Database.Password,
			c.Database.Host,
			c.Database.Port,
			c.Database.DBName,
			charsetParam)
	}

	gormConfig := &gorm.Config{}
	switch c.Database.LogLevel {
	case "silent":
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	case "error":
		gormConfig.Logger = logger.Default.LogMode(logger.Error)
	case "warn":
		gormConfig.Logger = logger.Default.LogMode(logger.Warn)
	case "info":
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(c.Database.MinPoolSize)
	sqlDB.SetMaxOpenConns(c.Database.MaxPoolSize)

	return db, nil
}
