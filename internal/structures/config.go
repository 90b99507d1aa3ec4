package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver" validate:"required|in:sqlite,postgres"`
	DSN          string `yaml:"dsn" validate:"required"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
}

type GraphConfig struct {
	BaseURL      string        `yaml:"baseUrl" validate:"required|fullUrl"`
	Version      string        `yaml:"version" validate:"required|startsWith:v"`
	Timeout      time.Duration `yaml:"timeout"`
	CallsPerHour int           `yaml:"callsPerHour"`
	AppID        string        `yaml:"appId"`
	AppSecret    string        `yaml:"appSecret"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret" validate:"required|minLen:32"`
	TTL    time.Duration `yaml:"ttl"`
}

type AggregatorConfig struct {
	MaxParallel  int `yaml:"maxParallel"`
	DefaultLimit int `yaml:"defaultLimit"`
}

type CollectorConfig struct {
	Enabled       bool          `yaml:"enabled"`
	At            string        `yaml:"at"`
	RetentionDays int           `yaml:"retentionDays"`
	ArchiveDir    string        `yaml:"archiveDir"`
	RefreshWithin time.Duration `yaml:"refreshWithin"`
	MaxRetries    uint64        `yaml:"maxRetries"`
}

type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Backend   string        `yaml:"backend"`
	Size      int           `yaml:"size"`
	TTL       time.Duration `yaml:"ttl"`
	RedisAddr string        `yaml:"redisAddr"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type RateLimitConfig struct {
	LoginPerMinute int `yaml:"loginPerMinute"`
}

type Config struct {
	AppName    string
	Debug      bool
	Path       string
	WebServer  Server           `yaml:"webServer"`
	Logger     LoggerConfig     `yaml:"logger"`
	Database   DatabaseConfig   `yaml:"database"`
	Graph      GraphConfig      `yaml:"graph"`
	JWT        JWTConfig        `yaml:"jwt"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Collector  CollectorConfig  `yaml:"collector"`
	Cache      CacheConfig      `yaml:"cache"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	RateLimit  RateLimitConfig  `yaml:"rateLimit"`
}
