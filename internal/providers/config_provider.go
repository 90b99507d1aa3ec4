package providers

import (
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"instametrics/internal/structures"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

var envBindings = map[string]string{
	"logger.level":           "INSTAMETRICS_LOG_LEVEL",
	"webServer.port":         "INSTAMETRICS_PORT",
	"database.driver":        "INSTAMETRICS_DB_DRIVER",
	"database.dsn":           "INSTAMETRICS_DB_DSN",
	"graph.version":          "INSTAMETRICS_GRAPH_VERSION",
	"graph.appId":            "INSTAMETRICS_GRAPH_APP_ID",
	"graph.appSecret":        "INSTAMETRICS_GRAPH_APP_SECRET",
	"jwt.secret":             "INSTAMETRICS_JWT_SECRET",
	"collector.enabled":      "INSTAMETRICS_COLLECTOR_ENABLED",
	"cache.enabled":          "INSTAMETRICS_CACHE_ENABLED",
	"cache.backend":          "INSTAMETRICS_CACHE_BACKEND",
	"cache.size":             "INSTAMETRICS_CACHE_SIZE",
	"cache.redisAddr":        "INSTAMETRICS_REDIS_ADDR",
	"metrics.enabled":        "INSTAMETRICS_METRICS_ENABLED",
	"aggregator.maxParallel": "INSTAMETRICS_MAX_PARALLEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.maxOpenConns", 4)
	v.SetDefault("graph.baseUrl", "https://graph.facebook.com")
	v.SetDefault("graph.version", "v19.0")
	v.SetDefault("graph.timeout", 30*time.Second)
	v.SetDefault("graph.callsPerHour", 200)
	v.SetDefault("jwt.ttl", 7*24*time.Hour)
	v.SetDefault("aggregator.maxParallel", 1)
	v.SetDefault("aggregator.defaultLimit", 25)
	v.SetDefault("collector.at", "23:55")
	v.SetDefault("collector.retentionDays", 90)
	v.SetDefault("collector.archiveDir", "var/archive")
	v.SetDefault("collector.refreshWithin", 7*24*time.Hour)
	v.SetDefault("collector.maxRetries", 3)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("rateLimit.loginPerMinute", 10)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	if flags.EnvFile != "" {
		if err := godotenv.Load(flags.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unable to load env file %s: %w", flags.EnvFile, err)
		}
	}

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")
	setDefaults(v)

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "InstaMetrics"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
