package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/riveredge/riveredge/pkg/cache"
	"github.com/riveredge/riveredge/pkg/database"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/log"
)

// RegistryConfig points at the on-disk application manifest directory.
type RegistryConfig struct {
	ManifestDir string
	ScanWorkers int
}

// ApprovalConfig tunes the approval engine background jobs.
type ApprovalConfig struct {
	// ExpireCron sweeps overdue tasks, e.g. "@every 5m".
	ExpireCron string
	// WebhookTimeoutSec bounds each completion callback attempt.
	WebhookTimeoutSec int
	// WebhookMaxRetries bounds completion callback retries.
	WebhookMaxRetries int
}

type AppConfig struct {
	Log      log.Conf
	Http     http.Http
	Database database.Database
	Redis    cache.Redis
	Registry RegistryConfig
	Approval ApprovalConfig
}

var (
	cfg  AppConfig
	once sync.Once
)

func NewConf(confDir string) AppConfig {
	once.Do(func() {
		var err error
		cfg, err = LoadConfigFile(confDir)
		if err != nil {
			panic(fmt.Sprintf("load config file error: %s", err))
		}
	})
	return cfg
}

// LoadConfigFile load config file
func LoadConfigFile(confDir string) (AppConfig, error) {

	config := viper.New()
	config.SetConfigFile(confDir)
	if err := config.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("failed to read configuration file: %v", err)
	}

	config.WatchConfig()
	config.OnConfigChange(func(e fsnotify.Event) {
		log.Infof("The configuration changes, re-analyze the configuration file: %s", e.Name)
		if err := config.Unmarshal(&cfg); err != nil {
			log.Errorf("failed to unmarshal configuration file: %v", err)
		}
	})
	if err := config.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal configuration file: %v", err)
	}
	log.Infow("config file loaded",
		"path", confDir,
	)

	return cfg, nil
}
