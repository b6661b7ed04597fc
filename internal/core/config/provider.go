package config

import (
	"github.com/google/wire"

	"github.com/riveredge/riveredge/pkg/cache"
	"github.com/riveredge/riveredge/pkg/database"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/log"
)

// ProviderSet provides configuration layer dependencies.
var ProviderSet = wire.NewSet(
	ProvideConf,
	ProvideHttpConfig,
	ProvideAuthConfig,
	ProvideLogConfig,
	ProvideDatabaseConfig,
	ProvideRedisConfig,
	ProvideRegistryConfig,
	ProvideApprovalConfig,
)

// ProvideConf provides the application configuration.
func ProvideConf(configPath string) *AppConfig {
	conf := NewConf(configPath)
	return &conf
}

// ProvideHttpConfig provides the HTTP configuration.
func ProvideHttpConfig(appConf *AppConfig) *http.Http {
	httpConfig := &appConf.Http
	httpConfig.SetDefaults()
	return httpConfig
}

// ProvideAuthConfig provides the auth configuration with defaults applied.
func ProvideAuthConfig(httpConf *http.Http) http.Auth {
	return httpConf.Auth
}

// ProvideLogConfig provides the log configuration.
func ProvideLogConfig(appConf *AppConfig) *log.Conf {
	return &appConf.Log
}

// ProvideDatabaseConfig provides the database configuration.
func ProvideDatabaseConfig(appConf *AppConfig) database.Database {
	return appConf.Database
}

// ProvideRedisConfig provides the Redis configuration.
func ProvideRedisConfig(appConf *AppConfig) cache.Redis {
	return appConf.Redis
}

// ProvideRegistryConfig provides the application registry configuration.
func ProvideRegistryConfig(appConf *AppConfig) RegistryConfig {
	registryConfig := appConf.Registry
	if registryConfig.ManifestDir == "" {
		registryConfig.ManifestDir = "manifests"
	}
	if registryConfig.ScanWorkers <= 0 {
		registryConfig.ScanWorkers = 4
	}
	return registryConfig
}

// ProvideApprovalConfig provides the approval engine configuration.
func ProvideApprovalConfig(appConf *AppConfig) ApprovalConfig {
	approvalConfig := appConf.Approval
	if approvalConfig.ExpireCron == "" {
		approvalConfig.ExpireCron = "@every 5m"
	}
	if approvalConfig.WebhookTimeoutSec <= 0 {
		approvalConfig.WebhookTimeoutSec = 10
	}
	if approvalConfig.WebhookMaxRetries <= 0 {
		approvalConfig.WebhookMaxRetries = 3
	}
	return approvalConfig
}
