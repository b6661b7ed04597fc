package http

import "time"

// Http holds the HTTP server configuration.
type Http struct {
	Host            string
	Port            int
	ContextPath     string
	AccessLog       bool
	ExposeMetrics   bool
	ReadTimeout     int
	WriteTimeout    int
	IdleTimeout     int
	ShutdownTimeout int
	RequestTimeout  int
	MaxPageSize     int
	Auth            Auth
}

// Auth holds token-mint and credential-hash configuration.
type Auth struct {
	SecretKey      string
	AccessExpire   time.Duration // minutes
	RefreshExpire  time.Duration // minutes
	RedisKeyPrefix string
	BcryptCost     int
}

// SetDefaults fills unset fields with serviceable values.
func (h *Http) SetDefaults() {
	if h.Port == 0 {
		h.Port = 8080
	}
	if h.ReadTimeout <= 0 {
		h.ReadTimeout = 30
	}
	if h.WriteTimeout <= 0 {
		h.WriteTimeout = 30
	}
	if h.IdleTimeout <= 0 {
		h.IdleTimeout = 60
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10
	}
	if h.MaxPageSize <= 0 {
		h.MaxPageSize = 100
	}
	if h.Auth.AccessExpire <= 0 {
		h.Auth.AccessExpire = 30
	}
	if h.Auth.RefreshExpire <= 0 {
		h.Auth.RefreshExpire = 7 * 24 * 60
	}
	if h.Auth.RedisKeyPrefix == "" {
		h.Auth.RedisKeyPrefix = "auth:token:"
	}
	if h.Auth.BcryptCost <= 0 {
		h.Auth.BcryptCost = 10
	}
}

// RequestDeadline returns the per-request timeout, defaulting to 30s.
func (h Http) RequestDeadline() time.Duration {
	if h.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(h.RequestTimeout) * time.Second
}
