package client

import (
	"time"

	"github.com/brodyxchen/giop/constant"
)

// Config tunes a Transport. Zero values select the defaults of package
// constant.
type Config struct {
	Timeout                   time.Duration `yaml:"timeout"`
	MaxConnectionsPerEndpoint int           `yaml:"max-connections-per-endpoint"`
	UnusedKeepAlive           time.Duration `yaml:"unused-keep-alive"`
	WriteBufferSize           int           `yaml:"write-buffer-size"`
	ReadBufferSize            int           `yaml:"read-buffer-size"`
	FragmentSize              int           `yaml:"fragment-size"`
	// AllowBidir offers the connections this side dials for callbacks.
	AllowBidir bool `yaml:"allow-bidir"`
}

func (cfg *Config) GetTimeout() time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return constant.DefaultRequestTimeout
}

// GetMaxConnectionsPerEndpoint returns the configured limit. A negative
// limit is returned as is and rejected by NewTransport.
func (cfg *Config) GetMaxConnectionsPerEndpoint() int {
	if cfg.MaxConnectionsPerEndpoint != 0 {
		return cfg.MaxConnectionsPerEndpoint
	}
	return constant.MaxConnPoolCountPerKey
}

func (cfg *Config) GetUnusedKeepAlive() time.Duration {
	if cfg.UnusedKeepAlive > 0 {
		return cfg.UnusedKeepAlive
	}
	return constant.IdleSweepPeriod
}

func (cfg *Config) GetWriteBufferSize() int {
	if cfg.WriteBufferSize > 0 {
		return cfg.WriteBufferSize
	}
	return constant.MaxWriteBufferSize
}

func (cfg *Config) GetReadBufferSize() int {
	if cfg.ReadBufferSize > 0 {
		return cfg.ReadBufferSize
	}
	return constant.MaxReadBufferSize
}

func (cfg *Config) GetFragmentSize() int {
	if cfg.FragmentSize > 0 {
		return cfg.FragmentSize
	}
	return constant.FragmentSize
}
