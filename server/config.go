package server

import (
	"time"

	"github.com/brodyxchen/giop/constant"
)

// Config tunes accepted connections. A zero timeout disables it.
type Config struct {
	ReadTimeout  time.Duration `yaml:"read-timeout"`
	WriteTimeout time.Duration `yaml:"write-timeout"`
	// IdleTimeout bounds the wait for the next message. It defaults to
	// ReadTimeout.
	IdleTimeout       time.Duration `yaml:"idle-timeout"`
	DisableKeepAlives bool          `yaml:"disable-keep-alives"`
	FragmentSize      int           `yaml:"fragment-size"`
	ReadBufferSize    int           `yaml:"read-buffer-size"`
	WriteBufferSize   int           `yaml:"write-buffer-size"`
}

func (cfg *Config) GetIdleTimeout() time.Duration {
	if cfg.IdleTimeout != 0 {
		return cfg.IdleTimeout
	}
	return cfg.ReadTimeout
}

func (cfg *Config) GetFragmentSize() int {
	if cfg.FragmentSize > 0 {
		return cfg.FragmentSize
	}
	return constant.FragmentSize
}

func (cfg *Config) GetReadBufferSize() int {
	if cfg.ReadBufferSize > 0 {
		return cfg.ReadBufferSize
	}
	return constant.MaxReadBufferSize
}

func (cfg *Config) GetWriteBufferSize() int {
	if cfg.WriteBufferSize > 0 {
		return cfg.WriteBufferSize
	}
	return constant.MaxWriteBufferSize
}
