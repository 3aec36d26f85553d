package giop

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/brodyxchen/giop/client"
	"github.com/brodyxchen/giop/codeset"
	"github.com/brodyxchen/giop/models"
	"github.com/brodyxchen/giop/protocols"
	"github.com/brodyxchen/giop/server"
)

// Config is the configuration of an ORB, usually read from YAML:
//
//	endpoints:
//	  - network: tcp
//	    address: 127.0.0.1:2809
//	client:
//	  timeout: 10s
//	  allow-bidir: true
//	code-sets:
//	  char: UTF-8
type Config struct {
	Client    client.Config `yaml:"client"`
	Server    server.Config `yaml:"server"`
	CodeSets  CodeSetConfig `yaml:"code-sets"`
	Endpoints []Endpoint    `yaml:"endpoints"`
	BiDir     []ListenPoint `yaml:"bidir-listen-points"`
	Metrics   MetricsConfig `yaml:"metrics"`
}

// CodeSetConfig overrides the native code sets. Names are those printed
// by codeset.CharSet, for example "UTF-8" or "UTF-16".
type CodeSetConfig struct {
	Char  string `yaml:"char"`
	WChar string `yaml:"wchar"`
}

// Endpoint is an address the ORB listens on.
type Endpoint struct {
	// Network is "tcp" or "vsock".
	Network string `yaml:"network"`
	// Address is host:port for tcp.
	Address   string `yaml:"address"`
	ContextID uint32 `yaml:"context-id"`
	Port      uint32 `yaml:"port"`
}

// ListenPoint is advertised to servers this side calls, so that they can
// call back over the same connection.
type ListenPoint struct {
	Host string `yaml:"host"`
	Port uint16 `yaml:"port"`
}

type MetricsConfig struct {
	// LogInterval enables a periodic metrics summary in the log.
	LogInterval time.Duration `yaml:"log-interval"`
}

// ParseConfig decodes and validates a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Annotate(err, "parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return cfg, nil
}

// ReadConfig reads a YAML configuration file.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return ParseConfig(data)
}

func (cfg *Config) Validate() error {
	if cfg.Client.MaxConnectionsPerEndpoint < 0 {
		return errors.NotValidf("max-connections-per-endpoint %d", cfg.Client.MaxConnectionsPerEndpoint)
	}
	if cfg.Client.FragmentSize != 0 && cfg.Client.FragmentSize < protocols.HeaderSize+16 {
		return errors.NotValidf("client fragment-size %d", cfg.Client.FragmentSize)
	}
	if cfg.Server.FragmentSize != 0 && cfg.Server.FragmentSize < protocols.HeaderSize+16 {
		return errors.NotValidf("server fragment-size %d", cfg.Server.FragmentSize)
	}
	if _, _, err := cfg.CodeSets.charSets(); err != nil {
		return errors.NotValidf("code-sets: %v", err)
	}
	for _, ep := range cfg.Endpoints {
		if _, err := ep.Addr(); err != nil {
			return errors.Trace(err)
		}
	}
	for _, lp := range cfg.BiDir {
		if lp.Host == "" || lp.Port == 0 {
			return errors.NotValidf("bidir listen point %+v", lp)
		}
	}
	return nil
}

// charSets returns the configured sets, Unset where the default applies.
func (c CodeSetConfig) charSets() (codeset.CharSet, codeset.CharSet, error) {
	charSet, wcharSet := codeset.Unset, codeset.Unset
	var err error
	if c.Char != "" {
		if charSet, err = codeset.ParseCharSet(c.Char); err != nil {
			return codeset.Unset, codeset.Unset, err
		}
		if !codeset.IsCharSetSupported(charSet) {
			return codeset.Unset, codeset.Unset, errors.NotSupportedf("char set %v", charSet)
		}
	}
	if c.WChar != "" {
		if wcharSet, err = codeset.ParseCharSet(c.WChar); err != nil {
			return codeset.Unset, codeset.Unset, err
		}
		if !codeset.IsWCharSetSupported(wcharSet) {
			return codeset.Unset, codeset.Unset, errors.NotSupportedf("wchar set %v", wcharSet)
		}
	}
	return charSet, wcharSet, nil
}

// Addr converts the endpoint to a listen address.
func (ep Endpoint) Addr() (models.Addr, error) {
	switch ep.Network {
	case "tcp", "":
		host, port, err := net.SplitHostPort(ep.Address)
		if err != nil {
			return nil, errors.NotValidf("tcp endpoint %q", ep.Address)
		}
		p, err := strconv.ParseUint(port, 10, 16)
		if err != nil {
			return nil, errors.NotValidf("tcp endpoint port %q", port)
		}
		return &models.IIOPAddr{Host: host, Port: uint16(p)}, nil
	case "vsock":
		return &models.VSockAddr{ContextId: ep.ContextID, Port: ep.Port}, nil
	}
	return nil, errors.NotValidf("endpoint network %q", ep.Network)
}
