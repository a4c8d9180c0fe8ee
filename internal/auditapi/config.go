package auditapi

import (
	"fmt"
	"net"
	"time"
)

// Config contains the settings of the HTTP adapter.
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string `toml:",omitempty"` // Browser origins allowed to call the API

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig listens on localhost only.
var DefaultConfig = Config{
	Host:         "127.0.0.1",
	Port:         8000,
	ReadTimeout:  30 * time.Second,
	WriteTimeout: 30 * time.Second,
	IdleTimeout:  120 * time.Second,
}

// Endpoint returns the listen address.
func (c *Config) Endpoint() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}
