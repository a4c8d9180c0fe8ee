package metrics

// Config contains the configuration for the metric collection.
type Config struct {
	Enabled bool   `toml:",omitempty"`
	HTTP    string `toml:",omitempty"`
	Port    int    `toml:",omitempty"`
}

// DefaultConfig is the default config for metrics used in gaudit.
var DefaultConfig = Config{
	Enabled: false,
	HTTP:    "127.0.0.1",
	Port:    6060,
}
