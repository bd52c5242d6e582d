package config

import "time"

// RelayConfig is the root configuration for a relay process.
type RelayConfig struct {
	Source      SourceConfig      `yaml:"source"`
	Destination DestinationConfig `yaml:"destination"`
	Assets      []AssetConfig     `yaml:"assets"`
	Relay       TuningConfig      `yaml:"relay"`
	Journal     JournalConfig     `yaml:"journal"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Log         LogConfig         `yaml:"log"`
}

// SourceConfig holds the source ledger RPC settings.
type SourceConfig struct {
	RPCURL            string        `yaml:"rpc_url"`
	Timeout           time.Duration `yaml:"timeout"`             // Per-read deadline
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 = unlimited
}

// DestinationConfig holds the destination ledger RPC and signer settings.
type DestinationConfig struct {
	RPCURL              string            `yaml:"rpc_url"`
	ChainID             int64             `yaml:"chain_id"`         // 0 = ask the node
	SigningKey          string            `yaml:"signing_key"`      // Hex key, usually ${RELAY_SIGNING_KEY}
	SigningKeyPath      string            `yaml:"signing_key_path"` // File holding a hex key
	GasLimit            uint64            `yaml:"gas_limit"`
	ReceiptTimeout      time.Duration     `yaml:"receipt_timeout"`
	ReceiptPollInterval time.Duration     `yaml:"receipt_poll_interval"`
	ContractMap         map[string]string `yaml:"contract_map"` // asset contract -> destination contract
}

// AssetConfig describes one tracked asset.
type AssetConfig struct {
	Contract string `yaml:"contract"`
	Decimals uint8  `yaml:"decimals"`
	Base     string `yaml:"base"`
	Quote    string `yaml:"quote"`
}

// TuningConfig holds the submission policy and scheduling tunables.
type TuningConfig struct {
	PriceVarianceThreshold float64       `yaml:"price_variance_threshold"`
	CheckVariancePeriod    time.Duration `yaml:"check_variance_period"`
	SubmissionPeriod       time.Duration `yaml:"submission_period"`
	MinTimeBetweenQuotes   time.Duration `yaml:"min_time_between_quotes"`
}

// JournalConfig holds the optional submission journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics settings.
// The listener is opt-in; by default the relay is outbound-only.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}
