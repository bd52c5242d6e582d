package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultPriceVarianceThreshold = 0.0025
	DefaultCheckVariancePeriod    = 15 * time.Second
	DefaultSubmissionPeriod       = 300 * time.Second
	DefaultMinTimeBetweenQuotes   = 6 * time.Second
	DefaultSourceTimeout          = 30 * time.Second
	DefaultGasLimit               = 1_000_000
	DefaultReceiptTimeout         = 2 * time.Minute
	DefaultReceiptPollInterval    = 2 * time.Second
	DefaultDBPort                 = 5432
	DefaultDBSSLMode              = "prefer"
	DefaultMaxConns               = 4
	DefaultMinConns               = 1
	DefaultBatchSize              = 100
	DefaultFlushInterval          = 5 * time.Second
	DefaultBufferSize             = 1000
	DefaultMetricsPort            = 9090
	DefaultMetricsPath            = "/metrics"
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "text"
)

func (c *RelayConfig) applyDefaults() {
	// Source defaults
	if c.Source.Timeout == 0 {
		c.Source.Timeout = DefaultSourceTimeout
	}

	// Destination defaults
	if c.Destination.GasLimit == 0 {
		c.Destination.GasLimit = DefaultGasLimit
	}
	if c.Destination.ReceiptTimeout == 0 {
		c.Destination.ReceiptTimeout = DefaultReceiptTimeout
	}
	if c.Destination.ReceiptPollInterval == 0 {
		c.Destination.ReceiptPollInterval = DefaultReceiptPollInterval
	}

	// Tunables: zero means "use the default".
	if c.Relay.PriceVarianceThreshold == 0 {
		c.Relay.PriceVarianceThreshold = DefaultPriceVarianceThreshold
	}
	if c.Relay.CheckVariancePeriod == 0 {
		c.Relay.CheckVariancePeriod = DefaultCheckVariancePeriod
	}
	if c.Relay.SubmissionPeriod == 0 {
		c.Relay.SubmissionPeriod = DefaultSubmissionPeriod
	}
	if c.Relay.MinTimeBetweenQuotes == 0 {
		c.Relay.MinTimeBetweenQuotes = DefaultMinTimeBetweenQuotes
	}

	// Journal defaults
	applyDBDefaults(&c.Journal.Database)
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
