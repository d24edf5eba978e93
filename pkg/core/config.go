package core

// FactoryConfig contains configuration for the connection factory.
type FactoryConfig struct {
	// Network is the network used by the address based creation calls
	// (tcp, tcp4 or tcp6).
	Network string `json:"network" yaml:"network"`

	// KeepAliveSec is the TCP keep-alive period in seconds.
	// Zero keeps the platform default, a negative value disables keep-alives.
	KeepAliveSec int `json:"keep_alive_sec" yaml:"keepAliveSec"`

	// ReuseAddr sets SO_REUSEADDR on sockets bound to an explicit local address.
	ReuseAddr bool `json:"reuse_addr" yaml:"reuseAddr"`

	// FallbackUnwrapped makes generic dials on networks outside the TCP family
	// use the default dialer directly. Such connections are neither counted
	// nor registered.
	FallbackUnwrapped bool `json:"fallback_unwrapped" yaml:"fallbackUnwrapped"`
}

// TrackerConfig contains configuration for the connection tracker.
type TrackerConfig struct {
	// MaxEntries caps the number of tracked connections (0 = unlimited).
	// When the cap is reached the oldest entry is evicted.
	MaxEntries int `json:"max_entries" yaml:"maxEntries"`

	// ReportInterval is how often the tracker dumps a report, e.g. "30s".
	// Empty disables periodic reports.
	ReportInterval string `json:"report_interval" yaml:"reportInterval"`

	// ReportFormat is either "text" or "json".
	ReportFormat string `json:"report_format" yaml:"reportFormat"`

	// PruneOnReport drops closed connections after each report.
	PruneOnReport bool `json:"prune_on_report" yaml:"pruneOnReport"`
}
