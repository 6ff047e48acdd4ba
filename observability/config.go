package observability

// Config selects how chat sessions report what they do.
type Config struct {
	Observer        string `json:"observer,omitempty" yaml:"observer,omitempty"` // registry name
	Level           string `json:"level,omitempty" yaml:"level,omitempty"`
	Metrics         bool   `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	TracingEndpoint string `json:"tracing_endpoint,omitempty" yaml:"tracing_endpoint,omitempty"`
	ServiceName     string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
}

// DefaultConfig logs through slog at info level with metrics and tracing off.
func DefaultConfig() Config {
	return Config{
		Observer:    "slog",
		Level:       "info",
		ServiceName: "chat",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.Level != "" {
		c.Level = source.Level
	}
	if source.Metrics {
		c.Metrics = true
	}
	if source.TracingEndpoint != "" {
		c.TracingEndpoint = source.TracingEndpoint
	}
	if source.ServiceName != "" {
		c.ServiceName = source.ServiceName
	}
}
