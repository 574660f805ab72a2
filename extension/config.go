package extension

// Config holds the Ostiary extension configuration.
// Fields can be set programmatically via ExtOption functions or loaded
// from YAML configuration files (under "extensions.ostiary" or "ostiary"
// keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// EnvConfig loads the engine configuration from OSTIARY_* environment
	// variables during Register.
	EnvConfig bool `json:"env_config" mapstructure:"env_config" yaml:"env_config"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{}
}
