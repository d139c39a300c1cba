package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `yaml:"default_level" mapstructure:"defaultlevel"` // default log level for all modules
	Console      *ConsoleOutput    `yaml:"console" mapstructure:"console"`            // console output configuration
	FileOutput   *FileOutput       `yaml:"file_output" mapstructure:"fileoutput"`     // file output configuration
	ModuleLevels map[string]string `yaml:"module_levels" mapstructure:"modulelevels"` // per-module log levels
}

// ConsoleOutput represents console logging configuration.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"` // enable console output
	Level   string `yaml:"level" mapstructure:"level"`     // log level for console output
	JSON    bool   `yaml:"json" mapstructure:"json"`       // JSON instead of human readable output
}

// FileOutput represents file logging configuration.
// File output is always JSON with ISO8601 timestamps.
type FileOutput struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`                 // enable file output
	Path            string `yaml:"path" mapstructure:"path"`                       // log file path
	MaxSize         int    `yaml:"max_size" mapstructure:"maxsize"`                // maximum size in MB before rotation
	MaxAge          int    `yaml:"max_age" mapstructure:"maxage"`                  // days to keep rotated logs (0 = no limit)
	MaxRotatedFiles int    `yaml:"max_rotated_files" mapstructure:"maxrotatedfiles"` // rotated files to keep (0 = no limit)
	Compress        bool   `yaml:"compress" mapstructure:"compress"`               // gzip rotated logs
	Level           string `yaml:"level" mapstructure:"level"`                     // log level for file output
}

// Default values for logging configuration.
const (
	DefaultLogLevel        = "info"
	DefaultLogPath         = "logs/imagelab.log"
	DefaultMaxSize         = 50
	DefaultMaxAge          = 30
	DefaultMaxRotatedFiles = 5
)

// applyConfigDefaults fills nil sections. Console is on by default, file
// output is opt-in for a library-style tool.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}

	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{Enabled: true, Level: cfg.DefaultLevel}
	}
	if cfg.Console.Level == "" {
		cfg.Console.Level = cfg.DefaultLevel
	}

	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{Enabled: false}
	}
	if cfg.FileOutput.Path == "" {
		cfg.FileOutput.Path = DefaultLogPath
	}
	if cfg.FileOutput.Level == "" {
		cfg.FileOutput.Level = cfg.DefaultLevel
	}
	if cfg.FileOutput.MaxSize == 0 {
		cfg.FileOutput.MaxSize = DefaultMaxSize
	}
	if cfg.FileOutput.MaxAge == 0 {
		cfg.FileOutput.MaxAge = DefaultMaxAge
	}
	if cfg.FileOutput.MaxRotatedFiles == 0 {
		cfg.FileOutput.MaxRotatedFiles = DefaultMaxRotatedFiles
	}

	if cfg.ModuleLevels == nil {
		cfg.ModuleLevels = make(map[string]string)
	}
}
