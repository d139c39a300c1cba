package conf

// Backend kinds.
const (
	BackendCommand = "command"
	BackendTFLite  = "tflite"
)

// Preference store backends.
const (
	PrefsMemory = "memory"
	PrefsFile   = "file"
	PrefsSQLite = "sqlite"
	PrefsMySQL  = "mysql"
	PrefsRedis  = "redis"
)

const (
	envPrefix = "IMAGELAB"
	osWindows = "windows"
	appName   = "imagelab"
)

// legacyMetadataExt names the per-model metadata files left by older
// releases; model files must not share it.
const legacyMetadataExt = "json"
