// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("storage.root", "models")
	v.SetDefault("storage.compiledext", "mlmodelc")
	v.SetDefault("storage.pendingext", "mlmodel")
	v.SetDefault("storage.placeholderext", "txt")
	v.SetDefault("storage.imageext", "jpg")

	v.SetDefault("dataset.jpegquality", 80)

	v.SetDefault("training.minlabels", 2)
	v.SetDefault("training.minimagesperlabel", 5)
	v.SetDefault("training.minfreebytes", 100*1024*1024)

	v.SetDefault("classifier.topk", 3)
	v.SetDefault("classifier.cachettl", 10*time.Minute)

	v.SetDefault("backend.kind", BackendCommand)
	v.SetDefault("backend.trainer.command", "")
	v.SetDefault("backend.classifier.command", "")
	v.SetDefault("backend.compilercommand", "xcrun")
	v.SetDefault("backend.threads", 0)

	v.SetDefault("preferences.backend", PrefsFile)
	v.SetDefault("preferences.path", "preferences.yaml")
	v.SetDefault("preferences.dsn", "")
	v.SetDefault("preferences.redisurl", "redis://localhost:6379/0")
	v.SetDefault("preferences.keyprefix", "imagelab:")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.filepath", "")
	v.SetDefault("logging.json", false)
	v.SetDefault("logging.maxsize", 50)
	v.SetDefault("logging.maxage", 30)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
	v.SetDefault("telemetry.environment", "production")
	v.SetDefault("telemetry.listen", "")
}
