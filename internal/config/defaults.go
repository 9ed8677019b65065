package config

const (
	defaultConfigPath      = "~/.config/nascam/config.toml"
	defaultWorkingDir      = "~/.nascam_imager_readfile"
	defaultLogDir          = "~/.local/share/nascam/logs"
	defaultCatalogPath     = "~/.local/share/nascam/catalog.db"
	defaultWorkers         = 1
	defaultStaleAfterHours = 24
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	maxWorkers             = 256
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkingDir:  defaultWorkingDir,
			LogDir:      defaultLogDir,
			CatalogPath: defaultCatalogPath,
		},
		Reader: Reader{
			Workers:         defaultWorkers,
			Cleanup:         true,
			StaleAfterHours: defaultStaleAfterHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
