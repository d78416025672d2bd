package config

type Config interface {
	APIConfig
	RealtimeConfig
	StorageConfig
	EnvConfig
}

type mainConfig struct {
	EnvVars
	API
	Realtime
}

func New() Config {
	return mainConfig{}
}
