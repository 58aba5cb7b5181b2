package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Auth: AuthConfig{
			Secret: "${TODOBOT_AUTH_SECRET}",
		},
		Storage: StorageConfig{
			DBPath: "~/.todobot/todobot.db",
		},
		Engine: EngineConfig{
			APIBase:        "https://api.openai.com/v1",
			APIKey:         "${TODOBOT_ENGINE_KEY:-}",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 60,
		},
		Chat: ChatConfig{
			ContextWindow:    50,
			MaxMessageLength: 5000,
			ShortMonthPolicy: "clamp",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
	}
}
