package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"todobot/internal/agent"
	"todobot/internal/auth"
	"todobot/internal/channel"
	"todobot/internal/config"
	"todobot/internal/metrics"
	"todobot/internal/provider"
	"todobot/internal/store"
	"todobot/internal/task"
	"todobot/internal/tool"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "todobot",
		Short:   "Conversational task manager",
		Long:    "todobot is an HTTP gateway that manages per-user task lists through natural-language chat.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.todobot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(tokenCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, nil
}

func setLogLevel(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists at %s", cfgPath)
			}
			if err := os.MkdirAll(config.DefaultConfigDir(), 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setLogLevel(cfg.General.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Storage.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	verifier, err := auth.NewVerifier(cfg.Auth.Secret)
	if err != nil {
		return err
	}

	policy, err := task.ParsePolicy(cfg.Chat.ShortMonthPolicy)
	if err != nil {
		return err
	}

	persona, err := agent.LoadPersona(cfg.Chat.PersonaPath)
	if err != nil {
		return err
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New()
		collector.Describe("todobot_tool_invocations_total", "Tool invocations by tool and status")
		collector.Describe("todobot_messages_total", "Persisted chat messages by role")
		collector.Describe("todobot_engine_latency_seconds", "Language engine round-trip latency")
		collector.Describe("todobot_engine_errors_total", "Failed language engine calls")
		collector.Describe("todobot_http_requests_total", "HTTP requests by method and status")
		collector.Describe("todobot_http_request_seconds", "HTTP request latency by method")
	}

	engine := provider.NewOpenAI(provider.OpenAIConfig{
		APIKey:  cfg.Engine.APIKey,
		APIBase: cfg.Engine.APIBase,
		Model:   cfg.Engine.Model,
		Client:  provider.PooledHTTPClient(time.Duration(cfg.Engine.TimeoutSeconds) * time.Second),
		Logger:  logger,
	})

	registry := tool.NewRegistry(tool.Config{
		Tasks:   st,
		Policy:  policy,
		Logger:  logger,
		Metrics: collector,
	})

	gateway := agent.New(agent.Config{
		Engine:        engine,
		Conversations: st,
		Tools:         registry,
		Logger:        logger,
		Metrics:       collector,
		Persona:       persona,
		ContextWindow: cfg.Chat.ContextWindow,
		MaxMessageLen: cfg.Chat.MaxMessageLength,
	})

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Endpoint
	}
	api := channel.NewAPI(channel.APIConfig{
		Addr:          fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Chat:          gateway,
		Conversations: st,
		Verifier:      verifier,
		Logger:        logger,
		Metrics:       collector,
		MetricsPath:   metricsPath,
	})

	logger.Info("starting todobot", "version", version, "model", cfg.Engine.Model)
	return api.Start(ctx)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Query a running gateway's status endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			url := fmt.Sprintf("http://%s:%d/status", cfg.Server.Host, cfg.Server.Port)
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(url)
			if err != nil {
				return fmt.Errorf("gateway not reachable at %s: %w", url, err)
			}
			defer resp.Body.Close()

			var body map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return err
			}
			out, _ := json.MarshalIndent(body, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		userID int64
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user",
		Long:  "Signs a short-lived JWT with the configured auth secret. Intended for development and testing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			verifier, err := auth.NewVerifier(cfg.Auth.Secret)
			if err != nil {
				return err
			}
			token, err := verifier.Sign(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "numeric user id (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.MarkFlagRequired("user")
	return cmd
}
