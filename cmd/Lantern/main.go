package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/BTreeMap/Lantern/data"
	"github.com/BTreeMap/Lantern/internal/api"
	"github.com/BTreeMap/Lantern/internal/auth"
	"github.com/BTreeMap/Lantern/internal/companion"
	"github.com/BTreeMap/Lantern/internal/genai"
	"github.com/BTreeMap/Lantern/internal/intent"
	"github.com/BTreeMap/Lantern/internal/lockfile"
	"github.com/BTreeMap/Lantern/internal/playbook"
	"github.com/BTreeMap/Lantern/internal/prompts"
	"github.com/BTreeMap/Lantern/internal/resources"
	"github.com/BTreeMap/Lantern/internal/scheduler"
	"github.com/BTreeMap/Lantern/internal/store"
	"github.com/BTreeMap/Lantern/internal/util"
	"github.com/BTreeMap/Lantern/internal/weather"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Lantern state data
	DefaultStateDir = "/var/lib/lantern"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "lantern.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	config, err := parseCommandLineFlags(os.Args[1:], config)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("Invalid command line", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping Lantern", "state_dir", config.StateDir, "api_addr", config.APIAddr)
	if err := run(ctx, config); err != nil {
		slog.Error("Lantern failed to run", "error", err)
		stop()
		os.Exit(1)
	}
	slog.Info("Lantern exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir            string
	DatabaseDSN         string
	OpenAIKey           string
	OpenAIModel         string
	GenAITimeout        time.Duration
	GenAIDebug          bool
	APIAddr             string
	JWTSecret           string
	JWTExpire           time.Duration
	RedisURL            string
	WeatherCacheTTL     time.Duration
	CORSOrigins         []string
	IntentsFile         string
	ResourcesFile       string
	PlaybooksFile       string
	CompanionPromptFile string
	CasualPromptFile    string
	SessionIdleTTL      time.Duration
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:            os.Getenv("LANTERN_STATE_DIR"),
		DatabaseDSN:         os.Getenv("DATABASE_DSN"),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:         os.Getenv("OPENAI_MODEL"),
		GenAITimeout:        util.ParseDurationEnv("GENAI_TIMEOUT", genai.DefaultTimeout),
		GenAIDebug:          util.ParseBoolEnv("GENAI_DEBUG", false),
		APIAddr:             os.Getenv("API_ADDR"),
		JWTSecret:           os.Getenv("JWT_SECRET_KEY"),
		JWTExpire:           time.Duration(util.ParseIntEnv("JWT_EXPIRE_MINUTES", int(auth.DefaultTTL/time.Minute))) * time.Minute,
		RedisURL:            os.Getenv("REDIS_URL"),
		WeatherCacheTTL:     util.ParseDurationEnv("WEATHER_CACHE_TTL", weather.DefaultTTL),
		CORSOrigins:         util.SplitListEnv("CORS_ORIGINS", []string{"*"}),
		IntentsFile:         os.Getenv("LANTERN_INTENTS_FILE"),
		ResourcesFile:       os.Getenv("LANTERN_RESOURCES_FILE"),
		PlaybooksFile:       os.Getenv("LANTERN_PLAYBOOKS_FILE"),
		CompanionPromptFile: os.Getenv("LANTERN_COMPANION_PROMPT_FILE"),
		CasualPromptFile:    os.Getenv("LANTERN_CASUAL_PROMPT_FILE"),
		SessionIdleTTL:      util.ParseDurationEnv("SESSION_IDLE_TTL", scheduler.DefaultSessionIdleTTL),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No LANTERN_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// DATABASE_DSN wins over the DATABASE_URL most hosts set.
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = os.Getenv("DATABASE_URL")
	}
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseDSN)
	}

	slog.Debug("environment variables loaded",
		"LANTERN_STATE_DIR", config.StateDir,
		"DATABASE_DSN_TYPE", store.DetectDSNType(config.DatabaseDSN),
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"API_ADDR", config.APIAddr,
		"JWT_SECRET_KEY_SET", config.JWTSecret != "",
		"REDIS_URL_SET", config.RedisURL != "",
		"CORS_ORIGINS", config.CORSOrigins)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(args []string, config Config) (Config, error) {
	fs := flag.NewFlagSet("lantern", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	envDSN := config.DatabaseDSN
	envStateDir := config.StateDir
	cors := strings.Join(config.CORSOrigins, ",")

	fs.StringVar(&config.StateDir, "state-dir", config.StateDir, "state directory for Lantern data (overrides $LANTERN_STATE_DIR)")
	fs.StringVar(&config.DatabaseDSN, "db-dsn", config.DatabaseDSN, "database DSN, a SQLite path or Postgres URL (overrides $DATABASE_DSN or $DATABASE_URL)")
	fs.StringVar(&config.OpenAIKey, "openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)")
	fs.StringVar(&config.OpenAIModel, "openai-model", config.OpenAIModel, "chat model (overrides $OPENAI_MODEL)")
	fs.DurationVar(&config.GenAITimeout, "genai-timeout", config.GenAITimeout, "per-call generation timeout (overrides $GENAI_TIMEOUT)")
	fs.BoolVar(&config.GenAIDebug, "genai-debug", config.GenAIDebug, "write every generation call to <state-dir>/debug (overrides $GENAI_DEBUG)")
	fs.StringVar(&config.APIAddr, "api-addr", config.APIAddr, "API server address (overrides $API_ADDR)")
	fs.StringVar(&config.RedisURL, "redis-url", config.RedisURL, "Redis URL for the shared weather cache (overrides $REDIS_URL)")
	fs.StringVar(&cors, "cors-origins", cors, "comma-separated allowed browser origins (overrides $CORS_ORIGINS)")
	fs.StringVar(&config.IntentsFile, "intents-file", config.IntentsFile, "intent corpus JSON (overrides $LANTERN_INTENTS_FILE)")
	fs.StringVar(&config.ResourcesFile, "resources-file", config.ResourcesFile, "resource catalog JSON (overrides $LANTERN_RESOURCES_FILE)")
	fs.StringVar(&config.PlaybooksFile, "playbooks-file", config.PlaybooksFile, "playbook registry YAML (overrides $LANTERN_PLAYBOOKS_FILE)")
	fs.DurationVar(&config.SessionIdleTTL, "session-idle-ttl", config.SessionIdleTTL, "evict chat sessions idle this long (overrides $SESSION_IDLE_TTL)")

	if err := fs.Parse(args); err != nil {
		return config, err
	}

	config.CORSOrigins = nil
	for _, o := range strings.Split(cors, ",") {
		if o = strings.TrimSpace(o); o != "" {
			config.CORSOrigins = append(config.CORSOrigins, o)
		}
	}

	// Follow -state-dir with the default database unless a DSN was chosen explicitly.
	if config.DatabaseDSN == envDSN && envDSN == filepath.Join(envStateDir, DefaultDBFileName) && config.StateDir != envStateDir {
		config.DatabaseDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("Updated database DSN based on state directory", "state_dir", config.StateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", config.StateDir,
		"dsnType", store.DetectDSNType(config.DatabaseDSN),
		"openaiKeySet", config.OpenAIKey != "",
		"apiAddr", config.APIAddr,
		"sessionIdleTTL", config.SessionIdleTTL)
	return config, nil
}

// run wires the modules together and serves until ctx is canceled.
func run(ctx context.Context, config Config) error {
	if store.DetectDSNType(config.DatabaseDSN) == "sqlite" {
		lock, err := lockfile.AcquireLock(config.StateDir)
		if err != nil {
			return err
		}
		defer lock.Release()
	}
	st, err := openStore(config)
	if err != nil {
		return err
	}
	defer st.Close()

	completer := buildCompleter(config)

	directory := resources.NewDirectory()
	if config.ResourcesFile != "" {
		err = directory.Load(config.ResourcesFile)
	} else {
		err = directory.LoadBytes(data.Resources)
	}
	if err != nil {
		// Degraded, not fatal: search returns nothing and health reports it.
		slog.Warn("Resource catalog unavailable", "error", err)
	}

	var matcher *intent.Matcher
	if config.IntentsFile != "" {
		matcher = intent.NewMatcherFromFile(config.IntentsFile)
	} else {
		matcher = intent.NewMatcher(data.Intents)
	}

	engineOpts := []playbook.EngineOption{
		playbook.WithCompleter(completer),
		playbook.WithCasualPrompt(prompts.LoadOrDefault(config.CasualPromptFile, prompts.Casual())),
	}
	if config.PlaybooksFile != "" {
		registry, err := playbook.LoadRegistryFile(config.PlaybooksFile)
		if err != nil {
			return fmt.Errorf("failed to load playbooks: %w", err)
		}
		engineOpts = append(engineOpts, playbook.WithRegistry(registry))
	}
	engine := playbook.NewEngine(directory, engineOpts...)

	responder := companion.NewResponder(completer,
		companion.WithSystemPrompt(prompts.LoadOrDefault(config.CompanionPromptFile, prompts.Companion())))

	weatherSvc, closeCache := buildWeatherService(ctx, config)
	defer closeCache()

	var tokens *auth.TokenService
	if config.JWTSecret != "" {
		if tokens, err = auth.NewTokenService(config.JWTSecret, config.JWTExpire); err != nil {
			return fmt.Errorf("failed to configure auth: %w", err)
		}
	} else {
		slog.Warn("JWT_SECRET_KEY not set, sign-in and mood tracking are disabled")
	}

	apiOpts := []api.Option{api.WithCORSOrigins(config.CORSOrigins)}
	if config.APIAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(config.APIAddr))
	}
	server, err := api.NewServer(api.Dependencies{
		Engine:    engine,
		Matcher:   matcher,
		Directory: directory,
		Responder: responder,
		Tokens:    tokens,
		Weather:   weatherSvc,
		Store:     st,
	}, apiOpts...)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler()
	if err := sched.ScheduleSessionSweep(scheduler.SessionSweepSpec, responder, config.SessionIdleTTL); err != nil {
		sched.Stop()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		sched.Stop()
		slog.Debug("Scheduler stopped")
		return nil
	})
	return g.Wait()
}

// openStore opens the SQLite or Postgres store the DSN names.
func openStore(config Config) (store.Store, error) {
	if store.DetectDSNType(config.DatabaseDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		pg, err := store.NewPostgresStore(store.WithPostgresDSN(config.DatabaseDSN))
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", config.DatabaseDSN)
	sq, err := store.NewSQLiteStore(store.WithSQLiteDSN(config.DatabaseDSN))
	if err != nil {
		return nil, err
	}
	return sq, nil
}

// buildCompleter returns the OpenAI client, or genai.Disabled when no key is set so
// every generated turn falls back to fixed text.
func buildCompleter(config Config) genai.Completer {
	opts := []genai.Option{
		genai.WithAPIKey(config.OpenAIKey),
		genai.WithTimeout(config.GenAITimeout),
		genai.WithDebugMode(config.GenAIDebug, config.StateDir),
	}
	if config.OpenAIModel != "" {
		opts = append(opts, genai.WithModel(config.OpenAIModel))
	}
	client, err := genai.NewClient(opts...)
	if err != nil {
		slog.Warn("Text generation disabled", "error", err)
		return genai.Disabled{}
	}
	return client
}

// buildWeatherService uses the shared Redis cache when configured and reachable,
// the in-process cache otherwise. The returned func closes the cache.
func buildWeatherService(ctx context.Context, config Config) (*weather.Service, func()) {
	opts := []weather.ServiceOption{weather.WithTTL(config.WeatherCacheTTL)}
	closeCache := func() {}
	if config.RedisURL != "" {
		cache, err := weather.NewRedisCache(ctx, config.RedisURL)
		if err != nil {
			slog.Warn("Redis weather cache unavailable, using memory cache", "error", err)
		} else {
			opts = append(opts, weather.WithCache(cache))
			closeCache = func() {
				if err := cache.Close(); err != nil {
					slog.Warn("Failed to close Redis weather cache", "error", err)
				}
			}
		}
	}
	return weather.NewService(weather.NewOpenMeteo(), opts...), closeCache
}
