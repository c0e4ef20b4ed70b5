package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"github.com/sbilibin2017/kologin/internal/console"
	"github.com/sbilibin2017/kologin/internal/events"
	"github.com/sbilibin2017/kologin/internal/facades"
	"github.com/sbilibin2017/kologin/internal/i18n"
	"github.com/sbilibin2017/kologin/internal/logger"
	"github.com/sbilibin2017/kologin/internal/middlewares"
	"github.com/sbilibin2017/kologin/internal/repositories"
	"github.com/sbilibin2017/kologin/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the client
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

const (
	settingsRedisKey   = "kologin:settings"
	profileRedisPrefix = "kologin:profile:"
)

var errTooManyAttempts = errors.New("too many failed login attempts")

func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("login failed: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Fprintf(os.Stderr, "kologin Version: %s, Commit: %s, Build: %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file, when it exists, and reads them into a Config.
// Unset file locations default to ~/.kologin.
func parseConfig(path string) (Config, error) {
	_ = godotenv.Load(path)

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.SettingsFile == "" || cfg.ProfileFile == "" || (cfg.SQLDriver == "sqlite" && cfg.SQLDSN == "") {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".kologin")
		if cfg.SettingsFile == "" {
			cfg.SettingsFile = filepath.Join(dir, "settings.yaml")
		}
		if cfg.ProfileFile == "" {
			cfg.ProfileFile = filepath.Join(dir, "profiles.json")
		}
		if cfg.SQLDriver == "sqlite" && cfg.SQLDSN == "" {
			cfg.SQLDSN = filepath.Join(dir, "settings.db")
		}
	}
	if cfg.CaptchaDir == "" {
		cfg.CaptchaDir = filepath.Join(os.TempDir(), "kologin")
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return cfg, nil
}

// run wires the login controller to the console API, the configured stores and the terminal,
// then drives the login form until a login succeeds, the user quits or ctx ends.
func run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel, cfg.LogOutput); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Log.Sync()
	logger.Log.Infow("starting login client", "server", cfg.ServerURL, "version", buildVersion)

	translator, err := i18n.New(i18n.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	// HTTP client for the console API
	var controller *services.LoginController
	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: middlewares.Chain(http.DefaultTransport,
			middlewares.LoggingTransport(logger.Log),
			middlewares.LanguageTransport(func() string {
				if controller == nil {
					return translator.Language()
				}
				return controller.Credential().Language
			}),
		),
	}

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Log.Warnw("failed to release resource", "error", err)
			}
		}
	}()

	var rdb *redis.Client
	redisClient := func() (*redis.Client, error) {
		if rdb != nil {
			return rdb, nil
		}
		client, err := newRedisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		rdb = client
		closers = append(closers, rdb.Close)
		return rdb, nil
	}

	settings, err := newSettingsStore(ctx, cfg, redisClient, &closers)
	if err != nil {
		return err
	}
	profiles, err := newProfileStore(cfg, redisClient)
	if err != nil {
		return err
	}

	var publisher interface {
		services.EventPublisher
		Close() error
	} = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Log.Infow("publishing login events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	closers = append(closers, publisher.Close)

	// Terminal
	termOpts := []console.TerminalOption{console.WithCaptchaDir(cfg.CaptchaDir)}
	var openURL func(string) error
	if cfg.OpenBrowser {
		browser.Stdout = io.Discard
		termOpts = append(termOpts, console.WithImageViewer(browser.OpenFile))
		openURL = browser.OpenURL
	}
	terminal := console.NewTerminal(in, out, translator, termOpts...)

	// Services
	sessionFacade := facades.NewSessionHTTPFacade(cfg.ServerURL, httpClient)
	sessionService := services.NewSessionService(sessionFacade, profiles, cfg.ProfileTTL)

	controller = services.NewLoginController(services.LoginDeps{
		Session:        sessionService,
		Theme:          facades.NewThemeHTTPFacade(cfg.ServerURL, httpClient),
		Translator:     translator,
		Navigator:      console.NewBrowserNavigator(cfg.ServerURL, out, translator, openURL),
		Settings:       settings,
		Title:          terminal,
		ForgotPassword: console.NewForgotPasswordDialog(cfg.ServerURL, out, translator),
		Events:         publisher,
	})
	defer controller.Close()

	if err := controller.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize login form: %w", err)
	}

	return loginLoop(ctx, controller, terminal, translator, cfg.MaxAttempts)
}

func newRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection error: %w", err)
	}
	return rdb, nil
}

func newSettingsStore(
	ctx context.Context,
	cfg Config,
	redisClient func() (*redis.Client, error),
	closers *[]func() error,
) (services.SettingsStore, error) {
	switch cfg.SettingsBackend {
	case "file":
		return repositories.NewSettingsFileRepository(afero.NewOsFs(), cfg.SettingsFile), nil
	case "redis":
		rdb, err := redisClient()
		if err != nil {
			return nil, err
		}
		return repositories.NewSettingsRedisRepository(rdb, settingsRedisKey), nil
	case "sql":
		if cfg.SQLDriver == "sqlite" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLDSN), 0o700); err != nil {
				return nil, fmt.Errorf("create settings dir: %w", err)
			}
		}
		db, err := sqlx.ConnectContext(ctx, cfg.SQLDriver, cfg.SQLDSN)
		if err != nil {
			return nil, fmt.Errorf("%s connection error: %w", cfg.SQLDriver, err)
		}
		*closers = append(*closers, db.Close)

		repo := repositories.NewSettingsSQLRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate settings: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown settings backend %q", cfg.SettingsBackend)
	}
}

func newProfileStore(cfg Config, redisClient func() (*redis.Client, error)) (services.ProfileWriter, error) {
	switch cfg.ProfileBackend {
	case "file":
		return repositories.NewProfileFileRepository(afero.NewOsFs(), cfg.ProfileFile), nil
	case "redis":
		rdb, err := redisClient()
		if err != nil {
			return nil, err
		}
		return repositories.NewProfileRedisRepository(rdb, profileRedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown profile backend %q", cfg.ProfileBackend)
	}
}

type formResult struct {
	input console.Input
	err   error
}

// readForm reads one form in the background so ctx can interrupt a blocked read.
func readForm(ctx context.Context, terminal *console.Terminal) (console.Input, error) {
	ch := make(chan formResult, 1)
	go func() {
		input, err := terminal.ReadForm()
		ch <- formResult{input: input, err: err}
	}()

	select {
	case <-ctx.Done():
		return console.Input{}, ctx.Err()
	case res := <-ch:
		return res.input, res.err
	}
}

func loginLoop(
	ctx context.Context,
	controller *services.LoginController,
	terminal *console.Terminal,
	translator *i18n.Translator,
	maxAttempts int,
) error {
	var shown string
	failures := 0

	terminal.ShowHelp(translator.Supported()...)
	for {
		if captcha := controller.Captcha(); captcha.CaptchaID != "" && captcha.CaptchaID != shown {
			if _, err := terminal.ShowCaptcha(captcha); err != nil {
				logger.Log.Warnw("failed to show captcha", "captcha_id", captcha.CaptchaID, "error", err)
			}
			shown = captcha.CaptchaID
		}
		terminal.ShowMessage(controller.Message(), controller.IsError())

		input, err := readForm(ctx, terminal)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		switch input.Command {
		case console.CommandQuit:
			return nil
		case console.CommandHelp:
			terminal.ShowHelp(translator.Supported()...)
		case console.CommandReset:
			controller.Reset()
		case console.CommandForgot:
			if err := controller.ForgotPassword(); err != nil {
				logger.Log.Warnw("failed to open forgot password dialog", "error", err)
			}
		case console.CommandRefresh:
			if err := controller.RefreshCaptcha(ctx); err != nil {
				return err
			}
		case console.CommandLanguage:
			if !translator.Supports(input.Language) {
				terminal.ShowMessage(translator.Instant(i18n.KeyUnsupportedLang)+" "+strings.Join(translator.Supported(), ", "), true)
				break
			}
			if err := controller.SetLanguage(input.Language); err != nil {
				terminal.ShowMessage(err.Error(), true)
			}
		case console.CommandSubmit:
			controller.SetCredential(input.Username, input.Password, input.Code)
			err := controller.Submit(ctx)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, services.ErrClosed), ctx.Err() != nil:
				return nil
			case !controller.IsError():
				// The session is open; only the hand-over to the browser failed.
				logger.Log.Warnw("failed to open console", "error", err)
				return nil
			}

			failures++
			if failures >= maxAttempts {
				terminal.ShowMessage(controller.Message(), controller.IsError())
				terminal.ShowMessage(translator.Instant(i18n.KeyTooManyAttempts), true)
				return errTooManyAttempts
			}
		}
	}
}
