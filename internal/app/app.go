package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/tickerwatch/internal/clients/eodhd"
	"github.com/bobmcallan/tickerwatch/internal/clients/yahoo"
	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/interfaces"
	"github.com/bobmcallan/tickerwatch/internal/models"
	"github.com/bobmcallan/tickerwatch/internal/services/alert"
	"github.com/bobmcallan/tickerwatch/internal/services/market"
	"github.com/bobmcallan/tickerwatch/internal/services/notify"
	"github.com/bobmcallan/tickerwatch/internal/services/portfolio"
	"github.com/bobmcallan/tickerwatch/internal/services/quote"
	"github.com/bobmcallan/tickerwatch/internal/storage"
)

// App holds all initialized services, clients, and the MCP server.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Blobs            interfaces.BlobStore
	Alerts           interfaces.CollectionStore[models.Alert]
	Holdings         interfaces.CollectionStore[models.Holding]
	Gateway          interfaces.QuoteGateway
	AlertService     interfaces.AlertService
	PortfolioService interfaces.PortfolioService
	MarketService    interfaces.MarketService
	Hub              *notify.Hub
	Notifier         interfaces.Notifier
	MCPServer        *server.MCPServer
	StartupTime      time.Time

	scheduler *Scheduler
	logCloser io.Closer
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: the given path, TICKERWATCH_CONFIG,
// tickerwatch.toml next to the binary, then config/tickerwatch.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("TICKERWATCH_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "tickerwatch.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/tickerwatch.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes the whole application.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	binDir := getBinaryDir()
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger, closer, err := common.NewLoggerFromConfig(config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a, err := New(context.Background(), config, logger)
	if err != nil {
		closer.Close()
		return nil, err
	}
	a.logCloser = closer
	return a, nil
}

// New wires an App from an already loaded config and logger.
func New(ctx context.Context, config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	blobs, err := storage.NewBlobStore(ctx, logger, &config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	gateway, err := buildGateway(config, logger)
	if err != nil {
		blobs.Close()
		return nil, err
	}

	alerts := storage.NewCollection[models.Alert](blobs, models.AlertsCollection, logger)
	holdings := storage.NewCollection[models.Holding](blobs, models.PortfolioCollection, logger)

	hub := notify.NewHub(logger)
	go hub.Run()

	var webhook interfaces.Notifier
	if config.Notify.WebhookURL != "" {
		webhook = notify.NewWebhookNotifier(config.Notify.WebhookURL, config.Notify.GetWebhookTimeout(), logger)
	}
	notifier := notify.NewMulti(logger, notify.NewLogNotifier(logger), hub, webhook)

	ids := common.NewIDSource(nil)
	concurrency := config.Engine.GetFetchConcurrency()

	alertService := alert.NewService(alerts, gateway, notifier, ids, logger)
	alertService.SetConcurrency(concurrency)
	portfolioService := portfolio.NewService(holdings, gateway, ids, logger)
	portfolioService.SetConcurrency(concurrency)
	marketService := market.NewService(gateway, logger)
	marketService.SetConcurrency(concurrency)

	mcpServer := server.NewMCPServer(
		"tickerwatch",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:           config,
		Logger:           logger,
		Blobs:            blobs,
		Alerts:           alerts,
		Holdings:         holdings,
		Gateway:          gateway,
		AlertService:     alertService,
		PortfolioService: portfolioService,
		MarketService:    marketService,
		Hub:              hub,
		Notifier:         notifier,
		MCPServer:        mcpServer,
		StartupTime:      startupStart,
	}

	a.registerTools()

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

// buildGateway assembles the quote facade from the configured primary and fallback.
func buildGateway(config *common.Config, logger *common.Logger) (interfaces.QuoteGateway, error) {
	gc := config.Gateway

	clients := map[string]interfaces.QuoteGateway{
		"yahoo": yahoo.NewClient(
			yahoo.WithBaseURL(gc.Yahoo.BaseURL),
			yahoo.WithLogger(logger),
			yahoo.WithRateLimit(gc.Yahoo.RateLimit),
			yahoo.WithTimeout(gc.Yahoo.GetTimeout()),
		),
	}
	if gc.EODHD.APIKey != "" {
		clients["eodhd"] = eodhd.NewClient(gc.EODHD.APIKey,
			eodhd.WithBaseURL(gc.EODHD.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(gc.EODHD.RateLimit),
			eodhd.WithTimeout(gc.EODHD.GetTimeout()),
		)
	} else {
		logger.Debug().Msg("EODHD API key not configured - fallback gateway disabled")
	}

	primaryName := strings.ToLower(gc.Primary)
	if primaryName == "" {
		primaryName = "yahoo"
	}
	primary, ok := clients[primaryName]
	if !ok {
		return nil, fmt.Errorf("gateway %q is not available (unknown name or missing API key)", gc.Primary)
	}

	opts := []quote.Option{quote.WithTimeout(gc.GetTimeout())}
	fallbackName := strings.ToLower(gc.Fallback)
	if fallbackName != "" && fallbackName != "none" && fallbackName != primaryName {
		if fb, ok := clients[fallbackName]; ok {
			opts = append(opts, quote.WithFallback(fallbackName, fb))
		}
	}

	return quote.NewService(primaryName, primary, logger, opts...), nil
}

// StartEngines launches the alert, portfolio and index tape loops.
func (a *App) StartEngines() {
	if a.scheduler != nil {
		return
	}
	a.scheduler = NewScheduler(a.Logger)
	engine := a.Config.Engine

	a.scheduler.Every("alerts", engine.GetAlertInterval(), a.evaluateAlerts)
	a.scheduler.Every("portfolio", engine.GetPortfolioInterval(), a.refreshPortfolio)
	a.scheduler.Every("indices", engine.GetTickerInterval(), a.refreshIndices)
}

func (a *App) evaluateAlerts(ctx context.Context) {
	if _, err := a.AlertService.Evaluate(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Alert evaluation failed")
	}
}

func (a *App) refreshPortfolio(ctx context.Context) {
	if err := a.PortfolioService.RefreshPrices(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Portfolio price refresh failed")
		return
	}
	snap, err := a.PortfolioService.Snapshot(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Portfolio snapshot failed")
		return
	}
	a.Hub.Publish(models.EventPortfolioSnapshot, snap)
}

func (a *App) refreshIndices(ctx context.Context) {
	if err := a.MarketService.RefreshIndices(ctx); err != nil {
		a.Logger.Debug().Err(err).Msg("Index tape refresh interrupted")
		return
	}
	a.Hub.Publish(models.EventIndexTape, a.MarketService.Indices())
}

// Close releases all resources held by the App.
// Shutdown order: stop engines, stop hub, close storage, close log files.
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
		a.scheduler = nil
	}
	if a.Hub != nil {
		a.Hub.Stop()
	}
	if a.Blobs != nil {
		if err := a.Blobs.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Blobs = nil
	}
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
}
