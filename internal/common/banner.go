package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner to stderr.
func PrintBanner(config *Config, logger *Logger) {
	version := GetVersion()
	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)
	storage := config.Storage.Backend
	if config.Storage.Backend == "surrealdb" {
		storage += " " + config.Storage.Address
	} else if config.Storage.Path != "" && config.Storage.Backend != "memory" {
		storage += " " + config.Storage.Path
	}
	gateway := config.Gateway.Primary
	if config.Gateway.Fallback != "" && config.Gateway.EODHD.APIKey != "" {
		gateway += " -> " + config.Gateway.Fallback
	}

	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 60
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	art := []string{
		` _____ ___ ___ _  _______ _____        ___  _____ ___ _   _ `,
		`|_   _|_ _/ __| |/ / ____|  _  \ \      / / \|_   _/ __| | | |`,
		`  | |  | | (__| ' /|  _| | |_) |\ \ /\ / / _ \ | || (__| |_| |`,
		`  | |  | |\___| . \| |___|  _ <  \ V  V / ___ \| | \___|  _  |`,
		`  |_| |___|   |_|\_\_____|_| \_\  \_/\_/_/   \_\_|     |_| |_|`,
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
	for _, line := range art {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n%s  Price Alerts & Paper Portfolio%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	kvPad := 16
	kvLines := [][2]string{
		{"Version", version},
		{"Build", GetBuild()},
		{"Commit", GetGitCommit()},
		{"Environment", config.Environment},
		{"Service URL", serviceURL},
		{"Storage", storage},
		{"Gateway", gateway},
		{"Alert loop", config.Engine.GetAlertInterval().String()},
		{"Portfolio loop", config.Engine.GetPortfolioInterval().String()},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(os.Stderr, "%s  %-*s %s%s\n", textColor, kvPad, kv[0], kv[1], banner.ColorReset)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	logger.Info().
		Str("version", version).
		Str("environment", config.Environment).
		Str("service_url", serviceURL).
		Str("storage", storage).
		Str("gateway", gateway).
		Msg("Application started")
}

// PrintShutdownBanner displays the application shutdown banner to stderr.
func PrintShutdownBanner(logger *Logger) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 42) + banner.ColorReset

	fmt.Fprintf(os.Stderr, "\n%s\n", hr)
	fmt.Fprintf(os.Stderr, "%s  TICKERWATCH SHUTTING DOWN%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "%s\n\n", hr)

	logger.Info().Msg("Application shutting down")
}
