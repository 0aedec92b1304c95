package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/interfaces"
	"github.com/bobmcallan/tickerwatch/internal/models"
)

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	logger := a.Logger

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createGetQuoteTool(), handleGetQuote(a.Gateway, logger))
	s.AddTool(createSearchSymbolsTool(), handleSearchSymbols(a.Gateway, logger))
	s.AddTool(createListAlertsTool(), handleListAlerts(a.AlertService, logger))
	s.AddTool(createCreateAlertTool(), handleCreateAlert(a.AlertService, logger))
	s.AddTool(createDeleteAlertTool(), handleDeleteAlert(a.AlertService, logger))
	s.AddTool(createPortfolioSummaryTool(), handlePortfolioSummary(a.PortfolioService, logger))
}

func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the tickerwatch server version and status. Use this to verify connectivity."),
	)
}

func createGetQuoteTool() mcp.Tool {
	return mcp.NewTool("get_quote",
		mcp.WithDescription("Get the latest quote for a symbol: price, change, day range, volume and 52-week range."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Yahoo-style symbol (e.g., 'AAPL', 'RELIANCE.NS', 'BTC-USD', '^NSEI')"),
		),
	)
}

func createSearchSymbolsTool() mcp.Tool {
	return mcp.NewTool("search_symbols",
		mcp.WithDescription("Search for stock, index and crypto symbols by name or ticker."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text query (e.g., 'tata', 'apple')"),
		),
	)
}

func createListAlertsTool() mcp.Tool {
	return mcp.NewTool("list_alerts",
		mcp.WithDescription("List every price alert with its status."),
	)
}

func createCreateAlertTool() mcp.Tool {
	return mcp.NewTool("create_alert",
		mcp.WithDescription("Create a price alert that fires once when the price crosses the target (inclusive)."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Symbol to watch"),
		),
		mcp.WithNumber("target_price",
			mcp.Required(),
			mcp.Description("Target price, greater than zero"),
		),
		mcp.WithString("condition",
			mcp.Required(),
			mcp.Description("'above' fires at or above the target, 'below' at or below"),
			mcp.Enum("above", "below"),
		),
	)
}

func createDeleteAlertTool() mcp.Tool {
	return mcp.NewTool("delete_alert",
		mcp.WithDescription("Delete a price alert by id."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Alert id as returned by list_alerts"),
		),
	)
}

func createPortfolioSummaryTool() mcp.Tool {
	return mcp.NewTool("portfolio_summary",
		mcp.WithDescription("Value the paper portfolio against the latest polled prices. Returns per-holding P/L and totals."),
	)
}

func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("tickerwatch\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

func handleGetQuote(gateway interfaces.QuoteGateway, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil || strings.TrimSpace(symbol) == "" {
			return errorResult("Error: symbol parameter is required"), nil
		}

		q, err := gateway.GetQuote(ctx, symbol)
		if err != nil {
			if common.IsUnknownSymbol(err) {
				return errorResult(fmt.Sprintf("Symbol %s not found", strings.ToUpper(symbol))), nil
			}
			logger.Warn().Err(err).Str("symbol", symbol).Msg("get_quote failed")
			return errorResult(fmt.Sprintf("Quote error: %v", err)), nil
		}
		return textResult(formatQuote(q)), nil
	}
}

func handleSearchSymbols(gateway interfaces.QuoteGateway, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return errorResult("Error: query parameter is required"), nil
		}

		results, err := gateway.Search(ctx, query)
		if err != nil {
			logger.Warn().Err(err).Str("query", query).Msg("search_symbols failed")
			results = nil
		}
		if len(results) == 0 {
			return textResult("No results"), nil
		}

		var sb strings.Builder
		sb.WriteString("| Symbol | Name | Exchange | Type |\n|---|---|---|---|\n")
		for _, r := range results {
			name := r.LongName
			if name == "" {
				name = r.ShortName
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", r.Symbol, name, r.Exchange, r.TypeDisp)
		}
		return textResult(sb.String()), nil
	}
}

func handleListAlerts(alerts interfaces.AlertService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := alerts.List(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("list_alerts failed")
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}
		if len(list) == 0 {
			return textResult("No alerts"), nil
		}

		var sb strings.Builder
		sb.WriteString("| ID | Symbol | Condition | Target | Status |\n|---|---|---|---|---|\n")
		for _, a := range list {
			fmt.Fprintf(&sb, "| %d | %s | %s | %.2f | %s |\n", a.ID, a.Symbol, a.Condition, a.TargetPrice, alertStatus(a))
		}
		return textResult(sb.String()), nil
	}
}

func handleCreateAlert(alerts interfaces.AlertService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil {
			return errorResult("Error: symbol parameter is required"), nil
		}
		target, err := request.RequireFloat("target_price")
		if err != nil {
			return errorResult("Error: target_price parameter is required"), nil
		}
		condition := request.GetString("condition", "")

		a, err := alerts.Create(ctx, models.AlertInput{
			Symbol:      symbol,
			TargetPrice: target,
			Condition:   models.Condition(condition),
		})
		if err != nil {
			if !common.IsValidation(err) && !common.IsUnknownSymbol(err) {
				logger.Error().Err(err).Str("symbol", symbol).Msg("create_alert failed")
			}
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}
		return textResult(fmt.Sprintf("Alert %d created: %s %s %.2f", a.ID, a.Symbol, a.Condition, a.TargetPrice)), nil
	}
}

func handleDeleteAlert(alerts interfaces.AlertService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireFloat("id")
		if err != nil {
			return errorResult("Error: id parameter is required"), nil
		}

		if err := alerts.Delete(ctx, int64(id)); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return errorResult(fmt.Sprintf("Alert %d not found", int64(id))), nil
			}
			logger.Error().Err(err).Int64("id", int64(id)).Msg("delete_alert failed")
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}
		return textResult(fmt.Sprintf("Alert %d deleted", int64(id))), nil
	}
}

func handlePortfolioSummary(portfolio interfaces.PortfolioService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap, err := portfolio.Snapshot(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("portfolio_summary failed")
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}
		return textResult(formatSnapshot(snap)), nil
	}
}

func alertStatus(a models.Alert) string {
	switch {
	case a.Triggered:
		return "triggered"
	case !a.Active:
		return "inactive"
	default:
		return "watching"
	}
}

func optional(o models.Optional[float64]) string {
	if !o.Valid {
		return "-"
	}
	return fmt.Sprintf("%.2f", o.Value)
}

func formatQuote(q *models.Quote) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s (%s)\n\n", q.DisplayName(), q.Symbol)
	fmt.Fprintf(&sb, "Price: %.2f %s\n", q.Price, q.Currency)
	if q.Change.Valid && q.ChangePercent.Valid {
		fmt.Fprintf(&sb, "Change: %+.2f (%+.2f%%)\n", q.Change.Value, q.ChangePercent.Value)
	}
	fmt.Fprintf(&sb, "Open: %s  High: %s  Low: %s  Prev close: %s\n",
		optional(q.Open), optional(q.DayHigh), optional(q.DayLow), optional(q.PreviousClose))
	if q.Volume.Valid {
		fmt.Fprintf(&sb, "Volume: %d\n", q.Volume.Value)
	}
	if q.FiftyTwoWeekHigh.Valid || q.FiftyTwoWeekLow.Valid {
		fmt.Fprintf(&sb, "52w range: %s - %s\n", optional(q.FiftyTwoWeekLow), optional(q.FiftyTwoWeekHigh))
	}
	if q.Exchange != "" {
		fmt.Fprintf(&sb, "Exchange: %s\n", q.Exchange)
	}
	return sb.String()
}

func formatSnapshot(snap *models.PortfolioSnapshot) string {
	if len(snap.Holdings) == 0 {
		return "Portfolio is empty"
	}
	var sb strings.Builder
	sb.WriteString("| Symbol | Qty | Buy | Now | Value | P/L | P/L % |\n|---|---|---|---|---|---|---|\n")
	for _, h := range snap.Holdings {
		now := "-"
		if h.PriceAvailable {
			now = fmt.Sprintf("%.2f", h.CurrentPrice)
		}
		fmt.Fprintf(&sb, "| %s | %d | %.2f | %s | %.2f | %+.2f | %+.2f%% |\n",
			h.Symbol, h.Quantity, h.PurchasePrice, now, h.CurrentValue, h.ProfitLoss, h.ProfitLossPercent)
	}
	s := snap.Summary
	fmt.Fprintf(&sb, "\nInvested: %.2f  Value: %.2f  P/L: %+.2f (%+.2f%%)\n",
		s.TotalInvestment, s.CurrentValue, s.TotalProfitLoss, s.TotalProfitLossPercent)
	if s.PricedHoldings < s.Holdings {
		fmt.Fprintf(&sb, "%d of %d holdings have no current price and are valued at 0\n", s.Holdings-s.PricedHoldings, s.Holdings)
	}
	return sb.String()
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
