package market

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/tickerwatch/internal/models"
)

// RenderHistoryChart renders a PNG line chart of closing prices.
// Returns raw PNG bytes.
func (s *Service) RenderHistoryChart(symbol string, points []models.HistoryPoint) ([]byte, error) {
	return RenderHistoryChart(symbol, points)
}

// RenderHistoryChart renders closes as one line, green when the last close
// is at or above the first and red otherwise.
func RenderHistoryChart(symbol string, points []models.HistoryPoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}

	xValues := make([]time.Time, len(points))
	yValues := make([]float64, len(points))
	for i, p := range points {
		xValues[i] = p.Timestamp
		yValues[i] = p.Close
	}

	color := drawing.ColorFromHex("16a34a") // green-600
	if yValues[len(yValues)-1] < yValues[0] {
		color = drawing.ColorFromHex("dc2626") // red-600
	}

	span := xValues[len(xValues)-1].Sub(xValues[0])
	layout := "Jan 06"
	switch {
	case span <= 48*time.Hour:
		layout = "15:04"
	case span <= 120*24*time.Hour:
		layout = "02 Jan"
	}

	series := chart.TimeSeries{
		Name: symbol,
		Style: chart.Style{
			StrokeColor: color,
			StrokeWidth: 2,
			FillColor:   color.WithAlpha(32),
		},
		XValues: xValues,
		YValues: yValues,
	}

	graph := chart.Chart{
		Title:  symbol,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format(layout)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{series},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
