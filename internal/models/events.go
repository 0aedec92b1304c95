package models

import "time"

// Event types pushed to websocket subscribers
const (
	EventAlertTriggered    = "alert_triggered"
	EventPortfolioSnapshot = "portfolio_snapshot"
	EventIndexTape         = "index_tape"
)

// Event is one message on the /ws stream
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// AlertNotification is emitted once when an alert triggers
type AlertNotification struct {
	EventID      string    `json:"eventId"`
	AlertID      int64     `json:"alertId"`
	Symbol       string    `json:"symbol"`
	Condition    Condition `json:"condition"`
	CurrentPrice float64   `json:"currentPrice"`
	TargetPrice  float64   `json:"targetPrice"`
	TriggeredAt  time.Time `json:"triggeredAt"`
}

// Title is the short headline for the notification
func (n AlertNotification) Title() string {
	return "Price Alert: " + n.Symbol
}
