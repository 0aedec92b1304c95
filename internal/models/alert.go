// Package models defines data structures for tickerwatch
package models

import (
	"math"
	"time"

	"github.com/bobmcallan/tickerwatch/internal/common"
)

// Collection names under which user state is persisted.
const (
	AlertsCollection    = "stockAlerts"
	PortfolioCollection = "stockPortfolio"
)

// Condition is the direction an alert watches for
type Condition string

const (
	ConditionAbove Condition = "above"
	ConditionBelow Condition = "below"
)

// Valid reports whether c is one of the two known conditions
func (c Condition) Valid() bool {
	return c == ConditionAbove || c == ConditionBelow
}

// Alert is a user-defined price threshold on one symbol.
// Triggered is terminal: once set it is never cleared by the engine.
type Alert struct {
	ID          int64      `json:"id"`
	Symbol      string     `json:"symbol"`
	TargetPrice float64    `json:"targetPrice"`
	Condition   Condition  `json:"condition"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"createdAt"`
	Triggered   bool       `json:"triggered,omitempty"`
	TriggeredAt *time.Time `json:"triggeredAt,omitempty"`
}

// Eligible reports whether the alert takes part in evaluation
func (a *Alert) Eligible() bool {
	return a.Active && !a.Triggered
}

// ShouldTrigger applies the inclusive threshold predicate to price.
func (a *Alert) ShouldTrigger(price float64) bool {
	switch a.Condition {
	case ConditionAbove:
		return price >= a.TargetPrice
	case ConditionBelow:
		return price <= a.TargetPrice
	default:
		return false
	}
}

// MarkTriggered records the first trigger. Later calls are no-ops.
func (a *Alert) MarkTriggered(at time.Time) bool {
	if a.Triggered {
		return false
	}
	a.Triggered = true
	t := at.UTC()
	a.TriggeredAt = &t
	return true
}

// Validate checks the fields a caller supplies on creation
func (a *Alert) Validate() error {
	if a.Symbol == "" {
		return common.NewValidationError("symbol", "is required")
	}
	if math.IsNaN(a.TargetPrice) || math.IsInf(a.TargetPrice, 0) || a.TargetPrice <= 0 {
		return common.NewValidationError("targetPrice", "must be a number greater than zero")
	}
	if !a.Condition.Valid() {
		return common.NewValidationError("condition", `must be "above" or "below"`)
	}
	return nil
}

// AlertInput is the caller-supplied part of a new alert
type AlertInput struct {
	Symbol      string    `json:"symbol"`
	TargetPrice float64   `json:"targetPrice"`
	Condition   Condition `json:"condition"`
}

// Evaluation reports the outcome of one alert evaluation tick
type Evaluation struct {
	Checked       int       `json:"checked"`
	Symbols       int       `json:"symbols"`
	FetchFailures int       `json:"fetchFailures"`
	Triggered     []Alert   `json:"triggered"`
	SkippedGone   int       `json:"skippedGone"`
	StartedAt     time.Time `json:"startedAt"`
	Duration      float64   `json:"durationMs"`
}
