package models

import "fmt"

type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "PENDING"
	TradeStatusExecuted  TradeStatus = "EXECUTED"
	TradeStatusCompleted TradeStatus = "COMPLETED"
	TradeStatusCancelled TradeStatus = "CANCELLED"
	TradeStatusFailed    TradeStatus = "FAILED"
)

func (s TradeStatus) Validate() error {
	switch s {
	case TradeStatusPending, TradeStatusExecuted, TradeStatusCompleted, TradeStatusCancelled, TradeStatusFailed:
		return nil
	default:
		return fmt.Errorf("invalid trade status: %s", s)
	}
}
