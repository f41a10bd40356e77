package models

import "fmt"

type TradeAction string

const (
	TradeActionBuy        TradeAction = "BUY"
	TradeActionSell       TradeAction = "SELL"
	TradeActionHold       TradeAction = "HOLD"
	TradeActionShortSell  TradeAction = "SHORT_SELL"
	TradeActionCoverShort TradeAction = "COVER_SHORT"
)

func (a TradeAction) Validate() error {
	switch a {
	case TradeActionBuy, TradeActionSell, TradeActionHold, TradeActionShortSell, TradeActionCoverShort:
		return nil
	default:
		return fmt.Errorf("invalid trade action: %s", a)
	}
}

// IsOpening reports whether the action increases exposure.
func (a TradeAction) IsOpening() bool {
	return a == TradeActionBuy || a == TradeActionShortSell
}
