package models

import "fmt"

type DecisionResult string

const (
	DecisionResultBuy    DecisionResult = "BUY"
	DecisionResultSell   DecisionResult = "SELL"
	DecisionResultHold   DecisionResult = "HOLD"
	DecisionResultCancel DecisionResult = "CANCEL"
)

const (
	DecisionResultShortSell  DecisionResult = "SHORT_SELL"
	DecisionResultCoverShort DecisionResult = "COVER_SHORT"
)

func (r DecisionResult) Validate() error {
	switch r {
	case DecisionResultBuy, DecisionResultSell, DecisionResultHold, DecisionResultCancel,
		DecisionResultShortSell, DecisionResultCoverShort:
		return nil
	default:
		return fmt.Errorf("invalid decision result: %s", r)
	}
}

// DecisionResultFromAction maps an executed action back to its decision
// verdict.
func DecisionResultFromAction(a TradeAction) DecisionResult {
	switch a {
	case TradeActionBuy:
		return DecisionResultBuy
	case TradeActionSell:
		return DecisionResultSell
	case TradeActionShortSell:
		return DecisionResultShortSell
	case TradeActionCoverShort:
		return DecisionResultCoverShort
	default:
		return DecisionResultHold
	}
}
