package domain

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Action is the side of a recorded trade.
type Action int

const (
	ActionBuy Action = iota + 1
	ActionSell
)

// action string constants to avoid magic strings
const (
	actionStringBuy  = "buy"
	actionStringSell = "sell"
)

// ParseAction converts "buy"/"sell" (any case) into an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case actionStringBuy:
		return ActionBuy, nil
	case actionStringSell:
		return ActionSell, nil
	}
	return 0, errors.Wrapf(ErrUnknownAction, "%q", s)
}

// IsValid reports whether the action is Buy or Sell.
func (a Action) IsValid() bool {
	return a == ActionBuy || a == ActionSell
}

// String returns the string representation of the action
func (a Action) String() string {
	switch a {
	case ActionBuy:
		return actionStringBuy
	case ActionSell:
		return actionStringSell
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the action as "buy" or "sell".
func (a Action) MarshalJSON() ([]byte, error) {
	if !a.IsValid() {
		return nil, errors.Wrapf(ErrUnknownAction, "%d", int(a))
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes "buy" or "sell".
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "decode action")
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
