package backtest

import (
	"errors"
	"fmt"
)

// ErrNoPriceData indicates that no historical bars could be retrieved for
// an asset. In multi-asset runs the asset is dropped; if every asset fails
// the run produces a Result with its Error field set.
var ErrNoPriceData = errors.New("backtest: no price data available")

// InvariantError reports a simulation-state violation such as negative
// open shares. It indicates an engine bug and is never swallowed.
type InvariantError struct {
	Asset  string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("backtest: invariant violated for %s: %s", e.Asset, e.Detail)
}
