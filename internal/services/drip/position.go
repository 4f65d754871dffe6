package drip

import (
	"github.com/shopspring/decimal"
)

// shareDecimals is the precision floor applied after every share mutation.
const shareDecimals = 4

// position is the per-symbol simulation state.
type position struct {
	shares      float64
	pendingCash float64
	priorShares float64
	started     bool
}

// buy opens the position with the whole base at price.
func (p *position) buy(base, price float64) {
	p.shares = roundShares(base / price)
	p.started = true
}

// accrue credits a dividend against the shares held at the prior close.
func (p *position) accrue(amount float64) {
	p.pendingCash += p.priorShares * amount
}

func (p *position) split(ratio float64) {
	p.shares = roundShares(p.shares * ratio)
}

// reinvest converts pending cash into shares at the open price.
func (p *position) reinvest(open float64) {
	if p.pendingCash <= 0 || open <= 0 {
		return
	}
	added := roundShares(p.pendingCash / open)
	p.shares = roundShares(p.shares + added)
	p.pendingCash = 0
}

// close records the end-of-day share count for the next day's accruals.
func (p *position) close() {
	p.priorShares = p.shares
}

func roundShares(x float64) float64 {
	if !isFinite(x) {
		return x
	}
	return decimal.NewFromFloat(x).Round(shareDecimals).InexactFloat64()
}
