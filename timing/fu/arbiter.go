// Package fu provides the functional-unit arbiter.
//
// Units become free every tick: Clear resets the live counts, and an
// instruction that stays in flight for more than one tick checks again for
// a unit every tick it remains.
package fu

import "github.com/sarchlab/accsim/insts"

// Arbiter tracks how many units of each category are busy in the current
// tick and decides whether one more may be used.
type Arbiter struct {
	budgets Budgets
	live    [insts.NumFU]uint64
	peak    [insts.NumFU]uint64
}

// NewArbiter creates an arbiter. Budgets are copied and never change
// afterwards.
func NewArbiter(budgets Budgets) *Arbiter {
	return &Arbiter{budgets: budgets}
}

// TryAcquire takes one unit of category f. An unlimited category always
// succeeds and only counts usage. A limited category succeeds while the
// live count is below budget; on failure nothing changes. FUNone is never
// limited and never counted.
func (a *Arbiter) TryAcquire(f insts.FU) bool {
	if f == insts.FUNone || f >= insts.NumFU {
		return true
	}

	b := a.budgets[f]
	if !b.IsUnlimited() && a.live[f] >= uint64(b) {
		return false
	}

	a.live[f]++
	if a.live[f] > a.peak[f] {
		a.peak[f] = a.live[f]
	}

	return true
}

// Clear frees every unit. It is called once at the start of each tick.
func (a *Arbiter) Clear() {
	a.live = [insts.NumFU]uint64{}
}

// Live returns the number of busy units of category f.
func (a *Arbiter) Live(f insts.FU) uint64 {
	return a.live[f]
}

// Peak returns the highest per-category live count seen so far.
func (a *Arbiter) Peak() [insts.NumFU]uint64 {
	return a.peak
}

// Budget returns the configured budget of category f.
func (a *Arbiter) Budget(f insts.FU) Budget {
	return a.budgets[f]
}

// Budgets returns a copy of all configured budgets.
func (a *Arbiter) Budgets() Budgets {
	return a.budgets
}
