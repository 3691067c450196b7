package fu

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/accsim/insts"
)

// ErrZeroBudget is returned when a program uses a functional-unit category
// whose budget is zero. Such a program could never make progress.
var ErrZeroBudget = errors.New("zero functional-unit budget")

// Budget is the number of units of one category that may be busy in a
// tick. Unlimited is a distinguished value, not a large number.
type Budget int

// Unlimited marks a category that never limits issue.
const Unlimited Budget = -1

const unlimitedKey = "unlimited"

// IsUnlimited returns true for the Unlimited sentinel.
func (b Budget) IsUnlimited() bool {
	return b == Unlimited
}

func (b Budget) String() string {
	if b.IsUnlimited() {
		return unlimitedKey
	}
	return fmt.Sprintf("%d", int(b))
}

// MarshalJSON encodes Unlimited as the string "unlimited" and anything
// else as a number.
func (b Budget) MarshalJSON() ([]byte, error) {
	if b.IsUnlimited() {
		return json.Marshal(unlimitedKey)
	}
	return json.Marshal(int(b))
}

// UnmarshalJSON accepts a non-negative integer or the string "unlimited".
func (b *Budget) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if strings.EqualFold(s, unlimitedKey) {
			*b = Unlimited
			return nil
		}
		return fmt.Errorf("invalid budget %q", s)
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid budget %s: %w", data, err)
	}
	if n < 0 {
		return fmt.Errorf("invalid budget %d: must be >= 0", n)
	}

	*b = Budget(n)
	return nil
}

// Budgets holds one budget per functional-unit category. In JSON it is an
// object keyed by category name; categories left out keep their current
// value.
type Budgets [insts.NumFU]Budget

// UnlimitedBudgets returns budgets with every category unlimited.
func UnlimitedBudgets() Budgets {
	var b Budgets
	for i := range b {
		b[i] = Unlimited
	}
	return b
}

// UniformBudgets returns budgets with every limited category set to n.
// FUNone stays unlimited.
func UniformBudgets(n int) Budgets {
	b := UnlimitedBudgets()
	for f := insts.FUNone + 1; f < insts.NumFU; f++ {
		b[f] = Budget(n)
	}
	return b
}

// MarshalJSON encodes the budgets keyed by category name.
func (b Budgets) MarshalJSON() ([]byte, error) {
	m := make(map[string]Budget, insts.NumFU)
	for f := insts.FUNone + 1; f < insts.NumFU; f++ {
		m[f.String()] = b[f]
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes a name-keyed object over the current values.
func (b *Budgets) UnmarshalJSON(data []byte) error {
	var m map[string]Budget
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	for name, budget := range m {
		f, err := insts.ParseFU(name)
		if err != nil {
			return err
		}
		if f == insts.FUNone {
			return fmt.Errorf("category %q cannot be budgeted", name)
		}
		b[f] = budget
	}

	return nil
}

// Validate checks the budgets against the static per-category usage of a
// program.
func (b Budgets) Validate(static [insts.NumFU]uint64) error {
	for f := insts.FUNone + 1; f < insts.NumFU; f++ {
		if b[f] < Unlimited {
			return fmt.Errorf("%s: invalid budget %d", f, int(b[f]))
		}
		if b[f] == 0 && static[f] > 0 {
			return fmt.Errorf("%w: %s is used by %d instructions",
				ErrZeroBudget, f, static[f])
		}
	}
	return nil
}
