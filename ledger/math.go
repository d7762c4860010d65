package ledger

import (
	"math"

	"github.com/mtlnet/mtl/errors"
)

// Balances are fixed-width uint16; arithmetic that would wrap is
// rejected, never truncated.

func addChecked(a, b uint16) (uint16, error) {
	if a > math.MaxUint16-b {
		return 0, errors.Newf(errors.CodeBalanceOverflow,
			"balance %d + %d exceeds %d", a, b, uint16(math.MaxUint16))
	}
	return a + b, nil
}

func subChecked(a, b uint16) (uint16, error) {
	if b > a {
		return 0, errors.Newf(errors.CodeBalanceUnderflow,
			"balance %d - %d underflows", a, b)
	}
	return a - b, nil
}
