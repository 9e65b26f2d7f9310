// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// PriceFlags controls how the integer prices in minor currency units are
// printed.
type PriceFlags struct {
	decimals int
}

func (pf *PriceFlags) SetFlags(fset *flag.FlagSet) {
	fset.IntVar(&pf.decimals, "decimals", 0, "number of minor units digits in a price (ex: 2 prints 1098 as 10.98)")
}

func (pf *PriceFlags) check() error {
	if pf.decimals < 0 || pf.decimals > 18 {
		return fmt.Errorf("decimals must be in [0-18] range: %w", os.ErrInvalid)
	}
	return nil
}

// Format returns the price in major units.
func (pf *PriceFlags) Format(v int64) string {
	return formatPrice(v, int32(pf.decimals))
}

func formatPrice(v int64, decimals int32) string {
	return decimal.New(v, -decimals).StringFixed(decimals)
}
