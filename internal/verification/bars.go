package verification

import (
	"fmt"

	"rotation-lab/internal/domain"
)

// CheckBars validates bar history before a run trades on it. Returns
// one message per violation; an empty slice means the history is
// clean. Ordering violations are left to the simulator's alignment
// check, which treats them as fatal.
func CheckBars(bars []domain.PriceBar) []string {
	var errs []string

	seen := make(map[string]struct{}, len(bars))
	for _, b := range bars {
		key := b.InstrumentID + "|" + domain.DateKey(b.Date)
		ref := fmt.Sprintf("%s %s", b.InstrumentID, domain.DateKey(b.Date))

		if _, dup := seen[key]; dup {
			errs = append(errs, fmt.Sprintf("%s: duplicate bar", ref))
			continue
		}
		seen[key] = struct{}{}

		if b.InstrumentID == "" {
			errs = append(errs, fmt.Sprintf("%s: empty instrument id", ref))
		}
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			errs = append(errs, fmt.Sprintf("%s: non-positive price", ref))
			continue
		}
		if b.High < b.Low {
			errs = append(errs, fmt.Sprintf("%s: high %.4f below low %.4f", ref, b.High, b.Low))
		}
		if b.Open > b.High || b.Open < b.Low {
			errs = append(errs, fmt.Sprintf("%s: open %.4f outside [low, high]", ref, b.Open))
		}
		if b.Close > b.High || b.Close < b.Low {
			errs = append(errs, fmt.Sprintf("%s: close %.4f outside [low, high]", ref, b.Close))
		}
		if b.Volume < 0 {
			errs = append(errs, fmt.Sprintf("%s: negative volume %d", ref, b.Volume))
		}
	}

	return errs
}
