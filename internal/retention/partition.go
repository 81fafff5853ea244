package retention

import (
	"github.com/adamancini/backcycle/internal/backup"
)

// Partition splits packages (newest first) into the ones policy retains and
// the excess to delete. The input is not modified and both results keep the
// input order.
func Partition(packages []backup.Package, policy Policy) (retained, excess []backup.Package) {
	retained = make([]backup.Package, 0, len(packages))
	excess = make([]backup.Package, 0)

	if policy.IsCutoff() {
		cutoff := policy.Cutoff()
		for _, p := range packages {
			if p.Time.Before(cutoff) {
				excess = append(excess, p)
			} else {
				retained = append(retained, p)
			}
		}
		return retained, excess
	}

	keep := policy.Keep()
	if keep < 0 {
		keep = 0
	}
	if len(packages) <= keep {
		return append(retained, packages...), excess
	}

	retained = append(retained, packages[:keep]...)
	excess = append(excess, packages[keep:]...)
	return retained, excess
}
