package checker

import (
	"os"
	"strings"
	"sync"
)

// The double-check safety net re-runs the full labeling sweep after every
// Recompute and panics if the two sweeps disagree, catching any
// nondeterminism in label computation before it can corrupt a verdict.
// It is enabled by setting the MCHECK_DOUBLE_CHECK environment variable
// to 1, true or yes (case-insensitively); the variable is read once at
// first use and cached for the life of the process. Production runs
// leave it unset.

var (
	doubleCheckOnce    sync.Once
	doubleCheckEnabled bool
)

func doubleCheckOn() bool {
	doubleCheckOnce.Do(func() {
		switch strings.ToLower(os.Getenv("MCHECK_DOUBLE_CHECK")) {
		case "1", "true", "yes":
			doubleCheckEnabled = true
		}
	})
	return doubleCheckEnabled
}

// valuationsAgree reports whether two label tables assign identical
// truths over the identical (subformula, node) domain. Decision times
// and witness orderings are allowed to differ: an incremental sweep
// legitimately carries older stamps than a cold one.
func valuationsAgree(a, b Labels) bool {
	if len(a) != len(b) {
		return false
	}
	for idx, byNode := range a {
		other, ok := b[idx]
		if !ok || len(other) != len(byNode) {
			return false
		}
		for node, v := range byNode {
			got, ok := other[node]
			if !ok || got.Value.Truth != v.Value.Truth {
				return false
			}
		}
	}
	return true
}
