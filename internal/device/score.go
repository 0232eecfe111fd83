package device

import "strings"

// Base weights per device kind. Discrete GPUs dominate integrated GPUs, which
// dominate CPUs; the memory and model bonuses below are capped so they can
// never invert the kind ordering.
const (
	baseScoreDiscreteGPU   = 1000
	baseScoreIntegratedGPU = 500
	baseScoreCPU           = 100

	// +1 per GiB of device memory, capped so memory alone cannot outweigh
	// a kind or family difference.
	memoryScoreCapGiB = 64
)

// modelBonuses rewards known high-end GPU families, strictly ordered by
// generation within a vendor line. Matched case-insensitively against the
// descriptor model string; first match wins, so newer families come first.
var modelBonuses = []struct {
	family string
	bonus  int
}{
	{"h200", 420},
	{"h100", 400},
	{"a100", 350},
	{"l40", 300},
	{"v100", 250},
	{"rtx 50", 300},
	{"rtx 40", 250},
	{"rtx 30", 200},
	{"rtx 20", 150},
	{"radeon rx 7", 220},
	{"radeon rx 6", 170},
	{"arc", 120},
}

// Score computes the capability score for a descriptor. It is a pure function
// of the descriptor so it can always be recomputed without staleness; ties are
// broken by enumeration order at the pool level, never here.
func Score(d Descriptor) int {
	var score int
	switch d.Kind {
	case KindDiscreteGPU:
		score = baseScoreDiscreteGPU
	case KindIntegratedGPU:
		score = baseScoreIntegratedGPU
	default:
		score = baseScoreCPU
	}

	memGiB := d.MemoryBytes / (1 << 30)
	if memGiB > memoryScoreCapGiB {
		memGiB = memoryScoreCapGiB
	}
	score += int(memGiB)

	// CPUs get no family bonus: a CPU must always score below any healthy
	// GPU present.
	if d.Kind != KindCPU {
		score += modelBonus(d.Model)
	}

	return score
}

func modelBonus(model string) int {
	m := strings.ToLower(model)
	for _, mb := range modelBonuses {
		if strings.Contains(m, mb.family) {
			return mb.bonus
		}
	}
	return 0
}
