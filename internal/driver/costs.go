package driver

// Costs holds per-mode credit unit prices. Mining and batch runs are
// priced per block of ten items; deep-dive and article runs are flat.
type Costs struct {
	MiningUnit  int
	BatchUnit   int
	DeepDive    int
	ArticleUnit int
}

// DefaultCosts returns the default pricing table.
func DefaultCosts() Costs {
	return Costs{
		MiningUnit:  1,
		BatchUnit:   1,
		DeepDive:    5,
		ArticleUnit: 3,
	}
}

// Mining prices one mining round analyzing n candidates.
func (c Costs) Mining(n int) int {
	return c.MiningUnit * ceilDiv(n, 10)
}

// Batch prices one batch run over n items.
func (c Costs) Batch(n int) int {
	return c.BatchUnit * ceilDiv(n, 10)
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
