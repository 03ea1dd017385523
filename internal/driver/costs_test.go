package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCostsPerBlockPricing(t *testing.T) {
	c := DefaultCosts()

	cases := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 1},
		{9, 1},
		{10, 1},
		{11, 2},
		{20, 2},
		{21, 3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Mining(tc.n), "mining n=%d", tc.n)
		assert.Equal(t, tc.want, c.Batch(tc.n), "batch n=%d", tc.n)
	}
}

func TestCostsScaleWithUnitPrice(t *testing.T) {
	c := Costs{MiningUnit: 3, BatchUnit: 2}
	assert.Equal(t, 3, c.Mining(10))
	assert.Equal(t, 6, c.Mining(11))
	assert.Equal(t, 4, c.Batch(15))
}
