package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistogramCounts(t *testing.T) {
	h := NewHistogram[string]()
	assert.Equal(t, 0, h.Total())
	assert.Equal(t, 0, h.Count("floor"))

	h.Add("floor")
	h.Add("floor")
	h.Add("wall")

	assert.Equal(t, 3, h.Total())
	assert.Equal(t, 2, h.Count("floor"))
	assert.Equal(t, 1, h.Count("wall"))
	assert.Equal(t, 0, h.Count("table"))
}

func TestHistogramOpenAlphabet(t *testing.T) {
	h := NewHistogram[int]()
	for _, label := range []int{5, 3, 5, 9, 3, 5} {
		h.Add(label)
	}
	assert.Equal(t, []int{3, 5, 9}, h.Labels())
	assert.Equal(t, 3, h.Count(5))
	assert.Equal(t, 6, h.Total())
}
