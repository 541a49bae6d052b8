package workload //nolint:testpackage // compares hand-built set pairs.

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	sets := newPair()
	assert.Empty(t, compare(sets))

	sets.topDown.Add(1)
	assert.Contains(t, compare(sets), "lengths differ")

	sets.bottomUp.Add(2)
	assert.Equal(t, "contents differ", compare(sets))

	sets.bottomUp.Remove(2)
	sets.bottomUp.Add(1)
	assert.Empty(t, compare(sets))
	assert.Equal(t, "B 1 h=1\n", dump(sets.topDown))
}
