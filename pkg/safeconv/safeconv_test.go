package safeconv_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/rbjoin/pkg/safeconv"
)

func TestMust(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint(math.MaxInt), safeconv.Must[uint](math.MaxInt))
	assert.Equal(t, uint32(math.MaxUint32), safeconv.Must[uint32](math.MaxUint32))
	assert.Equal(t, uint8(255), safeconv.Must[uint8](255))
	assert.Equal(t, int64(-7), safeconv.Must[int64](int8(-7)))
	assert.Equal(t, 42, safeconv.Must[int](uint16(42)))
}

func TestMustPanics(t *testing.T) {
	t.Parallel()

	assert.PanicsWithValue(t, "safeconv: -1 does not fit in uint", func() { safeconv.Must[uint](-1) })
	assert.PanicsWithValue(t, "safeconv: 4294967296 does not fit in uint32", func() {
		safeconv.Must[uint32](math.MaxUint32 + 1)
	})
	assert.PanicsWithValue(t, "safeconv: 256 does not fit in uint8", func() { safeconv.Must[uint8](256) })
	assert.PanicsWithValue(t, "safeconv: 18446744073709551615 does not fit in int64", func() {
		safeconv.Must[int64](uint64(math.MaxUint64))
	})
}
