package version_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/rbjoin/pkg/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	ver, commit := version.Info()
	assert.NotEmpty(t, ver)
	assert.NotEmpty(t, commit)

	str := version.String()
	assert.True(t, strings.HasPrefix(str, "rbjoin "))
	assert.Contains(t, str, ver)
}
