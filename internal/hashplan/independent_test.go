package hashplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndependentTasks(t *testing.T) {
	cfg, pg, tg := fixtures(t)

	got, err := IndependentTasks(tg, pg, cfg)
	require.NoError(t, err)

	// app:bundle reads the outputs of lib:build; lib:build has an upstream
	// task but no dependency output input.
	assert.NotContains(t, got, "app:bundle")
	assert.Contains(t, got, "lib:build")
	assert.Contains(t, got, "util:build")
	assert.Len(t, got, tg.Len()-1)
}
