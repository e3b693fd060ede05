package cashflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSummary(t *testing.T) {
	s, err := parseSummary("150.50", "40.25", "110.25", 3)
	require.NoError(t, err)
	assert.Equal(t, "150.5", s.TotalInflow.String())
	assert.Equal(t, "40.25", s.TotalOutflow.String())
	assert.Equal(t, "110.25", s.CurrentBalance.String())
	assert.Equal(t, 3, s.Entries)

	_, err = parseSummary("150.50", "NaN?", "110.25", 3)
	assert.ErrorContains(t, err, "parse total outflow")

	_, err = parseSummary("1", "1", "", 1)
	assert.ErrorContains(t, err, "parse current balance")
}
