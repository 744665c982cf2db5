package screen

import (
	"errors"
	"testing"

	"gopairs/domain/core"
	"gopairs/domain/pricetable"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := DefaultCointegrationOptions()
	assert.True(t, c.Intercept)
	assert.Equal(t, 0.01, c.SigLevel)
	assert.Equal(t, 10, DefaultDistanceOptions().N)
}

func TestParseSkipPolicy(t *testing.T) {
	p, err := ParseSkipPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	p, err = ParseSkipPolicy("abort")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p)

	_, err = ParseSkipPolicy("retry")
	assert.True(t, core.IsInvalidInput(err))
}

func TestNewSkippedPair_Classifies(t *testing.T) {
	pair := pricetable.Pair{First: "A", Second: "B", J: 1}

	s := NewSkippedPair(pair, core.NewConstantSeriesError("A"))
	assert.Equal(t, SkipDegenerateSeries, s.Code)
	assert.Contains(t, s.Reason, "zero variance")

	s = NewSkippedPair(pair, core.NewNumericalTestError("ols", errors.New("singular")))
	assert.Equal(t, SkipNumericalTest, s.Code)
	assert.Equal(t, pair, s.Pair)
}
