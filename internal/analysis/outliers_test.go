package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// outlierTable has nine identical readings and one far off, so the spike's
// z-score is exactly 3.0 against the population standard deviation.
func outlierTable(t *testing.T) *Analyzer {
	t.Helper()
	records := [][]string{{"GHI"}}
	for i := 0; i < 9; i++ {
		records = append(records, []string{"1"})
	}
	records = append(records, []string{"11"})
	return NewAnalyzerFromTable(tableFromRecords(t, records), "benin")
}

func TestDetectOutliers(t *testing.T) {
	a := outlierTable(t)

	report, err := a.DetectOutliers([]string{"GHI"}, 2.0)
	require.NoError(t, err)

	assert.Equal(t, []string{"GHI"}, report.Columns)
	assert.Equal(t, 2.0, report.Threshold)
	require.Len(t, report.Mask, 10)
	assert.Equal(t, 1, report.Count)
	assert.InDelta(t, 10.0, report.Percentage, 1e-9)
	assert.True(t, report.Mask[9])
	for i := 0; i < 9; i++ {
		assert.False(t, report.Mask[i])
	}

	assert.Same(t, report, a.Results().Outliers)
}

func TestDetectOutliersThresholdMonotonic(t *testing.T) {
	a := outlierTable(t)

	loose, err := a.DetectOutliers([]string{"GHI"}, 5.0)
	require.NoError(t, err)
	tight, err := a.DetectOutliers([]string{"GHI"}, 2.0)
	require.NoError(t, err)

	assert.LessOrEqual(t, loose.Count, tight.Count)
	assert.Equal(t, 0, loose.Count, "z of 3.0 must not exceed a threshold of 5.0")
}

func TestDetectOutliersStrictComparison(t *testing.T) {
	a := outlierTable(t)

	// The spike sits at exactly |z| = 3.0, which does not exceed 3.0.
	report, err := a.DetectOutliers([]string{"GHI"}, 3.0)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Count)
}

func TestDetectOutliersSkipsMissingAndConstant(t *testing.T) {
	table := tableFromRecords(t, [][]string{
		{"GHI", "DNI"},
		{"1", "7"},
		{"", "7"},
		{"1", "7"},
		{"100", "7"},
	})
	a := NewAnalyzerFromTable(table, "benin")

	report, err := a.DetectOutliers([]string{"GHI", "DNI"}, 1.0)
	require.NoError(t, err)

	// The missing cell contributes no z-score and the constant DNI column is
	// skipped entirely.
	require.Len(t, report.Mask, 4)
	assert.False(t, report.Mask[1])
	assert.True(t, report.Mask[3])
}

func TestDetectOutliersUnknownColumns(t *testing.T) {
	a := outlierTable(t)

	_, err := a.DetectOutliers([]string{"WS", "WSgust"}, 3.0)
	assert.True(t, errors.Is(err, ErrNoColumnsFound))
}

func TestDetectOutliersIgnoresAbsentColumns(t *testing.T) {
	a := outlierTable(t)

	report, err := a.DetectOutliers([]string{"GHI", "WS"}, 2.0)
	require.NoError(t, err)
	assert.Equal(t, []string{"GHI"}, report.Columns)
}

func TestDetectOutliersRequiresLoad(t *testing.T) {
	a := NewAnalyzer("nowhere.csv", "benin")
	_, err := a.DetectOutliers([]string{"GHI"}, 3.0)
	assert.True(t, errors.Is(err, ErrNotLoaded))
}
