package rangeval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/tablecat/internal/column"
)

func numRange(min, max float64, hasMissing bool) Range {
	return Range{Kind: column.KindFloat64, MinNum: min, MaxNum: max, HasMissing: hasMissing}
}

func textRange(min, max string, hasMissing bool) Range {
	return Range{Kind: column.KindText, MinText: min, MaxText: max, HasMissing: hasMissing}
}

// Two disjoint files: a query that falls in neither's range must be excluded.
func TestDisjointRangesRejectNonMatchingQuery(t *testing.T) {
	a := numRange(0, 10, false)
	admit, err := Evaluate(a, OpEQ, "15", 0, false)
	require.NoError(t, err)
	assert.False(t, admit)

	b := numRange(20, 30, false)
	admit, err = Evaluate(b, OpEQ, "15", 0, false)
	require.NoError(t, err)
	assert.False(t, admit)
}

// A range predicate overlapping both files admits both.
func TestRangePredicateAdmitsOverlappingFiles(t *testing.T) {
	a := numRange(0, 10, false)
	b := numRange(20, 30, false)

	admitA, err := Evaluate(a, OpGE, "5", 0, false)
	require.NoError(t, err)
	admitA2, err := Evaluate(a, OpLE, "25", 0, false)
	require.NoError(t, err)
	assert.True(t, admitA && admitA2)

	admitB, err := Evaluate(b, OpGE, "5", 0, false)
	require.NoError(t, err)
	admitB2, err := Evaluate(b, OpLE, "25", 0, false)
	require.NoError(t, err)
	assert.True(t, admitB && admitB2)
}

// A uniform text column equal to the literal value admits the file.
func TestUniformTextColumnAdmitsMatchingLiteral(t *testing.T) {
	r := textRange("A", "A", false)
	admit, err := Evaluate(r, OpEQ, "A", 0, false)
	require.NoError(t, err)
	assert.True(t, admit)

	admit, err = Evaluate(r, OpEQ, "B", 0, false)
	require.NoError(t, err)
	assert.False(t, admit)
}

// An id column with min=max="" and hasMissing admits an exact empty match.
func TestEmptyIDWithMissingAdmitsEmptyEquality(t *testing.T) {
	r := textRange("", "", true)
	admit, err := Evaluate(r, OpEQ, "", 0, false)
	require.NoError(t, err)
	assert.True(t, admit)

	admit, err = Evaluate(r, OpLT, "", 0, false)
	require.NoError(t, err)
	assert.False(t, admit)
}

func TestTextHasMissingSpecialCasesOtherOps(t *testing.T) {
	r := textRange("m", "z", true)
	for _, op := range []Op{OpLE, OpGE, OpRegex} {
		admit, err := Evaluate(r, op, "", 0, false)
		require.NoError(t, err)
		assert.True(t, admit, "op %s should admit on empty value with hasMissing", op)
	}
}

func TestNumericMissingSentinelPredicate(t *testing.T) {
	const missing = -999.0
	r := numRange(1, 2, true)
	admit, err := Evaluate(r, OpEQ, "-999", missing, true)
	require.NoError(t, err)
	assert.True(t, admit)

	r2 := numRange(1, 2, false)
	admit, err = Evaluate(r2, OpEQ, "-999", missing, true)
	require.NoError(t, err)
	assert.False(t, admit)
}

func TestNumericAllMissingRange(t *testing.T) {
	const missing = -999.0
	r := numRange(missing, missing, true)
	admit, err := Evaluate(r, OpNE, "5", missing, true)
	require.NoError(t, err)
	assert.True(t, admit)

	admit, err = Evaluate(r, OpEQ, "5", missing, true)
	require.NoError(t, err)
	assert.False(t, admit)
}

func TestNumericToleranceAdmitsNearEquality(t *testing.T) {
	r := numRange(10.0, 10.0, false)
	// Within five significant digits of 10.0.
	admit, err := Evaluate(r, OpEQ, "10.00001", 0, false)
	require.NoError(t, err)
	assert.True(t, admit)
}

func TestRegexAlwaysAdmitsNonUniformRange(t *testing.T) {
	r := textRange("a001", "z999", false)
	admit, err := Evaluate(r, OpRegex, "^a", 0, false)
	require.NoError(t, err)
	assert.True(t, admit)
}

func TestRegexUniformRangeChecksMatch(t *testing.T) {
	r := textRange("station-7", "station-7", false)
	admit, err := Evaluate(r, OpRegex, "^station-[0-9]+$", 0, false)
	require.NoError(t, err)
	assert.True(t, admit)

	admit, err = Evaluate(r, OpRegex, "^buoy-", 0, false)
	require.NoError(t, err)
	assert.False(t, admit)
}

func TestInvalidOperatorErrors(t *testing.T) {
	_, err := ParseOp("<>")
	assert.Error(t, err)

	_, err = Evaluate(numRange(0, 1, false), Op("<>"), "0", 0, false)
	assert.Error(t, err)
}

func TestExpandEqualityWidensToBounds(t *testing.T) {
	loOp, lo, hiOp, hi, expanded := ExpandEquality(OpEQ, "10", 0.001)
	require.True(t, expanded)
	assert.Equal(t, OpGE, loOp)
	assert.Equal(t, OpLE, hiOp)
	assert.Equal(t, "9.999", lo)
	assert.Equal(t, "10.001", hi)
}

func TestExpandEqualityLeavesOtherOperatorsAlone(t *testing.T) {
	_, _, _, _, expanded := ExpandEquality(OpLT, "10", 0.001)
	assert.False(t, expanded)
}
