package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/tablecat/internal/rangeval"
)

func TestParsePredicateRecognizesEachOperator(t *testing.T) {
	cases := []struct {
		raw    string
		column string
		op     rangeval.Op
		value  string
	}{
		{"temp>=5", "temp", rangeval.OpGE, "5"},
		{"temp<=5", "temp", rangeval.OpLE, "5"},
		{"temp!=5", "temp", rangeval.OpNE, "5"},
		{"temp=5", "temp", rangeval.OpEQ, "5"},
		{"temp>5", "temp", rangeval.OpGT, "5"},
		{"temp<5", "temp", rangeval.OpLT, "5"},
		{"station_id~^buoy", "station_id", rangeval.OpRegex, "^buoy"},
	}

	for _, tc := range cases {
		p, err := parsePredicate(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.column, p.Column, tc.raw)
		assert.Equal(t, tc.op, p.Op, tc.raw)
		assert.Equal(t, tc.value, p.Value, tc.raw)
	}
}

func TestParsePredicateRejectsMissingOperator(t *testing.T) {
	_, err := parsePredicate("temp 5")
	assert.Error(t, err)
}

func TestParsePredicateRejectsMissingColumn(t *testing.T) {
	_, err := parsePredicate(">=5")
	assert.Error(t, err)
}
