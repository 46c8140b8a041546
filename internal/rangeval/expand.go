package rangeval

import "strconv"

// ExpandEquality implements sourceNeedsExpandedFP_EQ: when a dataset's
// source encoding is known to drift slightly under float round-tripping,
// a numeric "=" predicate is widened into a "[value-eps, value+eps]"
// pair of bounds instead of relying on the evaluator's fixed tolerance
// alone. Returns the two bound predicates to AND together; op/value are
// returned unchanged for any operator other than "=".
func ExpandEquality(op Op, value string, eps float64) (loOp Op, loValue string, hiOp Op, hiValue string, expanded bool) {
	if op != OpEQ {
		return op, value, "", "", false
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return op, value, "", "", false
	}
	lo := strconv.FormatFloat(v-eps, 'g', -1, 64)
	hi := strconv.FormatFloat(v+eps, 'g', -1, 64)
	return OpGE, lo, OpLE, hi, true
}
