package consensus

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

var refThresholds = Thresholds{QuorumPct: 33, ApprovalPct: 66}

func u(n uint64) *uint256.Int { return uint256.NewInt(n) }

func TestEvaluate_QuorumNotMet(t *testing.T) {
	// 50 of 250 participated: 20% < 33%, verdict reject regardless of split
	res := Evaluate(Tally{For: u(50), Against: u(0)}, u(250), refThresholds)

	assert.Equal(t, Reject, res.Verdict)
	assert.False(t, res.QuorumMet)
	assert.Equal(t, uint64(20), res.QuorumPct)
}

func TestEvaluate_QuorumBoundaryTruncates(t *testing.T) {
	// 32.9% participation truncates to 32, below the threshold
	res := Evaluate(Tally{For: u(329), Against: u(0)}, u(1000), refThresholds)
	assert.False(t, res.QuorumMet)
	assert.Equal(t, Reject, res.Verdict)

	// exactly 33% meets quorum
	res = Evaluate(Tally{For: u(330), Against: u(0)}, u(1000), refThresholds)
	assert.True(t, res.QuorumMet)
}

func TestEvaluate_ApprovalBoundary(t *testing.T) {
	// exactly 66% approval is an approve (inclusive threshold)
	res := Evaluate(Tally{For: u(66), Against: u(34)}, u(100), refThresholds)
	assert.Equal(t, Approve, res.Verdict)
	assert.Equal(t, uint64(66), res.ApprovalPct)

	// 65% is a reject
	res = Evaluate(Tally{For: u(65), Against: u(35)}, u(100), refThresholds)
	assert.Equal(t, Reject, res.Verdict)
	assert.Equal(t, uint64(65), res.ApprovalPct)
}

func TestEvaluate_NobodyVoted(t *testing.T) {
	res := Evaluate(Tally{For: u(0), Against: u(0)}, u(250), refThresholds)

	assert.Equal(t, Reject, res.Verdict)
	assert.False(t, res.QuorumMet)
	assert.Equal(t, uint64(0), res.QuorumPct)
}

func TestEvaluate_ZeroAggregateSupply(t *testing.T) {
	// no staked supply at all must not divide by zero
	res := Evaluate(Tally{For: u(10), Against: u(5)}, u(0), refThresholds)
	assert.Equal(t, Reject, res.Verdict)

	res = Evaluate(Tally{For: u(10), Against: u(5)}, nil, refThresholds)
	assert.Equal(t, Reject, res.Verdict)
}

func TestEvaluate_ReferenceScenario(t *testing.T) {
	// stakes {100, 100, 50}, votes {for:200, against:50}
	res := Evaluate(Tally{For: u(200), Against: u(50)}, u(250), refThresholds)

	assert.Equal(t, Approve, res.Verdict)
	assert.Equal(t, uint64(100), res.QuorumPct)
	assert.Equal(t, uint64(80), res.ApprovalPct)
}

func TestEvaluate_RejectOnSplitBelowApproval(t *testing.T) {
	// quorum met but approval split under threshold
	res := Evaluate(Tally{For: u(100), Against: u(150)}, u(250), refThresholds)

	assert.True(t, res.QuorumMet)
	assert.Equal(t, Reject, res.Verdict)
	assert.Equal(t, uint64(40), res.ApprovalPct)
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "approve", Approve.String())
	assert.Equal(t, "reject", Reject.String())
}
