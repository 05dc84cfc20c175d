// Package consensus evaluates closed voting rounds against quorum and
// approval thresholds. It is pure: no state, no clock, no storage.
package consensus

import "github.com/holiman/uint256"

// Verdict is the binary outcome of a round evaluation.
type Verdict int

const (
	Reject Verdict = iota
	Approve
)

func (v Verdict) String() string {
	if v == Approve {
		return "approve"
	}
	return "reject"
}

// Thresholds are expressed as whole percentages.
type Thresholds struct {
	QuorumPct   uint64 // minimum participation, of aggregate staked supply
	ApprovalPct uint64 // minimum approval, of participating stake (inclusive)
}

// Tally is the stake-weighted vote split of a closed round.
type Tally struct {
	For     *uint256.Int
	Against *uint256.Int
}

// Result carries the verdict plus the computed percentages for reporting.
type Result struct {
	Verdict     Verdict
	QuorumPct   uint64
	ApprovalPct uint64
	QuorumMet   bool
}

var hundred = uint256.NewInt(100)

// Evaluate produces a verdict for a closed round. Integer division truncates
// toward zero on both percentages, so a round sitting just under a threshold
// never rounds up into passing. A round with zero participating stake (or a
// zero aggregate supply) is a quorum miss, not a division by zero.
//
// Evaluate itself is not idempotence-guarded; the caller must invoke it at
// most once per round (the registry's finalized flag enforces that).
func Evaluate(tally Tally, aggregateStaked *uint256.Int, th Thresholds) Result {
	total := new(uint256.Int).Add(tally.For, tally.Against)
	if total.IsZero() || aggregateStaked == nil || aggregateStaked.IsZero() {
		return Result{Verdict: Reject}
	}

	quorum := new(uint256.Int).Mul(total, hundred)
	quorum.Div(quorum, aggregateStaked)
	res := Result{QuorumPct: quorum.Uint64()}

	if res.QuorumPct < th.QuorumPct {
		return res
	}
	res.QuorumMet = true

	approval := new(uint256.Int).Mul(tally.For, hundred)
	approval.Div(approval, total)
	res.ApprovalPct = approval.Uint64()

	if res.ApprovalPct >= th.ApprovalPct {
		res.Verdict = Approve
	}
	return res
}
