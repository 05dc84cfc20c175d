package ledger

import (
	"github.com/holiman/uint256"

	"oracle-consensus/internal/consensus"
)

// FinalizeOutcome reports what a finalization did, for callers that log or
// mirror the result.
type FinalizeOutcome struct {
	QuestionID  string
	Approved    bool
	QuorumPct   uint64
	ApprovalPct uint64
	RewardEach  *uint256.Int
	Slashed     *uint256.Int
	Refunded    bool
}

// Finalize evaluates a closed round and settles it: on approve the escrowed
// fee funds the reward pool and the answer becomes verified; on reject the
// fee is refunded in full to the asker. Voters on the losing side are slashed
// either way. Consensus role only, one shot per question; the payout, the
// slashes and the finalized flag commit together under the ledger lock, so a
// round can never be finalized without settling or settle twice.
func (l *Ledger) Finalize(caller Caller, questionID string) (FinalizeOutcome, error) {
	if !caller.Has(RoleConsensus) {
		return FinalizeOutcome{}, ErrUnauthorized
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.questions[questionID]
	if !ok {
		return FinalizeOutcome{}, ErrNotFound
	}
	r, ok := l.rounds[questionID]
	if !ok {
		return FinalizeOutcome{}, ErrVotingNotOpen
	}
	switch r.State(l.now()) {
	case RoundFinalized:
		return FinalizeOutcome{}, ErrAlreadyFinalized
	case RoundOpen:
		return FinalizeOutcome{}, ErrVotingOpen
	}

	res := consensus.Evaluate(
		consensus.Tally{For: r.VotesFor, Against: r.VotesAgainst},
		l.totalStaked,
		l.thresholds(),
	)
	approved := res.Verdict == consensus.Approve

	out := FinalizeOutcome{
		QuestionID:  questionID,
		Approved:    approved,
		QuorumPct:   res.QuorumPct,
		ApprovalPct: res.ApprovalPct,
	}

	if approved {
		out.RewardEach, out.Slashed = l.settleLocked(questionID, q.Fee, true)
		if a := l.answers[questionID]; a != nil {
			a.Verified = true
		}
	} else {
		// full refund; the reward pool for the round is empty
		out.RewardEach, out.Slashed = l.settleLocked(questionID, uint256.NewInt(0), false)
		l.account(q.Asker).Balance.Add(l.account(q.Asker).Balance, q.Fee)
		out.Refunded = true
	}
	r.Finalized = true

	l.emit(EventVotingFinalized, questionID, VotingFinalizedPayload{
		QuestionID:  questionID,
		Approved:    approved,
		QuorumPct:   res.QuorumPct,
		ApprovalPct: res.ApprovalPct,
		RewardEach:  out.RewardEach.Dec(),
		Slashed:     out.Slashed.Dec(),
	})
	return out, nil
}

// settleLocked distributes the reward pool and applies slashes. Correct
// voters are those whose vote matches the verdict. The distributable share of
// the pool (RewardPct of it) is split equally among correct voters, not
// stake-weighted, while slashing is stake-proportional. Whatever is not paid
// out, including the whole pool when no voter was correct, goes to the
// treasury. Caller holds the mutex.
func (l *Ledger) settleLocked(questionID string, pool *uint256.Int, approved bool) (rewardEach, slashedTotal *uint256.Int) {
	var correct []string
	var incorrect []string
	for voter, v := range l.votes[questionID] {
		if v.Approved == approved {
			correct = append(correct, voter)
		} else {
			incorrect = append(incorrect, voter)
		}
	}

	rewardEach = uint256.NewInt(0)
	distributed := uint256.NewInt(0)
	if len(correct) > 0 && !pool.IsZero() {
		total := new(uint256.Int).Mul(pool, uint256.NewInt(l.params.RewardPct))
		total.Div(total, hundred)
		rewardEach = new(uint256.Int).Div(total, uint256.NewInt(uint64(len(correct))))
		for _, voter := range correct {
			acc := l.account(voter)
			acc.Balance.Add(acc.Balance, rewardEach)
			acc.RewardDebt.Add(acc.RewardDebt, rewardEach)
			distributed.Add(distributed, rewardEach)
		}
	}
	// undistributed remainder stays with the treasury, never lost
	remainder := new(uint256.Int).Sub(pool, distributed)
	l.treasury.Add(l.treasury, remainder)

	slashedTotal = uint256.NewInt(0)
	for _, voter := range incorrect {
		cut := l.slashLocked(voter, l.params.SlashPct)
		slashedTotal.Add(slashedTotal, cut)
	}
	return rewardEach, slashedTotal
}
