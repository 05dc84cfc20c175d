package ledger

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	relayer   = NewCaller("relay-0", RoleRelayer)
	finalizer = NewCaller("relay-0", RoleConsensus)
)

func submitQuestion(t *testing.T, l *Ledger, asker string, fee uint64) string {
	t.Helper()
	fund(t, l, asker, fee)
	id, err := l.SubmitQuestion(asker, "is the sky blue?", nil, uint256.NewInt(fee))
	require.NoError(t, err)
	return id
}

func answerQuestion(t *testing.T, l *Ledger, id string) {
	t.Helper()
	require.NoError(t, l.RecordAnswer(relayer, id, "yes", "bafyanswer", Proof{
		ModelHash:  "m",
		InputHash:  "i",
		OutputHash: "o",
	}))
}

func TestSubmitQuestionValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, "alice", 10)

	_, err := l.SubmitQuestion("alice", "", nil, uint256.NewInt(5))
	assert.ErrorIs(t, err, ErrInvalidLength)

	long := make([]byte, l.Params().MaxQuestionLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = l.SubmitQuestion("alice", string(long), nil, uint256.NewInt(5))
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = l.SubmitQuestion("alice", "q", nil, uint256.NewInt(0))
	assert.ErrorIs(t, err, ErrInsufficientFee)

	// failed submissions must not touch the balance
	assert.Equal(t, uint64(10), l.BalanceOf("alice").Uint64())
}

func TestSubmitQuestionEscrowsFee(t *testing.T) {
	l, _ := newTestLedger(t)
	id := submitQuestion(t, l, "alice", 10)

	assert.True(t, l.BalanceOf("alice").IsZero())
	q, ok := l.Question(id)
	require.True(t, ok)
	assert.Equal(t, "alice", q.Asker)
	assert.False(t, q.Answered)
}

func TestQuestionIDsUniquePerResubmission(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, "alice", 20)

	id1, err := l.SubmitQuestion("alice", "same text", nil, uint256.NewInt(10))
	require.NoError(t, err)
	id2, err := l.SubmitQuestion("alice", "same text", nil, uint256.NewInt(10))
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.Len(t, id1, 64)
}

func TestRecordAnswerRequiresRelayerRole(t *testing.T) {
	l, _ := newTestLedger(t)
	id := submitQuestion(t, l, "alice", 10)

	err := l.RecordAnswer(NewCaller("mallory"), id, "yes", "h", Proof{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRecordAnswerUnknownQuestion(t *testing.T) {
	l, _ := newTestLedger(t)
	err := l.RecordAnswer(relayer, "deadbeef", "yes", "h", Proof{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordAnswerOnlyOnce(t *testing.T) {
	l, _ := newTestLedger(t)
	id := submitQuestion(t, l, "alice", 10)
	answerQuestion(t, l, id)

	err := l.RecordAnswer(relayer, id, "no", "h2", Proof{})
	assert.ErrorIs(t, err, ErrAlreadyAnswered)

	a, ok := l.Answer(id)
	require.True(t, ok)
	assert.Equal(t, "yes", a.Text)
}

func TestRecordAnswerOpensRound(t *testing.T) {
	l, clk := newTestLedger(t)
	id := submitQuestion(t, l, "alice", 10)
	answerQuestion(t, l, id)

	r, ok := l.Round(id)
	require.True(t, ok)
	assert.Equal(t, RoundOpen, r.State(clk.Now()))
	assert.Equal(t, l.Params().VotingWindow, r.EndTime.Sub(r.StartTime))
}

func TestCastVoteGates(t *testing.T) {
	l, clk := newTestLedger(t)
	id := submitQuestion(t, l, "alice", 10)

	// no round yet
	assert.ErrorIs(t, l.CastVote("bob", id, true), ErrVotingNotOpen)
	assert.ErrorIs(t, l.CastVote("bob", "deadbeef", true), ErrNotFound)

	answerQuestion(t, l, id)

	// not staked
	assert.ErrorIs(t, l.CastVote("bob", id, true), ErrNotStaked)

	stake(t, l, "bob", 100)
	require.NoError(t, l.CastVote("bob", id, true))

	// duplicate vote leaves the tally untouched
	err := l.CastVote("bob", id, false)
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	r, _ := l.Round(id)
	assert.Equal(t, uint64(100), r.VotesFor.Uint64())
	assert.True(t, r.VotesAgainst.IsZero())

	// window elapsed
	stake(t, l, "carol", 50)
	clk.Advance(l.Params().VotingWindow + time.Second)
	assert.ErrorIs(t, l.CastVote("carol", id, true), ErrVotingEnded)
}

func TestVoteWeightSnapshotIsolation(t *testing.T) {
	l, clk := newTestLedger(t)
	id := submitQuestion(t, l, "alice", 10)

	stake(t, l, "bob", 100)
	// age the stake past the lock before the round opens
	clk.Advance(8 * 24 * time.Hour)
	answerQuestion(t, l, id)
	require.NoError(t, l.CastVote("bob", id, true))

	// unstake after voting, before finalization
	require.NoError(t, l.Unstake("bob", uint256.NewInt(100)))

	v, ok := l.VoteOf(id, "bob")
	require.True(t, ok)
	assert.Equal(t, uint64(100), v.StakeWeight.Uint64())
	r, _ := l.Round(id)
	assert.Equal(t, uint64(100), r.VotesFor.Uint64())
}

func TestFinalizeGuards(t *testing.T) {
	l, clk := newTestLedger(t)
	id := submitQuestion(t, l, "alice", 10)

	_, err := l.Finalize(NewCaller("mallory"), id)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = l.Finalize(finalizer, "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.Finalize(finalizer, id)
	assert.ErrorIs(t, err, ErrVotingNotOpen)

	answerQuestion(t, l, id)
	_, err = l.Finalize(finalizer, id)
	assert.ErrorIs(t, err, ErrVotingOpen)

	clk.Advance(l.Params().VotingWindow + time.Second)
	_, err = l.Finalize(finalizer, id)
	require.NoError(t, err)

	// one shot: the second call is rejected and side effects do not repeat
	_, err = l.Finalize(finalizer, id)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

// Reference end-to-end scenario: fee 1.0 unit (1000 base units so the 2.5%
// per-voter share stays integral), stakes {100, 100, 50}, votes
// {approve, approve, reject}.
func TestFinalizeApproveScenario(t *testing.T) {
	l, clk := newTestLedger(t)
	id := submitQuestion(t, l, "alice", 1000)

	stake(t, l, "v1", 100)
	stake(t, l, "v2", 100)
	stake(t, l, "v3", 50)
	answerQuestion(t, l, id)

	require.NoError(t, l.CastVote("v1", id, true))
	require.NoError(t, l.CastVote("v2", id, true))
	require.NoError(t, l.CastVote("v3", id, false))

	clk.Advance(l.Params().VotingWindow + time.Second)
	out, err := l.Finalize(finalizer, id)
	require.NoError(t, err)

	assert.True(t, out.Approved)
	assert.Equal(t, uint64(100), out.QuorumPct)
	assert.Equal(t, uint64(80), out.ApprovalPct)

	// reward pool 1000, 5% distributable, split equally: 25 each
	assert.Equal(t, uint64(25), out.RewardEach.Uint64())
	assert.Equal(t, uint64(25), l.BalanceOf("v1").Uint64())
	assert.Equal(t, uint64(25), l.BalanceOf("v2").Uint64())

	// rejecting voter slashed 20% of 50
	assert.Equal(t, uint64(10), out.Slashed.Uint64())
	assert.Equal(t, uint64(40), l.StakeOf("v3").Uint64())

	// answer verified, asker not refunded
	a, _ := l.Answer(id)
	assert.True(t, a.Verified)
	assert.True(t, l.BalanceOf("alice").IsZero())

	// conservation: undistributed 950 of the pool plus the 10 slash
	assert.Equal(t, uint64(960), l.Treasury().Uint64())
}

// Second reference scenario: one voter of aggregate 250 staked misses quorum;
// the verdict is reject regardless of direction and the fee comes back.
func TestFinalizeQuorumMissRefunds(t *testing.T) {
	l, clk := newTestLedger(t)
	id := submitQuestion(t, l, "alice", 1000)

	stake(t, l, "v1", 100)
	stake(t, l, "v2", 100)
	stake(t, l, "v3", 50)
	answerQuestion(t, l, id)

	require.NoError(t, l.CastVote("v3", id, true))

	clk.Advance(l.Params().VotingWindow + time.Second)
	out, err := l.Finalize(finalizer, id)
	require.NoError(t, err)

	assert.False(t, out.Approved)
	assert.Equal(t, uint64(20), out.QuorumPct)
	assert.True(t, out.Refunded)
	assert.Equal(t, uint64(1000), l.BalanceOf("alice").Uint64())

	a, _ := l.Answer(id)
	assert.False(t, a.Verified)

	// v3 voted approve, the verdict was reject: slashed 20% of 50
	assert.Equal(t, uint64(40), l.StakeOf("v3").Uint64())
	// non-voters are untouched
	assert.Equal(t, uint64(100), l.StakeOf("v1").Uint64())
}

func TestFinalizeRejectZeroCorrectVoters(t *testing.T) {
	l, clk := newTestLedger(t)
	id := submitQuestion(t, l, "alice", 1000)

	stake(t, l, "v1", 10)
	stake(t, l, "v2", 90) // stays silent, so quorum cannot be met
	answerQuestion(t, l, id)
	require.NoError(t, l.CastVote("v1", id, true))

	clk.Advance(l.Params().VotingWindow + time.Second)
	out, err := l.Finalize(finalizer, id)
	require.NoError(t, err)

	// quorum missed, nobody voted reject: no rewards at all, fee refunded,
	// the lone wrong voter slashed
	assert.False(t, out.Approved)
	assert.True(t, out.RewardEach.IsZero())
	assert.Equal(t, uint64(1000), l.BalanceOf("alice").Uint64())
	assert.Equal(t, uint64(8), l.StakeOf("v1").Uint64())
}

func TestRewardConservation(t *testing.T) {
	l, clk := newTestLedger(t)
	id := submitQuestion(t, l, "alice", 997) // awkward pool on purpose

	stake(t, l, "v1", 100)
	stake(t, l, "v2", 100)
	stake(t, l, "v3", 100)
	answerQuestion(t, l, id)
	require.NoError(t, l.CastVote("v1", id, true))
	require.NoError(t, l.CastVote("v2", id, true))
	require.NoError(t, l.CastVote("v3", id, true))

	clk.Advance(l.Params().VotingWindow + time.Second)
	out, err := l.Finalize(finalizer, id)
	require.NoError(t, err)
	require.True(t, out.Approved)

	// 5% of 997 = 49 (truncated), 16 each to three voters, 949 + 1 retained
	distributed := new(uint256.Int).Mul(out.RewardEach, uint256.NewInt(3))
	total := new(uint256.Int).Add(distributed, l.Treasury())
	assert.Equal(t, uint64(997), total.Uint64())
	assert.Equal(t, uint64(16), out.RewardEach.Uint64())
}

func TestEventLogReplaysLifecycle(t *testing.T) {
	l, clk := newTestLedger(t)
	id := submitQuestion(t, l, "alice", 1000)
	stake(t, l, "v1", 100)
	answerQuestion(t, l, id)
	require.NoError(t, l.CastVote("v1", id, true))
	clk.Advance(l.Params().VotingWindow + time.Second)
	_, err := l.Finalize(finalizer, id)
	require.NoError(t, err)

	evs := l.Range(1, l.Head())
	kinds := make([]EventKind, 0, len(evs))
	for _, ev := range evs {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{
		EventQuestionSubmitted,
		EventStaked,
		EventAnswerSubmitted,
		EventVoteCast,
		EventVotingFinalized,
	}, kinds)

	// sequence numbers are dense and Range clamps to the head
	for i, ev := range evs {
		assert.Equal(t, uint64(i+1), ev.Seq)
	}
	assert.Nil(t, l.Range(l.Head()+1, l.Head()+10))
	assert.Len(t, l.Range(0, 2), 2)
}
