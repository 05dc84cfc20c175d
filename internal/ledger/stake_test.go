package ledger

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the ledger's notion of time from tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLedger(t *testing.T) (*Ledger, *fakeClock) {
	t.Helper()
	clk := newFakeClock()
	return New(DefaultParams(), WithClock(clk.Now)), clk
}

func fund(t *testing.T, l *Ledger, owner string, amount uint64) {
	t.Helper()
	require.NoError(t, l.Deposit(owner, uint256.NewInt(amount)))
}

func stake(t *testing.T, l *Ledger, owner string, amount uint64) {
	t.Helper()
	fund(t, l, owner, amount)
	require.NoError(t, l.Stake(owner, uint256.NewInt(amount)))
}

func TestStakeMovesBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, "alice", 100)

	require.NoError(t, l.Stake("alice", uint256.NewInt(60)))

	assert.Equal(t, uint64(40), l.BalanceOf("alice").Uint64())
	assert.Equal(t, uint64(60), l.StakeOf("alice").Uint64())
	assert.Equal(t, uint64(60), l.TotalStaked().Uint64())
}

func TestStakeRejectsBelowMinimum(t *testing.T) {
	params := DefaultParams()
	params.MinStake = uint256.NewInt(10)
	clk := newFakeClock()
	l := New(params, WithClock(clk.Now))
	fund(t, l, "alice", 100)

	err := l.Stake("alice", uint256.NewInt(5))
	assert.ErrorIs(t, err, ErrBelowMinStake)
	assert.Equal(t, uint64(100), l.BalanceOf("alice").Uint64())
}

func TestStakeRejectsInsufficientBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, "alice", 10)

	err := l.Stake("alice", uint256.NewInt(50))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestUnstakeBeforeLockFails(t *testing.T) {
	l, clk := newTestLedger(t)
	stake(t, l, "alice", 100)

	clk.Advance(6 * 24 * time.Hour)
	err := l.Unstake("alice", uint256.NewInt(100))
	assert.ErrorIs(t, err, ErrLockActive)
}

func TestUnstakeAfterLock(t *testing.T) {
	l, clk := newTestLedger(t)
	stake(t, l, "alice", 100)

	clk.Advance(7 * 24 * time.Hour)
	require.NoError(t, l.Unstake("alice", uint256.NewInt(100)))

	assert.Equal(t, uint64(100), l.BalanceOf("alice").Uint64())
	assert.True(t, l.StakeOf("alice").IsZero())
	assert.True(t, l.TotalStaked().IsZero())
}

func TestRestakeResetsLockClock(t *testing.T) {
	l, clk := newTestLedger(t)
	stake(t, l, "alice", 100)

	clk.Advance(6 * 24 * time.Hour)
	fund(t, l, "alice", 50)
	require.NoError(t, l.Stake("alice", uint256.NewInt(50)))

	// first stake is 7 days old, but the restake reset the clock
	clk.Advance(24 * time.Hour)
	err := l.Unstake("alice", uint256.NewInt(10))
	assert.ErrorIs(t, err, ErrLockActive)
}

func TestSlashRequiresDistributorRole(t *testing.T) {
	l, _ := newTestLedger(t)
	stake(t, l, "alice", 100)

	_, err := l.Slash(NewCaller("mallory"), "alice", 20)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, uint64(100), l.StakeOf("alice").Uint64())
}

func TestSlashTakesPercentOfStake(t *testing.T) {
	l, _ := newTestLedger(t)
	stake(t, l, "alice", 50)

	cut, err := l.Slash(NewCaller("dist", RoleDistributor), "alice", 20)
	require.NoError(t, err)

	assert.Equal(t, uint64(10), cut.Uint64())
	assert.Equal(t, uint64(40), l.StakeOf("alice").Uint64())
	assert.Equal(t, uint64(10), l.Treasury().Uint64())
}

func TestSlashZeroBalanceIsNoop(t *testing.T) {
	l, _ := newTestLedger(t)

	cut, err := l.Slash(NewCaller("dist", RoleDistributor), "ghost", 20)
	require.NoError(t, err)
	assert.True(t, cut.IsZero())
	assert.True(t, l.StakeOf("ghost").IsZero())
}

func TestSlashNeverGoesNegative(t *testing.T) {
	l, _ := newTestLedger(t)
	stake(t, l, "alice", 3)

	// repeated full slashes bottom out at zero
	dist := NewCaller("dist", RoleDistributor)
	for i := 0; i < 5; i++ {
		_, err := l.Slash(dist, "alice", 100)
		require.NoError(t, err)
	}
	assert.True(t, l.StakeOf("alice").IsZero())
}

func TestStakeEventsEmitted(t *testing.T) {
	l, clk := newTestLedger(t)
	stake(t, l, "alice", 100)
	clk.Advance(8 * 24 * time.Hour)
	require.NoError(t, l.Unstake("alice", uint256.NewInt(40)))

	evs := l.Range(1, l.Head())
	require.Len(t, evs, 2)
	assert.Equal(t, EventStaked, evs[0].Kind)
	assert.Equal(t, EventUnstaked, evs[1].Kind)
	assert.Equal(t, uint64(1), evs[0].Seq)
	assert.Equal(t, uint64(2), evs[1].Seq)
}
