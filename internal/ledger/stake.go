package ledger

import "github.com/holiman/uint256"

// Deposit credits spendable balance. This is the value rail stand-in: in the
// reference deployment fees arrive attached to the submitting transaction.
func (l *Ledger) Deposit(owner string, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	acc := l.account(owner)
	acc.Balance.Add(acc.Balance, amount)
	return nil
}

// Stake moves spendable balance into the staked pool and resets the lock
// clock. Amounts below the configured minimum are rejected.
func (l *Ledger) Stake(owner string, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.Lt(l.params.MinStake) {
		return ErrBelowMinStake
	}
	acc := l.account(owner)
	if acc.Balance.Lt(amount) {
		return ErrInsufficientBalance
	}
	acc.Balance.Sub(acc.Balance, amount)
	acc.Staked.Add(acc.Staked, amount)
	acc.StakeTime = l.now()
	l.totalStaked.Add(l.totalStaked, amount)

	l.emit(EventStaked, "", StakeChangedPayload{
		Owner:  owner,
		Amount: amount.Dec(),
		Total:  l.totalStaked.Dec(),
	})
	return nil
}

// Unstake moves staked balance back to spendable once the lock period has
// elapsed since the most recent stake.
func (l *Ledger) Unstake(owner string, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[owner]
	if !ok || acc.Staked.IsZero() {
		return ErrNotStaked
	}
	if l.now().Sub(acc.StakeTime) < l.params.LockPeriod {
		return ErrLockActive
	}
	if acc.Staked.Lt(amount) {
		return ErrInsufficientStake
	}
	acc.Staked.Sub(acc.Staked, amount)
	acc.Balance.Add(acc.Balance, amount)
	l.totalStaked.Sub(l.totalStaked, amount)

	l.emit(EventUnstaked, "", StakeChangedPayload{
		Owner:  owner,
		Amount: amount.Dec(),
		Total:  l.totalStaked.Dec(),
	})
	return nil
}

// Slash removes pct percent of the owner's current stake. Distributor role
// only. A zero balance is a no-op, never an error, and the balance can only
// reach zero, never go negative.
func (l *Ledger) Slash(caller Caller, owner string, pct uint64) (*uint256.Int, error) {
	if !caller.Has(RoleDistributor) {
		return nil, ErrUnauthorized
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slashLocked(owner, pct), nil
}

// slashLocked is the distribution path used inside finalize; the caller holds
// the mutex.
func (l *Ledger) slashLocked(owner string, pct uint64) *uint256.Int {
	acc, ok := l.accounts[owner]
	if !ok || acc.Staked.IsZero() || pct == 0 {
		return uint256.NewInt(0)
	}
	if pct > 100 {
		pct = 100
	}
	cut := new(uint256.Int).Mul(acc.Staked, uint256.NewInt(pct))
	cut.Div(cut, hundred)
	if cut.Gt(acc.Staked) {
		// defensive: refuse to drive a balance negative
		cut = acc.Staked.Clone()
	}
	acc.Staked.Sub(acc.Staked, cut)
	l.totalStaked.Sub(l.totalStaked, cut)
	l.treasury.Add(l.treasury, cut)

	l.emit(EventSlashed, "", StakeChangedPayload{
		Owner:  owner,
		Amount: cut.Dec(),
		Total:  l.totalStaked.Dec(),
	})
	return cut
}

// StakeOf returns the owner's staked balance.
func (l *Ledger) StakeOf(owner string) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acc, ok := l.accounts[owner]; ok {
		return acc.Staked.Clone()
	}
	return uint256.NewInt(0)
}

// BalanceOf returns the owner's spendable balance.
func (l *Ledger) BalanceOf(owner string) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acc, ok := l.accounts[owner]; ok {
		return acc.Balance.Clone()
	}
	return uint256.NewInt(0)
}

// TotalStaked returns the aggregate staked supply.
func (l *Ledger) TotalStaked() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalStaked.Clone()
}

var hundred = uint256.NewInt(100)
