package ledger

import "errors"

// Validation errors: rejected synchronously, no state mutation.
var (
	ErrInvalidLength   = errors.New("question text empty or over the configured maximum")
	ErrInsufficientFee = errors.New("fee below the configured minimum")
	ErrBelowMinStake   = errors.New("stake amount below the configured minimum")
	ErrInvalidAmount   = errors.New("amount must be non-zero")
	ErrLockActive      = errors.New("stake lock period has not elapsed")
	ErrVotingEnded     = errors.New("voting window has ended")
	ErrVotingNotOpen   = errors.New("no voting round is open for this question")
	ErrVotingOpen      = errors.New("voting window is still open")
)

// Authorization errors.
var (
	ErrUnauthorized = errors.New("caller lacks the required role")
	ErrNotStaked    = errors.New("caller has no staked balance")
)

// Conflict errors: double application of a transition is rejected, never
// silently overwritten.
var (
	ErrNotFound            = errors.New("question not found")
	ErrAlreadyAnswered     = errors.New("question already has an answer")
	ErrAlreadyVoted        = errors.New("voter already voted in this round")
	ErrAlreadyFinalized    = errors.New("round already finalized")
	ErrInsufficientBalance = errors.New("insufficient spendable balance")
	ErrInsufficientStake   = errors.New("unstake amount exceeds staked balance")
)
