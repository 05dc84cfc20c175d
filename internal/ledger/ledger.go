// Package ledger implements the authoritative state of the question oracle:
// stake accounts, the question/answer lifecycle, per-question voting rounds
// and the reward/slash distribution that runs at finalization. All mutations
// go through a single mutex, standing in for the chain's serialized execution
// model; every mutation appends to an ordered event log that the relay
// mirrors into its off-chain read model.
package ledger

import (
	"sync"
	"time"

	"github.com/holiman/uint256"

	"oracle-consensus/internal/consensus"
)

// Params are the economic and timing constants of the system. Percentages are
// whole numbers.
type Params struct {
	MinStake       *uint256.Int
	MinFee         *uint256.Int
	MaxQuestionLen int
	LockPeriod     time.Duration
	VotingWindow   time.Duration
	QuorumPct      uint64
	ApprovalPct    uint64
	SlashPct       uint64
	RewardPct      uint64
}

// DefaultParams returns the reference parameters.
func DefaultParams() Params {
	return Params{
		MinStake:       uint256.NewInt(1),
		MinFee:         uint256.NewInt(1),
		MaxQuestionLen: 2048,
		LockPeriod:     7 * 24 * time.Hour,
		VotingWindow:   24 * time.Hour,
		QuorumPct:      33,
		ApprovalPct:    66,
		SlashPct:       20,
		RewardPct:      5,
	}
}

// Account is a participant's ledger entry. Spendable balance and staked
// balance are separate pools; staking moves value between them.
type Account struct {
	Owner      string
	Balance    *uint256.Int
	Staked     *uint256.Int
	StakeTime  time.Time
	RewardDebt *uint256.Int // cumulative rewards paid out
}

// Question is immutable after submission except for the Answered flag.
type Question struct {
	ID            string
	Asker         string
	Text          string
	ReferenceURLs []string
	Fee           *uint256.Int
	SubmittedAt   time.Time
	Answered      bool
}

// Proof ties an answer to the inference run that produced it.
type Proof struct {
	ModelHash  string
	InputHash  string
	OutputHash string
}

// Answer is 1:1 with a question. Verified flips true only on an approving
// finalization and is the only field that changes after creation.
type Answer struct {
	QuestionID  string
	Text        string
	StorageHash string
	Proof       Proof
	Relayer     string
	SubmittedAt time.Time
	Verified    bool
}

// RoundState is the lifecycle position of a voting round. Open/Closed is
// inferred lazily from the clock; there is no timer flipping state.
type RoundState int

const (
	RoundPending RoundState = iota // answer not yet recorded
	RoundOpen
	RoundClosed
	RoundFinalized
)

func (s RoundState) String() string {
	switch s {
	case RoundPending:
		return "pending"
	case RoundOpen:
		return "open"
	case RoundClosed:
		return "closed"
	default:
		return "finalized"
	}
}

// Round is the per-question voting state machine.
type Round struct {
	QuestionID   string
	StartTime    time.Time
	EndTime      time.Time
	VotesFor     *uint256.Int
	VotesAgainst *uint256.Int
	Finalized    bool
}

// TotalStakeCounted is the participating stake of the round.
func (r *Round) TotalStakeCounted() *uint256.Int {
	return new(uint256.Int).Add(r.VotesFor, r.VotesAgainst)
}

// State reports the round's position at the given instant.
func (r *Round) State(now time.Time) RoundState {
	switch {
	case r.Finalized:
		return RoundFinalized
	case now.After(r.EndTime):
		return RoundClosed
	default:
		return RoundOpen
	}
}

// Vote captures the voter's stake at the moment of voting; later stake
// changes cannot alter a round's tally.
type Vote struct {
	QuestionID  string
	Voter       string
	Approved    bool
	StakeWeight *uint256.Int
	CastAt      time.Time
}

// Ledger is the single writer of authoritative state.
type Ledger struct {
	mu     sync.Mutex
	params Params
	now    func() time.Time

	accounts    map[string]*Account
	totalStaked *uint256.Int
	treasury    *uint256.Int

	questions map[string]*Question
	answers   map[string]*Answer
	rounds    map[string]*Round
	votes     map[string]map[string]*Vote // question id -> voter -> vote

	events []Event
	nonce  uint64
}

// Option customizes a Ledger at construction.
type Option func(*Ledger)

// WithClock injects the time source. Tests use this to drive window and lock
// expiry deterministically.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates an empty ledger.
func New(params Params, opts ...Option) *Ledger {
	l := &Ledger{
		params:      params,
		now:         time.Now,
		accounts:    make(map[string]*Account),
		totalStaked: uint256.NewInt(0),
		treasury:    uint256.NewInt(0),
		questions:   make(map[string]*Question),
		answers:     make(map[string]*Answer),
		rounds:      make(map[string]*Round),
		votes:       make(map[string]map[string]*Vote),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Params returns the configured parameters.
func (l *Ledger) Params() Params { return l.params }

func (l *Ledger) account(owner string) *Account {
	acc, ok := l.accounts[owner]
	if !ok {
		acc = &Account{
			Owner:      owner,
			Balance:    uint256.NewInt(0),
			Staked:     uint256.NewInt(0),
			RewardDebt: uint256.NewInt(0),
		}
		l.accounts[owner] = acc
	}
	return acc
}

func (l *Ledger) thresholds() consensus.Thresholds {
	return consensus.Thresholds{QuorumPct: l.params.QuorumPct, ApprovalPct: l.params.ApprovalPct}
}

// Treasury returns the retained fee/slash balance.
func (l *Ledger) Treasury() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.treasury.Clone()
}

// Question returns a snapshot of a question.
func (l *Ledger) Question(id string) (Question, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	q, ok := l.questions[id]
	if !ok {
		return Question{}, false
	}
	return *q, true
}

// Answer returns a snapshot of a question's answer.
func (l *Ledger) Answer(questionID string) (Answer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.answers[questionID]
	if !ok {
		return Answer{}, false
	}
	return *a, true
}

// Round returns a snapshot of a question's voting round.
func (l *Ledger) Round(questionID string) (Round, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rounds[questionID]
	if !ok {
		return Round{}, false
	}
	snap := *r
	snap.VotesFor = r.VotesFor.Clone()
	snap.VotesAgainst = r.VotesAgainst.Clone()
	return snap, true
}

// VoteOf returns the recorded vote of a voter in a question's round.
func (l *Ledger) VoteOf(questionID, voter string) (Vote, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.votes[questionID][voter]
	if !ok {
		return Vote{}, false
	}
	snap := *v
	snap.StakeWeight = v.StakeWeight.Clone()
	return snap, true
}
