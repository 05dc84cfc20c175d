package ledger

import (
	"encoding/json"
	"time"
)

// EventKind discriminates ledger log entries.
type EventKind string

const (
	EventQuestionSubmitted EventKind = "question_submitted"
	EventAnswerSubmitted   EventKind = "answer_submitted"
	EventVoteCast          EventKind = "vote_cast"
	EventVotingFinalized   EventKind = "voting_finalized"
	EventStaked            EventKind = "staked"
	EventUnstaked          EventKind = "unstaked"
	EventSlashed           EventKind = "slashed"
)

// Event is one entry of the append-only ledger log. Seq is assigned on append
// and strictly increases by one; the relay's cursor is a Seq value.
type Event struct {
	Seq        uint64          `json:"seq"`
	Kind       EventKind       `json:"kind"`
	QuestionID string          `json:"question_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Time       time.Time       `json:"time"`
}

// Payloads are JSON so a mirror can be rebuilt from the log alone. Amounts
// travel as decimal strings to survive any JSON number handling.

type QuestionSubmittedPayload struct {
	QuestionID    string   `json:"question_id"`
	Asker         string   `json:"asker"`
	Text          string   `json:"text"`
	ReferenceURLs []string `json:"reference_urls,omitempty"`
	Fee           string   `json:"fee"`
}

type AnswerSubmittedPayload struct {
	QuestionID  string    `json:"question_id"`
	Text        string    `json:"text"`
	StorageHash string    `json:"storage_hash"`
	ModelHash   string    `json:"model_hash"`
	InputHash   string    `json:"input_hash"`
	OutputHash  string    `json:"output_hash"`
	Relayer     string    `json:"relayer"`
	WindowEnd   time.Time `json:"window_end"`
}

type VoteCastPayload struct {
	QuestionID string `json:"question_id"`
	Voter      string `json:"voter"`
	Approved   bool   `json:"approved"`
	Stake      string `json:"stake"`
}

type VotingFinalizedPayload struct {
	QuestionID  string `json:"question_id"`
	Approved    bool   `json:"approved"`
	QuorumPct   uint64 `json:"quorum_pct"`
	ApprovalPct uint64 `json:"approval_pct"`
	RewardEach  string `json:"reward_each"`
	Slashed     string `json:"slashed_total"`
}

type StakeChangedPayload struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
	Total  string `json:"total_staked"`
}

func (l *Ledger) emit(kind EventKind, questionID string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		// payload structs are plain data; a marshal failure is a bug
		panic("ledger: marshal event payload: " + err.Error())
	}
	l.events = append(l.events, Event{
		Seq:        uint64(len(l.events)) + 1,
		Kind:       kind,
		QuestionID: questionID,
		Payload:    raw,
		Time:       l.now(),
	})
}

// Head returns the sequence number of the newest event, 0 when empty.
func (l *Ledger) Head() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.events))
}

// Range returns events with from <= Seq <= to, clamped to the log bounds.
// The returned slice is a copy and safe to hold across ledger mutations.
func (l *Ledger) Range(from, to uint64) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	head := uint64(len(l.events))
	if from == 0 {
		from = 1
	}
	if to > head {
		to = head
	}
	if from > to {
		return nil
	}
	out := make([]Event, to-from+1)
	copy(out, l.events[from-1:to])
	return out
}
