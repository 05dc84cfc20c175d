package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// questionID derives a deterministic, collision-resistant id. The nonce makes
// resubmission of identical text by the same asker produce a fresh id.
func questionID(asker, text string, nonce uint64) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d", asker, text, nonce))
	return hex.EncodeToString(h[:])
}

// SubmitQuestion validates and records a question, escrowing the fee from the
// asker's spendable balance. Returns the derived question id.
func (l *Ledger) SubmitQuestion(asker, text string, referenceURLs []string, fee *uint256.Int) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" || len(text) > l.params.MaxQuestionLen {
		return "", ErrInvalidLength
	}
	if fee == nil || fee.Lt(l.params.MinFee) {
		return "", ErrInsufficientFee
	}
	acc := l.account(asker)
	if acc.Balance.Lt(fee) {
		return "", ErrInsufficientBalance
	}

	l.nonce++
	id := questionID(asker, text, l.nonce)

	// fee leaves the asker's balance and is held in escrow with the question
	acc.Balance.Sub(acc.Balance, fee)

	q := &Question{
		ID:            id,
		Asker:         asker,
		Text:          text,
		ReferenceURLs: append([]string(nil), referenceURLs...),
		Fee:           fee.Clone(),
		SubmittedAt:   l.now(),
	}
	l.questions[id] = q

	l.emit(EventQuestionSubmitted, id, QuestionSubmittedPayload{
		QuestionID:    id,
		Asker:         asker,
		Text:          text,
		ReferenceURLs: q.ReferenceURLs,
		Fee:           fee.Dec(),
	})
	return id, nil
}

// RecordAnswer stores the one answer a question may have and atomically opens
// its voting round. Relayer role only.
func (l *Ledger) RecordAnswer(caller Caller, questionID, text, storageHash string, proof Proof) error {
	if !caller.Has(RoleRelayer) {
		return ErrUnauthorized
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.questions[questionID]
	if !ok {
		return ErrNotFound
	}
	if q.Answered {
		return ErrAlreadyAnswered
	}

	now := l.now()
	q.Answered = true
	l.answers[questionID] = &Answer{
		QuestionID:  questionID,
		Text:        text,
		StorageHash: storageHash,
		Proof:       proof,
		Relayer:     caller.Addr,
		SubmittedAt: now,
	}
	end := now.Add(l.params.VotingWindow)
	l.rounds[questionID] = &Round{
		QuestionID:   questionID,
		StartTime:    now,
		EndTime:      end,
		VotesFor:     uint256.NewInt(0),
		VotesAgainst: uint256.NewInt(0),
	}
	l.votes[questionID] = make(map[string]*Vote)

	l.emit(EventAnswerSubmitted, questionID, AnswerSubmittedPayload{
		QuestionID:  questionID,
		Text:        text,
		StorageHash: storageHash,
		ModelHash:   proof.ModelHash,
		InputHash:   proof.InputHash,
		OutputHash:  proof.OutputHash,
		Relayer:     caller.Addr,
		WindowEnd:   end,
	})
	return nil
}
