package ledger

// CastVote records a stake-weighted vote in an open round. The voter's stake
// is snapshotted now; unstaking later does not change the tally. One vote per
// voter per round.
func (l *Ledger) CastVote(voter, questionID string, approved bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.questions[questionID]; !ok {
		return ErrNotFound
	}
	r, ok := l.rounds[questionID]
	if !ok {
		return ErrVotingNotOpen
	}
	now := l.now()
	switch r.State(now) {
	case RoundOpen:
	case RoundClosed, RoundFinalized:
		return ErrVotingEnded
	default:
		return ErrVotingNotOpen
	}

	acc, ok := l.accounts[voter]
	if !ok || acc.Staked.IsZero() {
		return ErrNotStaked
	}
	if _, dup := l.votes[questionID][voter]; dup {
		return ErrAlreadyVoted
	}

	weight := acc.Staked.Clone()
	if approved {
		r.VotesFor.Add(r.VotesFor, weight)
	} else {
		r.VotesAgainst.Add(r.VotesAgainst, weight)
	}
	l.votes[questionID][voter] = &Vote{
		QuestionID:  questionID,
		Voter:       voter,
		Approved:    approved,
		StakeWeight: weight,
		CastAt:      now,
	}

	l.emit(EventVoteCast, questionID, VoteCastPayload{
		QuestionID: questionID,
		Voter:      voter,
		Approved:   approved,
		Stake:      weight.Dec(),
	})
	return nil
}
