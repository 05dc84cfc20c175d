// Package relay keeps the off-chain read model consistent with the ledger's
// event log and drives the lifecycle forward: it requests AI answers for new
// questions, mirrors voting windows, and sweeps closed rounds into
// finalization. Event application is idempotent, so at-least-once delivery
// and manual resyncs are safe.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"oracle-consensus/internal/ai"
	"oracle-consensus/internal/config"
	"oracle-consensus/internal/ledger"
	"oracle-consensus/internal/logger"
	"oracle-consensus/internal/metrics"
	"oracle-consensus/internal/models"
	"oracle-consensus/internal/storage"
)

const (
	// TUIChannelBufferSize bounds the update channel so a stalled TUI applies
	// back-pressure by dropping updates instead of growing without limit.
	TUIChannelBufferSize = 64
	// TUICloseDelay gives the TUI a moment to drain on shutdown.
	TUICloseDelay = 100 * time.Millisecond

	cursorName    = "main"
	maxAIAttempts = 10
	// a cursor heartbeat older than this is considered abandoned and another
	// relay instance may take over
	leaseStaleAfter = 1 * time.Minute
)

// StatusUpdate is pushed to the TUI channel after every poll.
type StatusUpdate struct {
	IsRunning   bool
	LastSeq     uint64
	BacklogSize int64
	InstanceID  string
}

// RoundUpdate is pushed to the TUI channel when a question's mirror state
// changes.
type RoundUpdate struct {
	QuestionID string
	Text       string
	State      string
	VotesFor   int
	VotesTotal int
}

// Status is the relay administrative report.
type Status struct {
	IsRunning        bool   `json:"is_running"`
	LastProcessedSeq uint64 `json:"last_processed_seq"`
	BacklogSize      int64  `json:"backlog_size"`
	InstanceID       string `json:"instance_id"`
}

// Relay mirrors ledger events into the read model. It does not decide
// verdicts; finalization goes back through the ledger and returns to the
// mirror as a VotingFinalized event.
type Relay struct {
	cfg        config.Config
	db         *gorm.DB
	source     EventSource
	submitter  Submitter
	aiClient   ai.Client
	store      storage.Store
	log        *logger.Logger
	updates    chan<- any
	instanceID string

	relayerCaller   ledger.Caller
	consensusCaller ledger.Caller

	lastSeq    atomic.Uint64
	loopActive atomic.Bool
	paused     atomic.Bool

	// retry policy for AI fulfilment, replaceable in tests
	backoffFactory func() backoff.BackOff

	mu sync.Mutex // serializes apply/resync against each other
}

// New wires a relay. The db handle is required: the cursor and the mirror
// live there. A nil submitter puts the relay in mirror-only mode: events are
// applied to the read model but no answers are recorded and no rounds are
// finalized from here.
func New(cfg config.Config, db *gorm.DB, source EventSource, submitter Submitter, aiClient ai.Client, store storage.Store, updates chan<- any, log *logger.Logger) (*Relay, error) {
	if db == nil {
		return nil, errors.New("relay requires a database; set DATABASE_URL")
	}
	if source == nil {
		return nil, errors.New("relay requires an event source")
	}
	if submitter == nil && aiClient != nil {
		return nil, errors.New("an AI client needs a submitter to record answers; drop the client for mirror-only mode")
	}
	return &Relay{
		cfg:             cfg,
		db:              db,
		source:          source,
		submitter:       submitter,
		aiClient:        aiClient,
		store:           store,
		log:             log,
		updates:         updates,
		instanceID:      uuid.NewString(),
		relayerCaller:   ledger.NewCaller(cfg.RelayerAddr, ledger.RoleRelayer),
		consensusCaller: ledger.NewCaller(cfg.RelayerAddr, ledger.RoleConsensus, ledger.RoleDistributor),
		backoffFactory: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}, nil
}

// claimCursor loads (or creates) the persisted cursor row and takes the
// instance lease. A second live relay is refused rather than allowed to
// interleave cursor advancement.
func (r *Relay) claimCursor() error {
	var cur models.RelayCursor
	err := r.db.Where(models.RelayCursor{Name: cursorName}).
		Attrs(models.RelayCursor{InstanceID: r.instanceID, HeartbeatAt: time.Now()}).
		FirstOrCreate(&cur).Error
	if err != nil {
		return fmt.Errorf("load relay cursor: %w", err)
	}
	if cur.InstanceID != r.instanceID && time.Since(cur.HeartbeatAt) < leaseStaleAfter {
		return fmt.Errorf("relay instance %s appears active (heartbeat %s ago)",
			cur.InstanceID, time.Since(cur.HeartbeatAt).Round(time.Second))
	}
	if err := r.db.Model(&models.RelayCursor{}).Where("name = ?", cursorName).
		Updates(map[string]any{"instance_id": r.instanceID, "heartbeat_at": time.Now()}).Error; err != nil {
		return fmt.Errorf("claim relay cursor: %w", err)
	}
	r.lastSeq.Store(cur.LastSeq)
	return nil
}

// Run drives the poll and sweep loops until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.claimCursor(); err != nil {
		return err
	}
	r.loopActive.Store(true)
	defer r.loopActive.Store(false)

	poll := time.NewTicker(r.cfg.PollInterval)
	defer poll.Stop()
	sweep := time.NewTicker(r.cfg.SweepInterval)
	defer sweep.Stop()

	// catch up immediately instead of waiting a full tick
	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-poll.C:
			r.tick(ctx)
		case <-sweep.C:
			if r.paused.Load() {
				continue
			}
			r.sweepFinalizable(ctx)
			r.processBacklog(ctx)
		}
	}
}

func (r *Relay) tick(ctx context.Context) {
	if r.paused.Load() {
		return
	}
	if err := r.pollOnce(ctx); err != nil {
		r.log.Printf("poll error: %v", err)
	}
	r.pushStatus()
}

// pollOnce fetches cursor+1..head and applies each event in its own
// transaction together with the cursor advance. A failure leaves the cursor
// unadvanced so the event is retried on the next tick.
func (r *Relay) pollOnce(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	head, err := r.source.Head(ctx)
	if err != nil {
		return fmt.Errorf("event source head: %w", err)
	}
	cursor := r.lastSeq.Load()
	if head <= cursor {
		r.heartbeat()
		return nil
	}

	events, err := r.source.Range(ctx, cursor+1, head)
	if err != nil {
		return fmt.Errorf("event source range %d..%d: %w", cursor+1, head, err)
	}
	for i, ev := range events {
		if err := r.applyAndAdvance(ev, cursorAfter(events, i)); err != nil {
			return fmt.Errorf("apply event seq=%d kind=%s: %w", ev.Seq, ev.Kind, err)
		}
	}
	return nil
}

func (r *Relay) heartbeat() {
	_ = r.db.Model(&models.RelayCursor{}).Where("name = ?", cursorName).
		Update("heartbeat_at", time.Now()).Error
}

// applyAndAdvance applies one event and moves the cursor in the same
// transaction. The cursor only ever moves forward, and only to advanceTo:
// chain-backed sources deliver several events under one height, so the
// cursor must stay below that height until its last event lands, or a crash
// in between would skip the rest of the height on restart.
func (r *Relay) applyAndAdvance(ev ledger.Event, advanceTo uint64) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.applyEvent(tx, ev); err != nil {
			return err
		}
		return tx.Model(&models.RelayCursor{}).
			Where("name = ? AND last_seq < ?", cursorName, advanceTo).
			Updates(map[string]any{"last_seq": advanceTo, "heartbeat_at": time.Now()}).Error
	})
	if err != nil {
		return err
	}
	if advanceTo > r.lastSeq.Load() {
		r.lastSeq.Store(advanceTo)
		metrics.SetCursor(advanceTo)
	}
	metrics.RecordEventApplied(string(ev.Kind))
	return nil
}

// cursorAfter returns how far the cursor may move once events[i] is applied:
// the event's own sequence number, unless more events of that sequence follow
// in the batch.
func cursorAfter(events []ledger.Event, i int) uint64 {
	if i+1 < len(events) && events[i+1].Seq == events[i].Seq {
		return events[i].Seq - 1
	}
	return events[i].Seq
}

// applyEvent upserts the mirror rows for one event. Keyed on the question id
// (or (question id, voter) for votes), so redelivery is a no-op.
func (r *Relay) applyEvent(tx *gorm.DB, ev ledger.Event) error {
	switch ev.Kind {
	case ledger.EventQuestionSubmitted:
		var p ledger.QuestionSubmittedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		refs, _ := json.Marshal(p.ReferenceURLs)
		var q models.Question
		if err := tx.Where(models.Question{QuestionID: p.QuestionID}).
			Attrs(models.Question{
				Asker:         p.Asker,
				Text:          p.Text,
				ReferenceURLs: string(refs),
				Fee:           p.Fee,
				SubmittedAt:   ev.Time,
			}).FirstOrCreate(&q).Error; err != nil {
			return err
		}
		// queue the AI answer request; the backlog scan performs it so a slow
		// or failing AI service never blocks event application
		var req models.AIRequest
		if err := tx.Where(models.AIRequest{QuestionID: p.QuestionID}).
			Attrs(models.AIRequest{Status: models.AIStatusPending, RequestedAt: ev.Time}).
			FirstOrCreate(&req).Error; err != nil {
			return err
		}
		r.pushRound(p.QuestionID, p.Text, "submitted", 0, 0)

	case ledger.EventAnswerSubmitted:
		var p ledger.AnswerSubmittedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		var a models.Answer
		if err := tx.Where(models.Answer{QuestionID: p.QuestionID}).
			Attrs(models.Answer{
				Text:        p.Text,
				StorageHash: p.StorageHash,
				ModelHash:   p.ModelHash,
				InputHash:   p.InputHash,
				OutputHash:  p.OutputHash,
				Relayer:     p.Relayer,
				SubmittedAt: ev.Time,
			}).FirstOrCreate(&a).Error; err != nil {
			return err
		}
		var rd models.Round
		if err := tx.Where(models.Round{QuestionID: p.QuestionID}).
			Attrs(models.Round{WindowStart: ev.Time, WindowEnd: p.WindowEnd}).
			FirstOrCreate(&rd).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Question{}).Where("question_id = ?", p.QuestionID).
			Update("answered", true).Error; err != nil {
			return err
		}
		// the answer exists on the ledger, whoever produced it: settle the
		// local request so the backlog never re-submits
		if err := tx.Model(&models.AIRequest{}).Where("question_id = ?", p.QuestionID).
			Update("status", models.AIStatusDone).Error; err != nil {
			return err
		}
		r.pushRound(p.QuestionID, p.Text, "open", 0, 0)

	case ledger.EventVoteCast:
		var p ledger.VoteCastPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		var v models.VoteRecord
		// Attrs only: votes are immutable, an existing row is left untouched
		if err := tx.Where(models.VoteRecord{QuestionID: p.QuestionID, Voter: p.Voter}).
			Attrs(models.VoteRecord{Approved: p.Approved, Stake: p.Stake, CastAt: ev.Time}).
			FirstOrCreate(&v).Error; err != nil {
			return err
		}

	case ledger.EventVotingFinalized:
		var p ledger.VotingFinalizedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		if err := tx.Model(&models.Round{}).Where("question_id = ?", p.QuestionID).
			Updates(map[string]any{
				"finalized":    true,
				"approved":     p.Approved,
				"quorum_pct":   p.QuorumPct,
				"approval_pct": p.ApprovalPct,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Question{}).Where("question_id = ?", p.QuestionID).
			Updates(map[string]any{"finalized": true, "verified": p.Approved}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Answer{}).Where("question_id = ?", p.QuestionID).
			Update("verified", p.Approved).Error; err != nil {
			return err
		}
		metrics.RecordFinalized(p.Approved)
		r.pushRound(p.QuestionID, "", "finalized", 0, 0)

	case ledger.EventStaked, ledger.EventUnstaked, ledger.EventSlashed:
		// stake movements shift future vote weights only; nothing to mirror

	default:
		r.log.Printf("skipping unknown event kind %q seq=%d", ev.Kind, ev.Seq)
	}
	return nil
}

// processBacklog fulfils pending AI requests. Each attempt retries with
// exponential backoff; a request that keeps failing is parked as failed after
// maxAIAttempts scans and needs an operator resync or manual retry.
func (r *Relay) processBacklog(ctx context.Context) {
	if r.aiClient == nil || r.store == nil || r.submitter == nil {
		return
	}
	// gauge the whole backlog, not just the slice this pass works off
	var total int64
	if err := r.db.Model(&models.AIRequest{}).
		Where("status = ?", models.AIStatusPending).Count(&total).Error; err != nil {
		r.log.Printf("backlog count error: %v", err)
		return
	}
	metrics.SetBacklog(total)

	var pending []models.AIRequest
	if err := r.db.Where("status = ?", models.AIStatusPending).
		Order("requested_at").Limit(16).Find(&pending).Error; err != nil {
		r.log.Printf("backlog scan error: %v", err)
		return
	}
	for i := range pending {
		select {
		case <-ctx.Done():
			return
		default:
		}
		r.fulfil(ctx, &pending[i])
	}
}

func (r *Relay) fulfil(ctx context.Context, req *models.AIRequest) {
	var q models.Question
	if err := r.db.Where("question_id = ?", req.QuestionID).First(&q).Error; err != nil {
		r.log.Printf("backlog: question %s not mirrored yet: %v", req.QuestionID, err)
		return
	}
	if q.Answered {
		r.settleRequest(req.QuestionID, models.AIStatusDone, "")
		return
	}

	var refs []string
	_ = json.Unmarshal([]byte(q.ReferenceURLs), &refs)

	op := func() error {
		res, err := r.aiClient.Answer(ctx, q.Text, refs)
		if err != nil {
			return fmt.Errorf("inference: %w", err)
		}
		stored, err := r.store.Put(ctx, []byte(res.Text))
		if err != nil {
			return fmt.Errorf("store answer: %w", err)
		}
		err = r.submitter.RecordAnswer(r.relayerCaller, req.QuestionID, res.Text, stored.Hash, ledger.Proof{
			ModelHash:  res.ModelHash,
			InputHash:  res.InputHash,
			OutputHash: res.OutputHash,
		})
		if errors.Is(err, ledger.ErrAlreadyAnswered) {
			// someone else recorded it first; that is success for us
			return nil
		}
		if err != nil {
			// authorization and not-found errors will not heal with retries
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(r.backoffFactory(), 3), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		req.Attempts++
		status := models.AIStatusPending
		if req.Attempts >= maxAIAttempts {
			status = models.AIStatusFailed
			r.log.Printf("backlog: giving up on question %s after %d attempts: %v", req.QuestionID, req.Attempts, err)
		} else {
			r.log.Printf("backlog: question %s attempt %d failed: %v", req.QuestionID, req.Attempts, err)
		}
		_ = r.db.Model(&models.AIRequest{}).Where("question_id = ?", req.QuestionID).
			Updates(map[string]any{"status": status, "attempts": req.Attempts, "last_error": err.Error()}).Error
		metrics.RecordAIRequest("error")
		return
	}
	r.settleRequest(req.QuestionID, models.AIStatusDone, "")
	metrics.RecordAIRequest("ok")
	r.log.Printf("answer recorded for question %s", req.QuestionID)
}

func (r *Relay) settleRequest(questionID, status, lastErr string) {
	_ = r.db.Model(&models.AIRequest{}).Where("question_id = ?", questionID).
		Updates(map[string]any{"status": status, "last_error": lastErr}).Error
}

// sweepFinalizable triggers finalization for mirrored rounds whose window has
// elapsed. The ledger's AlreadyFinalized guard makes concurrent or repeated
// triggers benign.
func (r *Relay) sweepFinalizable(ctx context.Context) {
	if r.submitter == nil {
		return
	}
	var rounds []models.Round
	if err := r.db.Where("finalized = ? AND window_end < ?", false, time.Now()).
		Limit(32).Find(&rounds).Error; err != nil {
		r.log.Printf("sweep scan error: %v", err)
		return
	}
	for _, rd := range rounds {
		select {
		case <-ctx.Done():
			return
		default:
		}
		out, err := r.submitter.Finalize(r.consensusCaller, rd.QuestionID)
		switch {
		case err == nil:
			r.log.Printf("finalized question %s verdict=%v quorum=%d%% approval=%d%%",
				rd.QuestionID, out.Approved, out.QuorumPct, out.ApprovalPct)
		case errors.Is(err, ledger.ErrAlreadyFinalized), errors.Is(err, ledger.ErrVotingOpen):
			// lost a race with another trigger, or mirror clock ran ahead
		default:
			r.log.Printf("finalize %s: %v", rd.QuestionID, err)
		}
	}
}

// Resync replays events from the given sequence number through the same
// idempotent upserts. Rows are updated in place, never duplicated, and the
// cursor only moves forward.
func (r *Relay) Resync(ctx context.Context, from uint64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	head, err := r.source.Head(ctx)
	if err != nil {
		return 0, err
	}
	if from == 0 {
		from = 1
	}
	events, err := r.source.Range(ctx, from, head)
	if err != nil {
		return 0, err
	}
	for i, ev := range events {
		if err := r.applyAndAdvance(ev, cursorAfter(events, i)); err != nil {
			return 0, fmt.Errorf("resync seq=%d: %w", ev.Seq, err)
		}
	}
	r.log.Printf("resync replayed %d events from seq %d", len(events), from)
	return len(events), nil
}

// Pause stops event application and side effects without tearing the loop
// down; Resume restarts them.
func (r *Relay) Pause()  { r.paused.Store(true) }
func (r *Relay) Resume() { r.paused.Store(false) }

// Status reports the relay's administrative state.
func (r *Relay) Status() Status {
	var backlog int64
	_ = r.db.Model(&models.AIRequest{}).Where("status = ?", models.AIStatusPending).
		Count(&backlog).Error
	return Status{
		IsRunning:        r.loopActive.Load() && !r.paused.Load(),
		LastProcessedSeq: r.lastSeq.Load(),
		BacklogSize:      backlog,
		InstanceID:       r.instanceID,
	}
}

func (r *Relay) pushStatus() {
	if r.updates == nil {
		return
	}
	st := r.Status()
	select {
	case r.updates <- StatusUpdate{
		IsRunning:   st.IsRunning,
		LastSeq:     st.LastProcessedSeq,
		BacklogSize: st.BacklogSize,
		InstanceID:  st.InstanceID,
	}:
	default: // TUI is behind; drop rather than block the poll loop
	}
}

func (r *Relay) pushRound(questionID, text, state string, votesFor, votesTotal int) {
	if r.updates == nil {
		return
	}
	select {
	case r.updates <- RoundUpdate{
		QuestionID: questionID,
		Text:       text,
		State:      state,
		VotesFor:   votesFor,
		VotesTotal: votesTotal,
	}:
	default:
	}
}
