package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	abci "github.com/cometbft/cometbft/abci/types"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"

	"oracle-consensus/internal/ledger"
)

// abciEventPrefix namespaces the oracle's events among everything else a
// chain emits.
const abciEventPrefix = "oracle."

// CometSource reads ledger events from a CometBFT chain. The relay cursor is
// the block height here: Range walks BlockResults per height and decodes the
// oracle's ABCI events. Events of one height share that height as their Seq,
// so a crash mid-height replays the whole height; application is idempotent,
// so that is redelivery, not corruption.
type CometSource struct {
	client *rpchttp.HTTP
}

// NewCometSource connects the RPC client. rpchttp.New takes the RPC base URL
// and WS path separately.
func NewCometSource(rpcURL, wsPath string) (*CometSource, error) {
	client, err := rpchttp.New(rpcURL, wsPath)
	if err != nil {
		return nil, fmt.Errorf("create rpc client: %w", err)
	}
	return &CometSource{client: client}, nil
}

func (s *CometSource) Head(ctx context.Context) (uint64, error) {
	st, err := s.client.Status(ctx)
	if err != nil {
		return 0, fmt.Errorf("rpc status: %w", err)
	}
	return uint64(st.SyncInfo.LatestBlockHeight), nil
}

func (s *CometSource) Range(ctx context.Context, from, to uint64) ([]ledger.Event, error) {
	var out []ledger.Event
	for h := from; h <= to; h++ {
		height := int64(h)

		blk, err := s.client.Block(ctx, &height)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", h, err)
		}
		res, err := s.client.BlockResults(ctx, &height)
		if err != nil {
			return nil, fmt.Errorf("block results %d: %w", h, err)
		}

		decode := func(aev abci.Event) {
			ev, ok := decodeABCIEvent(h, aev)
			if !ok {
				return
			}
			ev.Time = blk.Block.Header.Time
			out = append(out, ev)
		}
		for _, txr := range res.TxsResults {
			for _, aev := range txr.Events {
				decode(aev)
			}
		}
		for _, aev := range res.FinalizeBlockEvents {
			decode(aev)
		}
	}
	return out, nil
}

// decodeABCIEvent maps an oracle ABCI event onto the ledger event shape. The
// emitting contract writes the full payload JSON into a single attribute;
// question_id is duplicated as its own attribute for chain-side indexing.
func decodeABCIEvent(height uint64, aev abci.Event) (ledger.Event, bool) {
	if !strings.HasPrefix(aev.Type, abciEventPrefix) {
		return ledger.Event{}, false
	}
	kind := ledger.EventKind(strings.TrimPrefix(aev.Type, abciEventPrefix))

	payload := attrValue(aev, "payload")
	if payload == "" || !json.Valid([]byte(payload)) {
		return ledger.Event{}, false
	}
	return ledger.Event{
		Seq:        height,
		Kind:       kind,
		QuestionID: attrValue(aev, "question_id"),
		Payload:    json.RawMessage(payload),
	}, true
}

// attrValue returns the first attribute value for the key, tolerating case
// differences across emitters.
func attrValue(aev abci.Event, key string) string {
	for _, at := range aev.Attributes {
		if strings.EqualFold(at.Key, key) {
			return strings.TrimSpace(at.Value)
		}
	}
	return ""
}
