// Package sync coordinates the batch pipeline: records are mapped to
// gateway operations, partitioned by scope, executed scope by scope over a
// shared session, and demultiplexed back into exactly one outcome per
// input record.
package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct"
)

// DefaultMaxBatchSize caps how many records share one gateway request.
const DefaultMaxBatchSize = 50

// SessionProvider supplies scope-bound sessions.
type SessionProvider interface {
	EnsureSession(ctx context.Context, scope syncdomain.ScopeID) (*intacct.Session, error)
	Invalidate()
}

// BatchSubmitter executes one batch and returns per-operation results.
type BatchSubmitter interface {
	Submit(ctx context.Context, session *intacct.Session, batch intacct.Batch) ([]intacct.BatchResult, error)
}

// PlannedRecord is one input record after mapping: either a mapping error,
// or the gateway operations that realize it. MainIndex names the envelope
// whose result decides the record's outcome; auxiliary envelopes (folder
// and supdoc creation) ride along in the same request.
type PlannedRecord struct {
	ExternalID string
	MappingErr error
	Scope      syncdomain.ScopeID
	Atomic     bool
	Envelopes  []intacct.OperationEnvelope
	MainIndex  int
	// OnFailure runs after the record's submission fails, for compensating
	// cleanup of side effects already applied non-atomically.
	OnFailure func(ctx context.Context)
}

// Engine runs planned records against the gateway. Scopes are processed
// sequentially; a scope-level failure fails that scope's records only.
type Engine struct {
	sessions SessionProvider
	batches  BatchSubmitter
	log      *zap.Logger
	maxBatch int
}

// NewEngine wires an engine. maxBatch <= 0 selects the default.
func NewEngine(sessions SessionProvider, batches BatchSubmitter, maxBatch int, log *zap.Logger) *Engine {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}
	return &Engine{
		sessions: sessions,
		batches:  batches,
		log:      log.Named("engine"),
		maxBatch: maxBatch,
	}
}

// Run executes every planned record and returns one outcome per record, in
// input order. Mapping failures become failed outcomes without touching the
// gateway; the rest are partitioned by scope and submitted in batches of at
// most maxBatch records. Atomic records are submitted alone in a
// transactional request.
func (e *Engine) Run(ctx context.Context, records []PlannedRecord) []syncdomain.RecordOutcome {
	outcomes := make([]syncdomain.RecordOutcome, len(records))

	byScope := make(map[syncdomain.ScopeID][]int)
	var scopeOrder []syncdomain.ScopeID
	for i, rec := range records {
		if rec.MappingErr != nil {
			e.log.Warn("record failed mapping",
				zap.String("external_id", rec.ExternalID),
				zap.Error(rec.MappingErr))
			outcomes[i] = syncdomain.FailedOutcome(rec.ExternalID, rec.MappingErr)
			continue
		}
		if _, seen := byScope[rec.Scope]; !seen {
			scopeOrder = append(scopeOrder, rec.Scope)
		}
		byScope[rec.Scope] = append(byScope[rec.Scope], i)
	}

	for _, scope := range scopeOrder {
		e.runScope(ctx, scope, byScope[scope], records, outcomes)
	}
	return outcomes
}

func (e *Engine) runScope(ctx context.Context, scope syncdomain.ScopeID, indices []int, records []PlannedRecord, outcomes []syncdomain.RecordOutcome) {
	session, err := e.sessions.EnsureSession(ctx, scope)
	if err != nil {
		e.log.Error("scope unavailable, failing its records",
			zap.String("scope", string(scope)),
			zap.Int("records", len(indices)),
			zap.Error(err))
		for _, i := range indices {
			outcomes[i] = syncdomain.FailedOutcome(records[i].ExternalID, err)
		}
		return
	}

	var group []int
	flush := func() {
		if len(group) > 0 {
			e.submit(ctx, session, scope, group, records, outcomes)
			group = nil
		}
	}
	for _, i := range indices {
		if records[i].Atomic {
			flush()
			e.submit(ctx, session, scope, []int{i}, records, outcomes)
			continue
		}
		group = append(group, i)
		if len(group) == e.maxBatch {
			flush()
		}
	}
	flush()
}

// submit sends one batch and maps its results back onto the participating
// records. Correlation ids are assigned here from a per-batch counter so
// they are dense, unique, and meaningless outside the batch.
func (e *Engine) submit(ctx context.Context, session *intacct.Session, scope syncdomain.ScopeID, indices []int, records []PlannedRecord, outcomes []syncdomain.RecordOutcome) {
	batch := intacct.Batch{
		Scope:  scope,
		Atomic: len(indices) == 1 && records[indices[0]].Atomic,
	}
	mainID := make(map[int]string, len(indices))
	recordIDs := make(map[int][]string, len(indices))
	seq := 0
	for _, i := range indices {
		for j, env := range records[i].Envelopes {
			seq++
			env.CorrelationID = fmt.Sprintf("op-%d", seq)
			env.Scope = scope
			if j == records[i].MainIndex {
				mainID[i] = env.CorrelationID
			}
			recordIDs[i] = append(recordIDs[i], env.CorrelationID)
			batch.Envelopes = append(batch.Envelopes, env)
		}
	}

	results, err := e.batches.Submit(ctx, session, batch)
	if err != nil {
		e.log.Error("batch submission failed",
			zap.String("scope", string(scope)),
			zap.Int("records", len(indices)),
			zap.Error(err))
		for _, i := range indices {
			outcomes[i] = syncdomain.FailedOutcome(records[i].ExternalID, err)
			e.compensate(ctx, records[i])
		}
		return
	}

	byID := make(map[string]intacct.BatchResult, len(results))
	for _, r := range results {
		byID[r.CorrelationID] = r
	}
	for _, i := range indices {
		rec := records[i]
		result, ok := byID[mainID[i]]
		switch {
		case !ok:
			outcomes[i] = syncdomain.FailedOutcome(rec.ExternalID,
				fmt.Errorf("%w: no result for operation %q", syncdomain.ErrCorrelationMismatch, mainID[i]))
			e.compensate(ctx, rec)
		case !result.Success:
			outcomes[i] = syncdomain.FailedOutcome(rec.ExternalID, result.Err)
			e.compensate(ctx, rec)
		default:
			if err := auxFailure(byID, recordIDs[i], mainID[i]); err != nil {
				e.log.Warn("auxiliary operation failed for record",
					zap.String("external_id", rec.ExternalID),
					zap.Error(err))
				outcomes[i] = syncdomain.FailedOutcome(rec.ExternalID, err)
				e.compensate(ctx, rec)
				continue
			}
			outcomes[i] = syncdomain.RecordOutcome{
				ID:         result.RecordNo,
				ExternalID: rec.ExternalID,
				Success:    true,
				Updated:    result.Updated,
			}
		}
	}
}

// auxFailure returns the first failed or missing auxiliary result for a
// record. Transactional batches fail as a unit, but in non-atomic mode the
// main operation can land while a sibling fails, and reporting success then
// would leave the record referencing side effects that never applied.
func auxFailure(byID map[string]intacct.BatchResult, ids []string, mainID string) error {
	for _, id := range ids {
		if id == mainID {
			continue
		}
		result, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: no result for operation %q", syncdomain.ErrCorrelationMismatch, id)
		}
		if !result.Success {
			return result.Err
		}
	}
	return nil
}

func (e *Engine) compensate(ctx context.Context, rec PlannedRecord) {
	if rec.OnFailure != nil {
		rec.OnFailure(ctx)
	}
}
