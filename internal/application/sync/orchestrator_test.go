package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct"
)

type fakeSessions struct {
	logins      []syncdomain.ScopeID
	failScopes  map[syncdomain.ScopeID]error
	invalidated int
}

func (f *fakeSessions) EnsureSession(_ context.Context, scope syncdomain.ScopeID) (*intacct.Session, error) {
	if err := f.failScopes[scope]; err != nil {
		return nil, err
	}
	f.logins = append(f.logins, scope)
	return &intacct.Session{Token: "sess-" + string(scope), Scope: scope}, nil
}

func (f *fakeSessions) Invalidate() { f.invalidated++ }

type fakeSubmitter struct {
	batches []intacct.Batch
	respond func(batch intacct.Batch) ([]intacct.BatchResult, error)
}

func (f *fakeSubmitter) Submit(_ context.Context, _ *intacct.Session, batch intacct.Batch) ([]intacct.BatchResult, error) {
	f.batches = append(f.batches, batch)
	if f.respond != nil {
		return f.respond(batch)
	}
	results := make([]intacct.BatchResult, 0, len(batch.Envelopes))
	for i, env := range batch.Envelopes {
		results = append(results, intacct.BatchResult{
			CorrelationID: env.CorrelationID,
			Success:       true,
			RecordNo:      fmt.Sprintf("rec-%d", i+1),
			Updated:       env.Kind == syncdomain.OperationUpdate,
		})
	}
	return results, nil
}

func plainRecord(externalID string, scope syncdomain.ScopeID, kind syncdomain.OperationKind) PlannedRecord {
	return PlannedRecord{
		ExternalID: externalID,
		Scope:      scope,
		Envelopes: []intacct.OperationEnvelope{
			{Kind: kind, Payload: intacct.El("create", intacct.El("VENDOR"))},
		},
	}
}

func TestEngineOneOutcomePerRecord(t *testing.T) {
	sessions := &fakeSessions{}
	submitter := &fakeSubmitter{}
	engine := NewEngine(sessions, submitter, 0, zap.NewNop())

	records := []PlannedRecord{
		plainRecord("a", syncdomain.TopLevel, syncdomain.OperationCreate),
		{ExternalID: "b", MappingErr: errors.New("bad record")},
		plainRecord("c", syncdomain.TopLevel, syncdomain.OperationUpdate),
	}
	outcomes := engine.Run(context.Background(), records)
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes[0].Success)
	assert.Equal(t, "a", outcomes[0].ExternalID)
	assert.False(t, outcomes[0].Updated)

	assert.False(t, outcomes[1].Success)
	assert.Equal(t, "bad record", outcomes[1].Error)

	assert.True(t, outcomes[2].Success)
	assert.True(t, outcomes[2].Updated)

	// the mapping failure never reached the gateway
	require.Len(t, submitter.batches, 1)
	assert.Len(t, submitter.batches[0].Envelopes, 2)
}

func TestEnginePartitionsByScope(t *testing.T) {
	sessions := &fakeSessions{}
	submitter := &fakeSubmitter{}
	engine := NewEngine(sessions, submitter, 0, zap.NewNop())

	records := []PlannedRecord{
		plainRecord("a1", "SUB-A", syncdomain.OperationCreate),
		plainRecord("b1", "SUB-B", syncdomain.OperationCreate),
		plainRecord("a2", "SUB-A", syncdomain.OperationCreate),
	}
	outcomes := engine.Run(context.Background(), records)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.True(t, o.Success)
	}

	// one session and one batch per scope, scopes in first-seen order
	assert.Equal(t, []syncdomain.ScopeID{"SUB-A", "SUB-B"}, sessions.logins)
	require.Len(t, submitter.batches, 2)
	assert.Equal(t, syncdomain.ScopeID("SUB-A"), submitter.batches[0].Scope)
	assert.Len(t, submitter.batches[0].Envelopes, 2)
	assert.Equal(t, syncdomain.ScopeID("SUB-B"), submitter.batches[1].Scope)
	assert.Len(t, submitter.batches[1].Envelopes, 1)
}

func TestEngineScopeFailureIsIsolated(t *testing.T) {
	sessions := &fakeSessions{failScopes: map[syncdomain.ScopeID]error{
		"SUB-B": fmt.Errorf("%w: bad credentials", syncdomain.ErrAuthenticationFailed),
	}}
	submitter := &fakeSubmitter{}
	engine := NewEngine(sessions, submitter, 0, zap.NewNop())

	records := []PlannedRecord{
		plainRecord("a1", "SUB-A", syncdomain.OperationCreate),
		plainRecord("b1", "SUB-B", syncdomain.OperationCreate),
		plainRecord("b2", "SUB-B", syncdomain.OperationCreate),
	}
	outcomes := engine.Run(context.Background(), records)
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.Contains(t, outcomes[1].Error, "bad credentials")
	assert.False(t, outcomes[2].Success)
}

func TestEngineChunksByMaxBatch(t *testing.T) {
	sessions := &fakeSessions{}
	submitter := &fakeSubmitter{}
	engine := NewEngine(sessions, submitter, 2, zap.NewNop())

	var records []PlannedRecord
	for i := 0; i < 5; i++ {
		records = append(records, plainRecord(fmt.Sprintf("r%d", i), syncdomain.TopLevel, syncdomain.OperationCreate))
	}
	outcomes := engine.Run(context.Background(), records)
	require.Len(t, outcomes, 5)

	require.Len(t, submitter.batches, 3)
	assert.Len(t, submitter.batches[0].Envelopes, 2)
	assert.Len(t, submitter.batches[1].Envelopes, 2)
	assert.Len(t, submitter.batches[2].Envelopes, 1)
}

func TestEngineAtomicRecordSubmittedAlone(t *testing.T) {
	sessions := &fakeSessions{}
	submitter := &fakeSubmitter{}
	engine := NewEngine(sessions, submitter, 10, zap.NewNop())

	atomic := PlannedRecord{
		ExternalID: "bill-1",
		Scope:      syncdomain.TopLevel,
		Atomic:     true,
		Envelopes: []intacct.OperationEnvelope{
			{Kind: syncdomain.OperationCreate, Payload: intacct.El("create_supdocfolder")},
			{Kind: syncdomain.OperationCreate, Payload: intacct.El("create_supdoc")},
			{Kind: syncdomain.OperationCreate, Payload: intacct.El("create", intacct.El("APBILL"))},
		},
		MainIndex: 2,
	}
	records := []PlannedRecord{
		plainRecord("v1", syncdomain.TopLevel, syncdomain.OperationCreate),
		atomic,
		plainRecord("v2", syncdomain.TopLevel, syncdomain.OperationCreate),
	}
	outcomes := engine.Run(context.Background(), records)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.True(t, o.Success)
	}

	// v1 flushed before the atomic record, which rides its own transaction
	require.Len(t, submitter.batches, 3)
	assert.False(t, submitter.batches[0].Atomic)
	assert.True(t, submitter.batches[1].Atomic)
	assert.Len(t, submitter.batches[1].Envelopes, 3)
	assert.False(t, submitter.batches[2].Atomic)

	// the bill outcome comes from the main envelope, not the supdoc ones
	assert.Equal(t, "rec-3", outcomes[1].ID)
}

func TestEngineCompensatesFailedRecord(t *testing.T) {
	sessions := &fakeSessions{}
	submitter := &fakeSubmitter{
		respond: func(batch intacct.Batch) ([]intacct.BatchResult, error) {
			var results []intacct.BatchResult
			for _, env := range batch.Envelopes {
				results = append(results, intacct.BatchResult{
					CorrelationID: env.CorrelationID,
					Err:           fmt.Errorf("%w: rejected", syncdomain.ErrRemoteOperationFailed),
				})
			}
			return results, nil
		},
	}
	engine := NewEngine(sessions, submitter, 10, zap.NewNop())

	compensated := 0
	rec := plainRecord("bill-1", syncdomain.TopLevel, syncdomain.OperationCreate)
	rec.OnFailure = func(context.Context) { compensated++ }

	outcomes := engine.Run(context.Background(), []PlannedRecord{rec})
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Success)
	assert.Equal(t, 1, compensated)
}

func TestEngineAuxFailureFailsRecord(t *testing.T) {
	sessions := &fakeSessions{}
	submitter := &fakeSubmitter{
		respond: func(batch intacct.Batch) ([]intacct.BatchResult, error) {
			// the supdoc upload fails while the bill itself lands
			results := make([]intacct.BatchResult, 0, len(batch.Envelopes))
			for i, env := range batch.Envelopes {
				r := intacct.BatchResult{
					CorrelationID: env.CorrelationID,
					Success:       true,
					RecordNo:      fmt.Sprintf("rec-%d", i+1),
				}
				if i == 1 {
					r = intacct.BatchResult{
						CorrelationID: env.CorrelationID,
						Err:           fmt.Errorf("%w: supdoc rejected", syncdomain.ErrRemoteOperationFailed),
					}
				}
				results = append(results, r)
			}
			return results, nil
		},
	}
	engine := NewEngine(sessions, submitter, 10, zap.NewNop())

	compensated := 0
	rec := PlannedRecord{
		ExternalID: "bill-1",
		Scope:      syncdomain.TopLevel,
		Envelopes: []intacct.OperationEnvelope{
			{Kind: syncdomain.OperationCreate, Payload: intacct.El("create_supdocfolder")},
			{Kind: syncdomain.OperationCreate, Payload: intacct.El("create_supdoc")},
			{Kind: syncdomain.OperationCreate, Payload: intacct.El("create", intacct.El("APBILL"))},
		},
		MainIndex: 2,
		OnFailure: func(context.Context) { compensated++ },
	}
	outcomes := engine.Run(context.Background(), []PlannedRecord{rec})
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Success)
	assert.Contains(t, outcomes[0].Error, "supdoc rejected")
	assert.Equal(t, 1, compensated)
}

func TestEngineSubmitErrorFailsBatchOnly(t *testing.T) {
	sessions := &fakeSessions{}
	calls := 0
	submitter := &fakeSubmitter{
		respond: func(batch intacct.Batch) ([]intacct.BatchResult, error) {
			calls++
			if calls == 1 {
				return nil, fmt.Errorf("%w: HTTP 503", syncdomain.ErrRetriableTransport)
			}
			var results []intacct.BatchResult
			for _, env := range batch.Envelopes {
				results = append(results, intacct.BatchResult{CorrelationID: env.CorrelationID, Success: true, RecordNo: "1"})
			}
			return results, nil
		},
	}
	engine := NewEngine(sessions, submitter, 1, zap.NewNop())

	records := []PlannedRecord{
		plainRecord("a", syncdomain.TopLevel, syncdomain.OperationCreate),
		plainRecord("b", syncdomain.TopLevel, syncdomain.OperationCreate),
	}
	outcomes := engine.Run(context.Background(), records)
	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Success)
	assert.True(t, outcomes[1].Success)
}
