package intacct

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
)

// OperationEnvelope is one outbound request unit: a payload tagged with a
// correlation id unique within its batch. It is consumed exactly once by
// the correlator and discarded after its result is recorded.
type OperationEnvelope struct {
	CorrelationID string
	Scope         syncdomain.ScopeID
	Kind          syncdomain.OperationKind
	Payload       *Element
}

// Batch groups the envelopes submitted as one gateway request. Atomic
// batches are applied all-or-nothing by the gateway.
type Batch struct {
	Scope     syncdomain.ScopeID
	Atomic    bool
	Envelopes []OperationEnvelope
}

// BatchResult is the per-operation outcome demultiplexed from a batch
// response by correlation id.
type BatchResult struct {
	CorrelationID string
	Success       bool
	RecordNo      string
	Updated       bool
	Err           error
}

// Correlator packs envelopes into one multi-function request and maps the
// heterogeneous response list back to the originating envelopes strictly by
// correlation id.
type Correlator struct {
	transport *Transport
	creds     Credentials
	log       *zap.Logger
	now       func() time.Time
}

// NewCorrelator creates a correlator sharing the given transport.
func NewCorrelator(transport *Transport, creds Credentials, log *zap.Logger) *Correlator {
	return &Correlator{
		transport: transport,
		creds:     creds,
		log:       log.Named("correlator"),
		now:       time.Now,
	}
}

// Submit sends the batch under the given session and returns one result per
// envelope. An envelope with no matching response entry becomes a failed
// result; a response entry with an unknown correlation id is logged and
// returned as an extra failed result, never silently dropped.
func (c *Correlator) Submit(ctx context.Context, session *Session, batch Batch) ([]BatchResult, error) {
	if len(batch.Envelopes) == 0 {
		return nil, nil
	}

	functions := make([]Function, 0, len(batch.Envelopes))
	seen := make(map[string]bool, len(batch.Envelopes))
	for _, env := range batch.Envelopes {
		if seen[env.CorrelationID] {
			return nil, fmt.Errorf("%w: duplicate correlation id %q", syncdomain.ErrCorrelationMismatch, env.CorrelationID)
		}
		seen[env.CorrelationID] = true
		functions = append(functions, Function{ControlID: env.CorrelationID, Body: env.Payload})
	}

	envelope := sessionEnvelope(c.creds, session.Token, functions, batch.Atomic, c.now())
	body, err := envelope.Encode()
	if err != nil {
		return nil, fmt.Errorf("intacct: encoding batch request: %w", err)
	}

	c.log.Debug("submitting batch",
		zap.String("scope", string(batch.Scope)),
		zap.Int("operations", len(batch.Envelopes)),
		zap.Bool("atomic", batch.Atomic))

	raw, err := c.transport.Send(ctx, body)
	if err != nil {
		return nil, err
	}
	resp, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}
	if resp.Operation == nil {
		return nil, fmt.Errorf("%w: %s", syncdomain.ErrMalformedResponse, resp.ErrorMessage.Message())
	}
	if resp.Operation.Authentication.Status != "success" {
		return nil, fmt.Errorf("%w: session rejected", syncdomain.ErrAuthenticationFailed)
	}

	return c.demux(batch, resp.Operation.Results), nil
}

func (c *Correlator) demux(batch Batch, results []Result) []BatchResult {
	byID := make(map[string]Result, len(results))
	matched := make(map[string]bool, len(results))
	for _, r := range results {
		byID[r.ControlID] = r
	}

	out := make([]BatchResult, 0, len(batch.Envelopes))
	for _, env := range batch.Envelopes {
		result, ok := byID[env.CorrelationID]
		if !ok {
			c.log.Error("batch response missing operation result",
				zap.String("correlation_id", env.CorrelationID))
			out = append(out, BatchResult{
				CorrelationID: env.CorrelationID,
				Err:           fmt.Errorf("%w: no result for operation %q", syncdomain.ErrCorrelationMismatch, env.CorrelationID),
			})
			continue
		}
		matched[env.CorrelationID] = true

		if err := result.Err(); err != nil {
			out = append(out, BatchResult{CorrelationID: env.CorrelationID, Err: err})
			continue
		}
		out = append(out, BatchResult{
			CorrelationID: env.CorrelationID,
			Success:       true,
			RecordNo:      result.RecordNo(),
			Updated:       env.Kind == syncdomain.OperationUpdate,
		})
	}

	for _, r := range results {
		if matched[r.ControlID] {
			continue
		}
		c.log.Error("batch response references unknown correlation id",
			zap.String("correlation_id", r.ControlID))
		out = append(out, BatchResult{
			CorrelationID: r.ControlID,
			Err:           fmt.Errorf("%w: unknown correlation id %q in response", syncdomain.ErrCorrelationMismatch, r.ControlID),
		})
	}
	return out
}
