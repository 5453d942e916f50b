package sync

// ScopeID identifies the subsidiary/location context a session and its
// operations execute under. TopLevel is a real scope, not the absence of one.
type ScopeID string

// TopLevel is the scope used when a record carries no subsidiary.
const TopLevel ScopeID = "TOP_LEVEL"

// ScopeOrTopLevel normalizes a raw scope identifier, mapping the empty
// string to TopLevel.
func ScopeOrTopLevel(raw string) ScopeID {
	if raw == "" {
		return TopLevel
	}
	return ScopeID(raw)
}

// IsTopLevel reports whether the scope is the top-level sentinel.
func (s ScopeID) IsTopLevel() bool {
	return s == TopLevel || s == ""
}

// OperationKind classifies an outbound gateway operation.
type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationUpdate OperationKind = "update"
	OperationDelete OperationKind = "delete"
	OperationQuery  OperationKind = "query"
)

// RecordOutcome is the single result object produced for every input record
// of a batch. Exactly one outcome exists per record, even when the remote
// call fails entirely.
type RecordOutcome struct {
	ID         string `json:"id,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Updated    bool   `json:"is_updated,omitempty"`
}

// FailedOutcome builds a failure outcome carrying the record identity and
// the error that stopped it.
func FailedOutcome(externalID string, err error) RecordOutcome {
	out := RecordOutcome{ExternalID: externalID, Success: false}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}
