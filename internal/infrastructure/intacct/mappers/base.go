// Package mappers translates unified-schema records into Intacct function
// payloads, resolving every foreign-key hint against the per-run reference
// snapshot before anything is sent.
package mappers

import (
	"fmt"
	"strings"

	"github.com/connectorhq/intacct-sync/internal/domain/resolve"
	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
	"github.com/connectorhq/intacct-sync/internal/domain/unified"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct"
)

// MappedRecord is one record translated to a gateway function, plus the
// metadata the orchestrator needs: the scope to execute under, the identity
// to report outcomes against, and whether this is a create or an update.
type MappedRecord struct {
	FunctionName string
	Kind         syncdomain.OperationKind
	RecordType   string
	Scope        syncdomain.ScopeID
	ExternalID   string
	RecordID     string
	RecordNo     string
	Body         *intacct.Element
}

// pkField selects which identifying field a primary-key tier matches on.
type pkField int

const (
	byRecordNo pkField = iota
	byEntityID
	byName
)

// pkTier is one tier of the existing-record search: a hint value, the
// cached field it matches, and whether a supplied-but-unmatched hint is an
// error. A supplied internal id that matches nothing always is an error,
// since writing a new record when the caller named an existing one would
// fork the data.
type pkTier struct {
	value             string
	field             pkField
	requiredIfPresent bool
}

// findExisting walks the tiers in order and returns the first cached record
// matching a supplied hint. Existing-record detection is scope-insensitive;
// the update targets whatever entity the remote side already holds.
func findExisting(cache *resolve.Cache, kind resolve.Kind, tiers []pkTier) (*resolve.RemoteEntity, error) {
	for _, tier := range tiers {
		if tier.value == "" {
			continue
		}
		for _, e := range cache.Collection(kind) {
			var match bool
			switch tier.field {
			case byRecordNo:
				match = e.RecordNo == tier.value
			case byEntityID:
				match = e.EntityID == tier.value
			case byName:
				match = e.Name == tier.value
			}
			if match {
				entity := e
				return &entity, nil
			}
		}
		if tier.requiredIfPresent {
			return nil, fmt.Errorf("%w: %s %q", syncdomain.ErrReferenceNotFound, kind, tier.value)
		}
	}
	return nil, nil
}

// subRecordID resolves one foreign-key trio to its remote identifier.
// Returns empty when the reference is optional and absent or unmatched.
func subRecordID(r *resolve.Resolver, kind resolve.Kind, hints resolve.Hints, scope syncdomain.ScopeID, opts resolve.Options) (string, error) {
	res, err := r.Resolve(kind, hints, scope, opts)
	if err != nil {
		return "", err
	}
	if res.Status == resolve.Found {
		return res.Entity.EntityID, nil
	}
	return "", nil
}

// isoDate trims a unified timestamp down to its date part.
func isoDate(value string) string {
	if i := strings.IndexByte(value, 'T'); i > 0 {
		return value[:i]
	}
	return value
}

// splitDate breaks an ISO date into the year/month/day triple the legacy
// apadjustment function expects.
func splitDate(value string) (year, month, day string, ok bool) {
	parts := strings.SplitN(isoDate(value), "-", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// appendCustomFields passes opaque name/value pairs straight through.
func appendCustomFields(parent *intacct.Element, fields []unified.CustomField) {
	for _, f := range fields {
		if f.Name != "" {
			parent.AppendText(f.Name, f.Value)
		}
	}
}
