package resolve

import (
	"fmt"

	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
)

// Hints carries the foreign-key fragments a unified record may supply for
// one reference: a remote record number, an external number, and a display
// name. Any subset may be present.
type Hints struct {
	RecordNo string
	Number   string
	Name     string
}

// Empty reports whether no hint was supplied at all.
func (h Hints) Empty() bool {
	return h.RecordNo == "" && h.Number == "" && h.Name == ""
}

// Status tags the outcome of a resolution attempt.
type Status int

const (
	// Found means a cached entity matched one of the hints.
	Found Status = iota
	// NotFound means hints were supplied but nothing matched; the caller
	// omits the field from the payload.
	NotFound
	// Skipped means no hint was supplied for an optional reference.
	Skipped
)

// Resolution is the tagged result of Resolver.Resolve. Entity is only
// meaningful when Status is Found.
type Resolution struct {
	Status Status
	Entity RemoteEntity
}

// Options control how absence of a match is treated at a call site.
type Options struct {
	// Required fails the resolution when no hint is supplied at all.
	Required bool
	// RequiredIfHintsPresent fails the resolution when hints are supplied
	// but nothing matches.
	RequiredIfHintsPresent bool
}

// Resolver answers foreign-key lookups against a cache snapshot using
// scoped, tiered fallback: the target scope shadows top-level, and within
// each scope record number beats external number beats display name.
type Resolver struct {
	cache *Cache
}

// NewResolver wraps a loaded cache.
func NewResolver(cache *Cache) *Resolver {
	return &Resolver{cache: cache}
}

// Cache returns the underlying snapshot.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Resolve finds the cached entity matching hints for kind under scope.
// Candidate scopes are tried in priority order, the target scope before
// top-level, and matches are never merged across scopes, so a
// tenant-scoped entity shadows a shared top-level one.
func (r *Resolver) Resolve(kind Kind, hints Hints, scope syncdomain.ScopeID, opts Options) (Resolution, error) {
	if hints.Empty() {
		if opts.Required {
			return Resolution{Status: NotFound}, fmt.Errorf("%w: %s reference has no id, number or name", syncdomain.ErrMissingReference, kind)
		}
		return Resolution{Status: Skipped}, nil
	}

	for _, candidate := range candidateScopes(scope) {
		if entity, ok := r.matchInScope(kind, hints, candidate); ok {
			return Resolution{Status: Found, Entity: entity}, nil
		}
	}

	if opts.RequiredIfHintsPresent {
		return Resolution{Status: NotFound}, fmt.Errorf(
			"%w: %s matching recordNo=%q number=%q name=%q in scope %q",
			syncdomain.ErrReferenceNotFound, kind, hints.RecordNo, hints.Number, hints.Name, scope)
	}
	return Resolution{Status: NotFound}, nil
}

// ResolveSubsidiary maps a record's subsidiary hints to the scope every
// other resolution for that record executes under. No hints means the
// top-level scope; supplied hints that match nothing are an error, because
// silently writing a scoped record to the wrong entity is worse than
// failing it.
func (r *Resolver) ResolveSubsidiary(hints Hints) (syncdomain.ScopeID, error) {
	if hints.Empty() {
		return syncdomain.TopLevel, nil
	}
	res, err := r.Resolve(KindSubsidiary, hints, syncdomain.TopLevel, Options{RequiredIfHintsPresent: true})
	if err != nil {
		return syncdomain.TopLevel, err
	}
	return syncdomain.ScopeOrTopLevel(res.Entity.EntityID), nil
}

func (r *Resolver) matchInScope(kind Kind, hints Hints, scope syncdomain.ScopeID) (RemoteEntity, bool) {
	entities := r.cache.Collection(kind)

	// Fixed precedence: record number, external number, display name.
	if hints.RecordNo != "" {
		for _, e := range entities {
			if e.Scope == scope && e.RecordNo == hints.RecordNo {
				return e, true
			}
		}
	}
	if hints.Number != "" {
		for _, e := range entities {
			if e.Scope == scope && e.EntityID == hints.Number {
				return e, true
			}
		}
	}
	if hints.Name != "" {
		for _, e := range entities {
			if e.Scope == scope && e.Name == hints.Name {
				return e, true
			}
		}
	}
	return RemoteEntity{}, false
}

func candidateScopes(scope syncdomain.ScopeID) []syncdomain.ScopeID {
	if scope.IsTopLevel() {
		return []syncdomain.ScopeID{syncdomain.TopLevel}
	}
	return []syncdomain.ScopeID{scope, syncdomain.TopLevel}
}
