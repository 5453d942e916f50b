// Package resolve holds the per-run reference snapshot and the tiered
// foreign-key resolver used to translate unified record hints into remote
// identifiers.
package resolve

import (
	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
)

// Kind names one cached reference collection.
type Kind string

const (
	KindAccount      Kind = "Accounts"
	KindVendor       Kind = "Vendors"
	KindLocation     Kind = "Locations"
	KindClass        Kind = "Classes"
	KindDepartment   Kind = "Departments"
	KindProject      Kind = "Projects"
	KindItem         Kind = "Items"
	KindEmployee     Kind = "Employees"
	KindTask         Kind = "Tasks"
	KindSubsidiary   Kind = "Subsidiaries"
	KindBill         Kind = "Bills"
	KindBillPayment  Kind = "BillPayments"
	KindVendorCredit Kind = "VendorCredits"
	// KindVendorCreditLine rows carry the parent adjustment's record number
	// in EntityID so line matching can be restricted to one credit.
	KindVendorCreditLine Kind = "VendorCreditLines"
	KindCheckingAccount  Kind = "CheckingAccounts"
	KindSavingsAccount   Kind = "SavingsAccounts"
	KindCreditCard       Kind = "CreditCards"
)

// RemoteEntity is one cached reference row. RecordNo is the remote internal
// record number, EntityID the external number (VENDORID, ACCOUNTNO, ...),
// Name the display name. Raw keeps every fetched field for callers that
// need more than the identifying trio.
type RemoteEntity struct {
	RecordNo string             `json:"recordNo"`
	EntityID string             `json:"entityId"`
	Name     string             `json:"name"`
	Scope    syncdomain.ScopeID `json:"scope"`
	Raw      map[string]string  `json:"raw,omitempty"`
}

// Field returns a raw field value fetched with the entity.
func (e RemoteEntity) Field(name string) string {
	return e.Raw[name]
}

// Cache is the in-memory reference snapshot for one run. It is populated
// once before record processing and read-only afterwards; no locking is
// needed because no concurrent writers exist.
type Cache struct {
	collections map[Kind][]RemoteEntity
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{collections: make(map[Kind][]RemoteEntity)}
}

// Put replaces the collection for kind. Only valid during the load phase.
func (c *Cache) Put(kind Kind, entities []RemoteEntity) {
	c.collections[kind] = entities
}

// Add appends entities to the collection for kind.
func (c *Cache) Add(kind Kind, entities ...RemoteEntity) {
	c.collections[kind] = append(c.collections[kind], entities...)
}

// Collection returns the cached entities for kind.
func (c *Cache) Collection(kind Kind) []RemoteEntity {
	return c.collections[kind]
}

// Collections exposes the full snapshot, used by the snapshot store.
func (c *Cache) Collections() map[Kind][]RemoteEntity {
	return c.collections
}

// Len reports the number of entities cached for kind.
func (c *Cache) Len(kind Kind) int {
	return len(c.collections[kind])
}
