package mappers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/connectorhq/intacct-sync/internal/domain/resolve"
	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct"
)

// testResolver builds a resolver over a snapshot with one entity of every
// kind the mappers touch.
func testResolver() *resolve.Resolver {
	cache := resolve.NewCache()
	cache.Put(resolve.KindSubsidiary, []resolve.RemoteEntity{
		{RecordNo: "10", EntityID: "SUB-A", Name: "Subsidiary A", Scope: syncdomain.TopLevel},
	})
	cache.Put(resolve.KindVendor, []resolve.RemoteEntity{
		{RecordNo: "100", EntityID: "V-100", Name: "Acme Supplies", Scope: syncdomain.TopLevel},
		{RecordNo: "101", EntityID: "V-101", Name: "Line Vendor", Scope: syncdomain.TopLevel},
	})
	cache.Put(resolve.KindAccount, []resolve.RemoteEntity{
		{RecordNo: "200", EntityID: "6000", Name: "Travel", Scope: syncdomain.TopLevel},
	})
	cache.Put(resolve.KindItem, []resolve.RemoteEntity{
		{RecordNo: "300", EntityID: "IT-1", Name: "Widget", Scope: syncdomain.TopLevel},
	})
	cache.Put(resolve.KindClass, []resolve.RemoteEntity{
		{RecordNo: "400", EntityID: "CL-1", Name: "Retail", Scope: syncdomain.TopLevel},
	})
	cache.Put(resolve.KindDepartment, []resolve.RemoteEntity{
		{RecordNo: "410", EntityID: "DEP-1", Name: "Sales", Scope: syncdomain.TopLevel},
	})
	cache.Put(resolve.KindBill, []resolve.RemoteEntity{
		{RecordNo: "500", EntityID: "BILL-9", Scope: syncdomain.TopLevel,
			Raw: map[string]string{"VENDORID": "V-100", "CURRENCY": "USD"}},
	})
	cache.Put(resolve.KindCheckingAccount, []resolve.RemoteEntity{
		{RecordNo: "700", EntityID: "CHK-1", Name: "Main Checking", Scope: syncdomain.TopLevel},
	})
	cache.Put(resolve.KindCreditCard, []resolve.RemoteEntity{
		{RecordNo: "710", EntityID: "CARD-1", Name: "Corporate Card", Scope: syncdomain.TopLevel},
	})
	return resolve.NewResolver(cache)
}

// encode renders a mapped body for order-sensitive assertions.
func encode(t *testing.T, el *intacct.Element) string {
	t.Helper()
	raw, err := el.Encode()
	require.NoError(t, err)
	return string(raw)
}

// fieldValue walks function -> object -> field and returns the leaf text.
func fieldValue(t *testing.T, body *intacct.Element, object, field string) string {
	t.Helper()
	obj := body.Find(object)
	require.NotNil(t, obj, "object %s missing", object)
	leaf := obj.Find(field)
	if leaf == nil {
		return ""
	}
	return leaf.Value
}

func TestFindExistingTiers(t *testing.T) {
	cache := testResolver().Cache()

	// earlier tier wins even when a later one also matches
	entity, err := findExisting(cache, resolve.KindVendor, []pkTier{
		{value: "101", field: byRecordNo, requiredIfPresent: true},
		{value: "V-100", field: byEntityID},
	})
	require.NoError(t, err)
	require.NotNil(t, entity)
	require.Equal(t, "101", entity.RecordNo)

	// a supplied internal id that matches nothing is an error
	_, err = findExisting(cache, resolve.KindVendor, []pkTier{
		{value: "999", field: byRecordNo, requiredIfPresent: true},
		{value: "V-100", field: byEntityID},
	})
	require.ErrorIs(t, err, syncdomain.ErrReferenceNotFound)

	// optional tiers fall through without error
	entity, err = findExisting(cache, resolve.KindVendor, []pkTier{
		{value: "V-999", field: byEntityID},
		{value: "nobody", field: byName},
	})
	require.NoError(t, err)
	require.Nil(t, entity)
}

func TestSplitDate(t *testing.T) {
	year, month, day, ok := splitDate("2026-08-30T10:00:00Z")
	require.True(t, ok)
	require.Equal(t, "2026", year)
	require.Equal(t, "08", month)
	require.Equal(t, "30", day)

	_, _, _, ok = splitDate("")
	require.False(t, ok)
}
