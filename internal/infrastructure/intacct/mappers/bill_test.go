package mappers

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
	"github.com/connectorhq/intacct-sync/internal/domain/unified"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
}

func TestBillMapperCreate(t *testing.T) {
	m := BillMapper{Resolver: testResolver(), Now: fixedNow}

	mapped, err := m.Map(unified.Bill{
		ExternalID: "ext-b1",
		BillNumber: "BILL-NEW",
		Currency:   "USD",
		IssueDate:  "2026-08-01",
		DueDate:    "2026-09-01T00:00:00Z",
		VendorName: "Acme Supplies",
		LineItems: []unified.BillLine{{
			Description:   "widgets",
			Amount:        decimal.RequireFromString("99.50"),
			AccountNumber: "6000",
			ItemNumber:    "IT-1",
		}},
		Expenses: []unified.BillLine{{
			Description:   "shipping",
			Amount:        decimal.RequireFromString("10"),
			AccountNumber: "6000",
			VendorNumber:  "V-101",
		}},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "create", mapped.FunctionName)
	assert.Equal(t, "BILL-NEW", fieldValue(t, mapped.Body, "APBILL", "RECORDID"))
	assert.Equal(t, "V-100", fieldValue(t, mapped.Body, "APBILL", "VENDORID"))
	assert.Equal(t, "USD", fieldValue(t, mapped.Body, "APBILL", "BASECURR"))
	assert.Equal(t, "2026-08-01", fieldValue(t, mapped.Body, "APBILL", "WHENPOSTED"))
	assert.Equal(t, "2026-09-01", fieldValue(t, mapped.Body, "APBILL", "WHENDUE"))
	// posted bills default their creation date to today
	assert.Equal(t, "2026-08-30", fieldValue(t, mapped.Body, "APBILL", "WHENCREATED"))

	items := mapped.Body.Find("APBILL").Find("APBILLITEMS")
	require.NotNil(t, items)
	require.Len(t, items.Children, 2)

	item := items.Children[0]
	assert.Equal(t, "6000", item.Find("ACCOUNTNO").Value)
	assert.Equal(t, "IT-1", item.Find("ITEMID").Value)
	assert.Equal(t, "99.5", item.Find("TRX_AMOUNT").Value)
	// line without its own vendor inherits the header vendor
	assert.Equal(t, "V-100", item.Find("VENDORID").Value)

	expense := items.Children[1]
	assert.Nil(t, expense.Find("ITEMID"))
	assert.Equal(t, "V-101", expense.Find("VENDORID").Value)
}

func TestBillMapperUpdate(t *testing.T) {
	m := BillMapper{Resolver: testResolver(), Now: fixedNow}

	mapped, err := m.Map(unified.Bill{
		BillNumber: "BILL-9",
		VendorName: "Acme Supplies",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "update", mapped.FunctionName)
	assert.Equal(t, "500", mapped.RecordNo)
	assert.Equal(t, "500", fieldValue(t, mapped.Body, "APBILL", "RECORDNO"))
	assert.True(t, mapped.Kind == syncdomain.OperationUpdate)
}

func TestBillMapperDraftAndSupDoc(t *testing.T) {
	m := BillMapper{Resolver: testResolver(), Now: fixedNow}

	mapped, err := m.Map(unified.Bill{
		BillNumber: "BILL-NEW",
		IsDraft:    true,
		VendorName: "Acme Supplies",
	}, "APBILLBILLNEW")
	require.NoError(t, err)
	assert.Equal(t, "Draft", fieldValue(t, mapped.Body, "APBILL", "ACTION"))
	assert.Equal(t, "APBILLBILLNEW", fieldValue(t, mapped.Body, "APBILL", "SUPDOCID"))
	// drafts do not get a synthesized creation date
	assert.Empty(t, fieldValue(t, mapped.Body, "APBILL", "WHENCREATED"))
}

func TestBillMapperLineErrors(t *testing.T) {
	m := BillMapper{Resolver: testResolver(), Now: fixedNow}

	// account is required on every line
	_, err := m.Map(unified.Bill{
		BillNumber: "BILL-NEW",
		VendorName: "Acme Supplies",
		Expenses:   []unified.BillLine{{Amount: decimal.RequireFromString("5")}},
	}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, syncdomain.ErrMissingReference)

	// item lines require a resolvable item
	_, err = m.Map(unified.Bill{
		BillNumber: "BILL-NEW",
		VendorName: "Acme Supplies",
		LineItems: []unified.BillLine{{
			Amount:        decimal.RequireFromString("5"),
			AccountNumber: "6000",
			ItemNumber:    "IT-404",
		}},
	}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, syncdomain.ErrReferenceNotFound)
}

func TestBillMapperMissingVendor(t *testing.T) {
	m := BillMapper{Resolver: testResolver(), Now: fixedNow}
	_, err := m.Map(unified.Bill{BillNumber: "BILL-NEW"}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, syncdomain.ErrMissingReference)
}
