package mappers

import (
	"time"

	"github.com/connectorhq/intacct-sync/internal/domain/resolve"
	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
	"github.com/connectorhq/intacct-sync/internal/domain/unified"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct"
)

// VendorCreditMapper maps a unified VendorCredit onto the legacy
// apadjustment functions, which use lowercase ordered fields and address
// existing records through a key attribute instead of RECORDNO.
type VendorCreditMapper struct {
	Resolver *resolve.Resolver
	Now      func() time.Time
}

// Map builds the create_apadjustment/update_apadjustment function for one
// vendor credit.
func (m VendorCreditMapper) Map(vc unified.VendorCredit) (*MappedRecord, error) {
	scope, err := m.Resolver.ResolveSubsidiary(resolve.Hints{Number: vc.SubsidiaryID})
	if err != nil {
		return nil, err
	}

	existing, err := findExisting(m.Resolver.Cache(), resolve.KindVendorCredit, []pkTier{
		{value: vc.ID, field: byRecordNo, requiredIfPresent: true},
		{value: vc.VendorCreditNumber, field: byEntityID},
	})
	if err != nil {
		return nil, err
	}
	isUpdate := existing != nil

	vendorID, err := subRecordID(m.Resolver, resolve.KindVendor,
		resolve.Hints{RecordNo: vc.VendorID, Number: vc.VendorNumber, Name: vc.VendorName},
		scope, resolve.Options{Required: true, RequiredIfHintsPresent: true})
	if err != nil {
		return nil, err
	}

	functionName := "create_apadjustment"
	if isUpdate {
		functionName = "update_apadjustment"
	}

	adj := intacct.El(functionName)
	if isUpdate {
		adj.Attr("key", existing.RecordNo)
	}
	adj.AppendText("vendorid", vendorID)
	m.appendDateCreated(adj, vc)
	adj.AppendText("adjustmentno", vc.VendorCreditNumber)
	if vc.IsDraft {
		adj.AppendText("action", "Draft")
	}
	adj.AppendText("description", vc.Description)
	// basecurr is rejected on update, and header custom fields cannot be
	// changed once the adjustment exists.
	if !isUpdate {
		adj.AppendText("basecurr", vc.Currency)
	}
	adj.AppendText("currency", vc.Currency)
	if vc.ExchangeRate != nil {
		adj.AppendText("exchrate", vc.ExchangeRate.String())
	} else {
		adj.AppendText("exchratetype", "Intacct Daily Rate")
	}

	if err := m.appendLines(adj, vc, scope, existing); err != nil {
		return nil, err
	}

	mapped := &MappedRecord{
		FunctionName: functionName,
		Kind:         syncdomain.OperationCreate,
		RecordType:   "apadjustment",
		Scope:        scope,
		ExternalID:   vc.ExternalID,
		RecordID:     vc.VendorCreditNumber,
		Body:         adj,
	}
	if isUpdate {
		mapped.Kind = syncdomain.OperationUpdate
		mapped.RecordNo = existing.RecordNo
	}
	return mapped, nil
}

// appendDateCreated emits the year/month/day triple the legacy function
// expects, defaulting to today when no issue date is supplied.
func (m VendorCreditMapper) appendDateCreated(adj *intacct.Element, vc unified.VendorCredit) {
	year, month, day, ok := splitDate(vc.IssueDate)
	if !ok {
		now := m.Now
		if now == nil {
			now = time.Now
		}
		t := now().UTC()
		year, month, day = t.Format("2006"), t.Format("01"), t.Format("02")
	}
	adj.Append(intacct.El("datecreated",
		intacct.Text("year", year),
		intacct.Text("month", month),
		intacct.Text("day", day),
	))
}

func (m VendorCreditMapper) appendLines(adj *intacct.Element, vc unified.VendorCredit, scope syncdomain.ScopeID, existing *resolve.RemoteEntity) error {
	containerName := "apadjustmentitems"
	var existingLines []resolve.RemoteEntity
	if existing != nil {
		containerName = "updateapadjustmentitems"
		for _, l := range m.Resolver.Cache().Collection(resolve.KindVendorCreditLine) {
			if l.EntityID == existing.RecordNo {
				existingLines = append(existingLines, l)
			}
		}
	}

	container := intacct.El(containerName)
	for _, line := range vc.LineItems {
		if err := m.appendLine(container, line, scope, existingLines, true); err != nil {
			return err
		}
	}
	for _, line := range vc.Expenses {
		if err := m.appendLine(container, line, scope, existingLines, false); err != nil {
			return err
		}
	}
	if len(container.Children) > 0 {
		adj.Append(container)
	}
	return nil
}

func (m VendorCreditMapper) appendLine(container *intacct.Element, line unified.BillLine, scope syncdomain.ScopeID, existingLines []resolve.RemoteEntity, itemLine bool) error {
	r := m.Resolver

	accountNo, err := subRecordID(r, resolve.KindAccount,
		resolve.Hints{RecordNo: line.AccountID, Number: line.AccountNumber, Name: line.AccountName},
		scope, resolve.Options{Required: true, RequiredIfHintsPresent: true})
	if err != nil {
		return err
	}
	classID, err := subRecordID(r, resolve.KindClass,
		resolve.Hints{RecordNo: line.ClassID, Number: line.ClassNumber, Name: line.ClassName},
		scope, resolve.Options{})
	if err != nil {
		return err
	}
	departmentID, err := subRecordID(r, resolve.KindDepartment,
		resolve.Hints{RecordNo: line.DepartmentID, Number: line.DepartmentNumber, Name: line.DepartmentName},
		scope, resolve.Options{})
	if err != nil {
		return err
	}
	locationID, err := subRecordID(r, resolve.KindLocation,
		resolve.Hints{RecordNo: line.LocationID, Number: line.LocationNumber, Name: line.LocationName},
		scope, resolve.Options{})
	if err != nil {
		return err
	}

	var itemID string
	if itemLine {
		itemID, err = subRecordID(r, resolve.KindItem,
			resolve.Hints{RecordNo: line.ItemID, Number: line.ItemNumber, Name: line.ItemName},
			scope, resolve.Options{Required: true, RequiredIfHintsPresent: true})
		if err != nil {
			return err
		}
	}

	el := intacct.El("lineitem")
	el.AppendText("glaccountno", accountNo)
	el.AppendText("amount", line.Amount.String())
	el.AppendText("memo", line.Description)
	el.AppendText("locationid", locationID)
	el.AppendText("departmentid", departmentID)
	appendCustomFields(el, line.CustomFields)
	el.AppendText("itemid", itemID)
	el.AppendText("classid", classID)

	// A line matching one already on the adjustment becomes an in-place
	// update addressed by its line number.
	if lineNo := matchExistingLine(existingLines, line.Description, accountNo, itemID); lineNo != "" {
		el.Name = "updatelineitem"
		el.Attr("line_num", lineNo)
	}
	container.Append(el)
	return nil
}

// matchExistingLine pairs an incoming line with a remote one by description
// and account, plus item when the line carries one.
func matchExistingLine(existingLines []resolve.RemoteEntity, memo, accountNo, itemID string) string {
	if memo == "" || accountNo == "" {
		return ""
	}
	for _, l := range existingLines {
		if l.Field("ENTRYDESCRIPTION") != memo || l.Field("ACCOUNTNO") != accountNo {
			continue
		}
		if itemID != "" && l.Field("ITEMID") != itemID {
			continue
		}
		return l.Field("LINE_NO")
	}
	return ""
}
