package mappers

import (
	"time"

	"github.com/connectorhq/intacct-sync/internal/domain/resolve"
	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
	"github.com/connectorhq/intacct-sync/internal/domain/unified"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct"
)

// BillMapper maps a unified Bill onto the APBILL object, resolving the
// header vendor and every line-level sub-record reference.
type BillMapper struct {
	Resolver *resolve.Resolver
	Now      func() time.Time
}

// Map builds the create/update function for one bill. supDocID, when not
// empty, links the bill to an attachment bundle uploaded in the same batch.
func (m BillMapper) Map(b unified.Bill, supDocID string) (*MappedRecord, error) {
	scope, err := m.Resolver.ResolveSubsidiary(resolve.Hints{Number: b.SubsidiaryID})
	if err != nil {
		return nil, err
	}

	existing, err := findExisting(m.Resolver.Cache(), resolve.KindBill, []pkTier{
		{value: b.ID, field: byRecordNo, requiredIfPresent: true},
		{value: b.BillNumber, field: byEntityID},
	})
	if err != nil {
		return nil, err
	}

	vendorID, err := subRecordID(m.Resolver, resolve.KindVendor,
		resolve.Hints{RecordNo: b.VendorID, Number: b.VendorNumber, Name: b.VendorName},
		scope, resolve.Options{Required: true, RequiredIfHintsPresent: true})
	if err != nil {
		return nil, err
	}

	bill := intacct.El("APBILL")
	if existing != nil {
		bill.AppendText("RECORDNO", existing.RecordNo)
	}
	if b.IsDraft {
		bill.AppendText("ACTION", "Draft")
	}
	bill.AppendText("VENDORID", vendorID)
	appendCustomFields(bill, b.CustomFields)

	if err := m.appendLines(bill, b, scope, vendorID); err != nil {
		return nil, err
	}
	if supDocID != "" {
		bill.AppendText("SUPDOCID", supDocID)
	}

	bill.AppendText("RECORDID", b.BillNumber)
	bill.AppendText("DESCRIPTION", b.Description)
	bill.AppendText("CURRENCY", b.Currency)
	bill.AppendText("BASECURR", b.Currency)
	bill.AppendText("WHENCREATED", m.createdDate(b))
	bill.AppendText("WHENPOSTED", isoDate(b.IssueDate))
	bill.AppendText("WHENDUE", isoDate(b.DueDate))

	mapped := &MappedRecord{
		FunctionName: "create",
		Kind:         syncdomain.OperationCreate,
		RecordType:   "APBILL",
		Scope:        scope,
		ExternalID:   b.ExternalID,
		RecordID:     b.BillNumber,
	}
	if existing != nil {
		mapped.FunctionName = "update"
		mapped.Kind = syncdomain.OperationUpdate
		mapped.RecordNo = existing.RecordNo
	}
	mapped.Body = intacct.El(mapped.FunctionName, bill)
	return mapped, nil
}

// createdDate defaults the creation date to today for posted bills so the
// gateway does not reject them; drafts may stay undated.
func (m BillMapper) createdDate(b unified.Bill) string {
	if b.CreatedAt != nil {
		return b.CreatedAt.UTC().Format("2006-01-02")
	}
	if b.IsDraft {
		return ""
	}
	now := m.Now
	if now == nil {
		now = time.Now
	}
	return now().UTC().Format("2006-01-02")
}

func (m BillMapper) appendLines(bill *intacct.Element, b unified.Bill, scope syncdomain.ScopeID, headerVendorID string) error {
	if len(b.LineItems) == 0 && len(b.Expenses) == 0 {
		return nil
	}
	items := intacct.El("APBILLITEMS")
	for _, line := range b.LineItems {
		el, err := m.mapLine(line, scope, headerVendorID, true)
		if err != nil {
			return err
		}
		items.Append(el)
	}
	for _, line := range b.Expenses {
		el, err := m.mapLine(line, scope, headerVendorID, false)
		if err != nil {
			return err
		}
		items.Append(el)
	}
	bill.Append(items)
	return nil
}

// mapLine resolves one line's references. The account is always required;
// item lines additionally require a resolvable item. A line without its own
// vendor inherits the header vendor.
func (m BillMapper) mapLine(line unified.BillLine, scope syncdomain.ScopeID, headerVendorID string, itemLine bool) (*intacct.Element, error) {
	r := m.Resolver

	accountNo, err := subRecordID(r, resolve.KindAccount,
		resolve.Hints{RecordNo: line.AccountID, Number: line.AccountNumber, Name: line.AccountName},
		scope, resolve.Options{Required: true, RequiredIfHintsPresent: true})
	if err != nil {
		return nil, err
	}
	vendorID, err := subRecordID(r, resolve.KindVendor,
		resolve.Hints{RecordNo: line.VendorID, Number: line.VendorNumber, Name: line.VendorName},
		scope, resolve.Options{})
	if err != nil {
		return nil, err
	}
	if vendorID == "" {
		vendorID = headerVendorID
	}
	classID, err := subRecordID(r, resolve.KindClass,
		resolve.Hints{RecordNo: line.ClassID, Number: line.ClassNumber, Name: line.ClassName},
		scope, resolve.Options{})
	if err != nil {
		return nil, err
	}
	departmentID, err := subRecordID(r, resolve.KindDepartment,
		resolve.Hints{RecordNo: line.DepartmentID, Number: line.DepartmentNumber, Name: line.DepartmentName},
		scope, resolve.Options{})
	if err != nil {
		return nil, err
	}
	projectID, err := subRecordID(r, resolve.KindProject,
		resolve.Hints{RecordNo: line.ProjectID, Number: line.ProjectNumber, Name: line.ProjectName},
		scope, resolve.Options{})
	if err != nil {
		return nil, err
	}
	locationID, err := subRecordID(r, resolve.KindLocation,
		resolve.Hints{RecordNo: line.LocationID, Number: line.LocationNumber, Name: line.LocationName},
		scope, resolve.Options{})
	if err != nil {
		return nil, err
	}
	taskID, err := subRecordID(r, resolve.KindTask,
		resolve.Hints{Number: line.TaskNumber}, scope, resolve.Options{})
	if err != nil {
		return nil, err
	}
	employeeID, err := subRecordID(r, resolve.KindEmployee,
		resolve.Hints{Number: line.EmployeeID}, scope, resolve.Options{})
	if err != nil {
		return nil, err
	}

	el := intacct.El("APBILLITEM")
	el.AppendText("ACCOUNTNO", accountNo)
	el.AppendText("VENDORID", vendorID)
	el.AppendText("CLASSID", classID)
	el.AppendText("DEPARTMENTID", departmentID)
	el.AppendText("PROJECTID", projectID)
	el.AppendText("LOCATIONID", locationID)
	el.AppendText("TASKID", taskID)
	el.AppendText("EMPLOYEEID", employeeID)
	appendCustomFields(el, line.CustomFields)

	if itemLine {
		itemID, err := subRecordID(r, resolve.KindItem,
			resolve.Hints{RecordNo: line.ItemID, Number: line.ItemNumber, Name: line.ItemName},
			scope, resolve.Options{Required: true, RequiredIfHintsPresent: true})
		if err != nil {
			return nil, err
		}
		el.AppendText("ITEMID", itemID)
	}

	el.AppendText("ENTRYDESCRIPTION", line.Description)
	el.AppendText("TRX_AMOUNT", line.Amount.String())
	return el, nil
}
