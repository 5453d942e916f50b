package mappers

import (
	"github.com/connectorhq/intacct-sync/internal/domain/resolve"
	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
	"github.com/connectorhq/intacct-sync/internal/domain/unified"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct"
)

// VendorMapper maps a unified Vendor onto the VENDOR object.
type VendorMapper struct {
	Resolver *resolve.Resolver
}

// Map builds the create/update function for one vendor.
func (m VendorMapper) Map(v unified.Vendor) (*MappedRecord, error) {
	scope, err := m.Resolver.ResolveSubsidiary(resolve.Hints{Number: v.SubsidiaryID})
	if err != nil {
		return nil, err
	}

	existing, err := findExisting(m.Resolver.Cache(), resolve.KindVendor, []pkTier{
		{value: v.ID, field: byRecordNo, requiredIfPresent: true},
		{value: v.VendorNumber, field: byEntityID},
		{value: v.VendorName, field: byName},
	})
	if err != nil {
		return nil, err
	}

	vendor := intacct.El("VENDOR")
	if existing != nil {
		vendor.AppendText("RECORDNO", existing.RecordNo)
	}
	vendor.AppendText("VENDORID", v.VendorNumber)
	vendor.AppendText("NAME", v.VendorName)
	if contact := mapVendorContact(v); contact != nil {
		vendor.Append(intacct.El("DISPLAYCONTACT").Append(contact.Children...))
	}
	if v.IsActive != nil {
		status := "inactive"
		if *v.IsActive {
			status = "active"
		}
		vendor.AppendText("STATUS", status)
	}
	vendor.AppendText("CURRENCY", v.Currency)

	mapped := &MappedRecord{
		FunctionName: "create",
		Kind:         syncdomain.OperationCreate,
		RecordType:   "VENDOR",
		Scope:        scope,
		ExternalID:   v.ExternalID,
		RecordID:     v.VendorNumber,
	}
	if existing != nil {
		mapped.FunctionName = "update"
		mapped.Kind = syncdomain.OperationUpdate
		mapped.RecordNo = existing.RecordNo
	}
	mapped.Body = intacct.El(mapped.FunctionName, vendor)
	return mapped, nil
}

func mapVendorContact(v unified.Vendor) *intacct.Element {
	contact := intacct.El("contact")
	contact.AppendText("PRINTAS", v.CheckName)
	contact.AppendText("FIRSTNAME", v.FirstName)
	contact.AppendText("LASTNAME", v.LastName)
	contact.AppendText("EMAIL1", v.Email)
	contact.AppendText("URL1", v.Website)

	for _, phone := range v.PhoneNumbers {
		switch phone.Type {
		case "primary":
			contact.AppendText("PHONE1", phone.PhoneNumber)
		case "mobile":
			contact.AppendText("CELLPHONE", phone.PhoneNumber)
		case "fax":
			contact.AppendText("FAX", phone.PhoneNumber)
		}
	}

	for _, addr := range v.Addresses {
		if addr.AddressType != "billing" {
			continue
		}
		mail := intacct.El("MAILADDRESS")
		mail.AppendText("ADDRESS1", addr.Line1)
		mail.AppendText("ADDRESS2", addr.Line2)
		mail.AppendText("ADDRESS3", addr.Line3)
		mail.AppendText("CITY", addr.City)
		mail.AppendText("STATE", addr.State)
		mail.AppendText("ZIP", addr.PostalCode)
		mail.AppendText("COUNTRY", addr.Country)
		if len(mail.Children) > 0 {
			contact.Append(mail)
		}
		break
	}

	if len(contact.Children) == 0 {
		return nil
	}
	return contact
}
