// Package unified holds the inbound record shapes of the unified accounting
// schema. Records arrive from the pipeline driver as JSON and are mapped to
// gateway payloads by the Intacct schema mappers.
package unified

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address is a postal address attached to a vendor or document.
type Address struct {
	AddressType string `json:"addressType,omitempty"`
	Line1       string `json:"line1,omitempty"`
	Line2       string `json:"line2,omitempty"`
	Line3       string `json:"line3,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	Country     string `json:"country,omitempty"`
}

// PhoneNumber carries one typed phone entry ("primary", "mobile", "fax").
type PhoneNumber struct {
	Type        string `json:"type,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// CustomField is an opaque name/value pair passed through to the gateway.
type CustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Attachment references a file to upload alongside its parent record,
// either by URL or by name within the configured input directory.
type Attachment struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Vendor is a unified supplier record.
type Vendor struct {
	ID           string        `json:"id,omitempty"`
	ExternalID   string        `json:"externalId,omitempty"`
	VendorNumber string        `json:"vendorNumber,omitempty"`
	VendorName   string        `json:"vendorName,omitempty"`
	Currency     string        `json:"currency,omitempty"`
	FirstName    string        `json:"firstName,omitempty"`
	LastName     string        `json:"lastName,omitempty"`
	Email        string        `json:"email,omitempty"`
	Website      string        `json:"website,omitempty"`
	CheckName    string        `json:"checkName,omitempty"`
	IsActive     *bool         `json:"isActive,omitempty"`
	PhoneNumbers []PhoneNumber `json:"phoneNumbers,omitempty"`
	Addresses    []Address     `json:"addresses,omitempty"`
	SubsidiaryID string        `json:"subsidiaryId,omitempty"`
}

// Item is a unified product/service record.
type Item struct {
	ID           string `json:"id,omitempty"`
	ExternalID   string `json:"externalId,omitempty"`
	ItemNumber   string `json:"itemNumber,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	Type         string `json:"type,omitempty"`
	IsActive     *bool  `json:"isActive,omitempty"`
	SubsidiaryID string `json:"subsidiaryId,omitempty"`
}

// BillLine is one line item or expense of a bill or vendor credit. The
// *ID fields are remote record numbers, the *Number fields external
// numbers, and the *Name fields display names; the resolver turns each
// trio into a single remote identifier.
type BillLine struct {
	Description      string          `json:"description,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	AccountID        string          `json:"accountId,omitempty"`
	AccountNumber    string          `json:"accountNumber,omitempty"`
	AccountName      string          `json:"accountName,omitempty"`
	VendorID         string          `json:"vendorId,omitempty"`
	VendorNumber     string          `json:"vendorNumber,omitempty"`
	VendorName       string          `json:"vendorName,omitempty"`
	ClassID          string          `json:"classId,omitempty"`
	ClassNumber      string          `json:"classNumber,omitempty"`
	ClassName        string          `json:"className,omitempty"`
	DepartmentID     string          `json:"departmentId,omitempty"`
	DepartmentNumber string          `json:"departmentNumber,omitempty"`
	DepartmentName   string          `json:"departmentName,omitempty"`
	ProjectID        string          `json:"projectId,omitempty"`
	ProjectNumber    string          `json:"projectNumber,omitempty"`
	ProjectName      string          `json:"projectName,omitempty"`
	LocationID       string          `json:"locationId,omitempty"`
	LocationNumber   string          `json:"locationNumber,omitempty"`
	LocationName     string          `json:"locationName,omitempty"`
	ItemID           string          `json:"itemId,omitempty"`
	ItemNumber       string          `json:"itemNumber,omitempty"`
	ItemName         string          `json:"itemName,omitempty"`
	TaskNumber       string          `json:"taskNumber,omitempty"`
	EmployeeID       string          `json:"employeeId,omitempty"`
	LineNumber       string          `json:"lineNumber,omitempty"`
	CustomFields     []CustomField   `json:"customFields,omitempty"`
}

// Bill is a unified accounts-payable bill.
type Bill struct {
	ID           string        `json:"id,omitempty"`
	ExternalID   string        `json:"externalId,omitempty"`
	BillNumber   string        `json:"billNumber,omitempty"`
	Description  string        `json:"description,omitempty"`
	Currency     string        `json:"currency,omitempty"`
	IsDraft      bool          `json:"isDraft,omitempty"`
	CreatedAt    *time.Time    `json:"createdAt,omitempty"`
	IssueDate    string        `json:"issueDate,omitempty"`
	DueDate      string        `json:"dueDate,omitempty"`
	VendorID     string        `json:"vendorId,omitempty"`
	VendorNumber string        `json:"vendorNumber,omitempty"`
	VendorName   string        `json:"vendorName,omitempty"`
	SubsidiaryID string        `json:"subsidiaryId,omitempty"`
	LineItems    []BillLine    `json:"lineItems,omitempty"`
	Expenses     []BillLine    `json:"expenses,omitempty"`
	Attachments  []Attachment  `json:"attachments,omitempty"`
	CustomFields []CustomField `json:"customFields,omitempty"`
}

// VendorCredit is a unified AP adjustment crediting a vendor.
type VendorCredit struct {
	ID                 string           `json:"id,omitempty"`
	ExternalID         string           `json:"externalId,omitempty"`
	VendorCreditNumber string           `json:"vendorCreditNumber,omitempty"`
	Description        string           `json:"description,omitempty"`
	Currency           string           `json:"currency,omitempty"`
	ExchangeRate       *decimal.Decimal `json:"exchangeRate,omitempty"`
	IsDraft            bool             `json:"isDraft,omitempty"`
	IssueDate          string           `json:"issueDate,omitempty"`
	VendorID           string           `json:"vendorId,omitempty"`
	VendorNumber       string           `json:"vendorNumber,omitempty"`
	VendorName         string           `json:"vendorName,omitempty"`
	SubsidiaryID       string           `json:"subsidiaryId,omitempty"`
	LineItems          []BillLine       `json:"lineItems,omitempty"`
	Expenses           []BillLine       `json:"expenses,omitempty"`
}

// BillPayment is a unified payment applied against a bill.
type BillPayment struct {
	ID                string           `json:"id,omitempty"`
	ExternalID        string           `json:"externalId,omitempty"`
	TransactionNumber string           `json:"transactionNumber,omitempty"`
	PaymentDate       string           `json:"paymentDate,omitempty"`
	PaymentMethod     string           `json:"paymentMethod,omitempty"`
	Currency          string           `json:"currency,omitempty"`
	Amount            decimal.Decimal  `json:"amount"`
	ExchangeRate      *decimal.Decimal `json:"exchangeRate,omitempty"`
	AccountID         string           `json:"accountId,omitempty"`
	AccountName       string           `json:"accountName,omitempty"`
	BillID            string           `json:"billId,omitempty"`
	BillNumber        string           `json:"billNumber,omitempty"`
	VendorID          string           `json:"vendorId,omitempty"`
	VendorNumber      string           `json:"vendorNumber,omitempty"`
	VendorName        string           `json:"vendorName,omitempty"`
	SubsidiaryID      string           `json:"subsidiaryId,omitempty"`
}
