package mappers

import (
	"fmt"
	"time"

	"github.com/connectorhq/intacct-sync/internal/domain/resolve"
	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
	"github.com/connectorhq/intacct-sync/internal/domain/unified"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct"
)

// bankAccountKinds are tried in order when resolving the paying account.
var bankAccountKinds = []resolve.Kind{
	resolve.KindCheckingAccount,
	resolve.KindSavingsAccount,
	resolve.KindCreditCard,
}

// BillPaymentMapper maps a unified BillPayment onto the APPYMT object.
type BillPaymentMapper struct {
	Resolver *resolve.Resolver
	Now      func() time.Time
}

// Map builds the create/update function for one bill payment. The paid bill
// must already exist remotely; the payment references it by record number.
func (m BillPaymentMapper) Map(p unified.BillPayment) (*MappedRecord, error) {
	scope, err := m.Resolver.ResolveSubsidiary(resolve.Hints{Number: p.SubsidiaryID})
	if err != nil {
		return nil, err
	}

	existing, err := findExisting(m.Resolver.Cache(), resolve.KindBillPayment, []pkTier{
		{value: p.ID, field: byRecordNo, requiredIfPresent: true},
		{value: p.TransactionNumber, field: byEntityID},
	})
	if err != nil {
		return nil, err
	}

	billRes, err := m.Resolver.Resolve(resolve.KindBill,
		resolve.Hints{RecordNo: p.BillID, Number: p.BillNumber},
		scope, resolve.Options{Required: true, RequiredIfHintsPresent: true})
	if err != nil {
		return nil, err
	}
	bill := billRes.Entity

	vendorID, err := subRecordID(m.Resolver, resolve.KindVendor,
		resolve.Hints{RecordNo: p.VendorID, Number: p.VendorNumber, Name: p.VendorName},
		scope, resolve.Options{})
	if err != nil {
		return nil, err
	}
	if vendorID == "" {
		vendorID = bill.Field("VENDORID")
	}

	financialEntity, err := m.resolveBankAccount(p, scope)
	if err != nil {
		return nil, err
	}

	if p.PaymentMethod == "" {
		return nil, fmt.Errorf("%w: payment method is required", syncdomain.ErrMissingReference)
	}
	if p.Amount.IsZero() {
		return nil, fmt.Errorf("%w: payment amount is required", syncdomain.ErrMissingReference)
	}

	currency := p.Currency
	if currency == "" {
		currency = bill.Field("CURRENCY")
	}

	pymt := intacct.El("APPYMT")
	if existing != nil {
		pymt.AppendText("RECORDNO", existing.RecordNo)
	}
	pymt.AppendText("FINANCIALENTITY", financialEntity)
	pymt.AppendText("VENDORID", vendorID)
	pymt.AppendText("CURRENCY", currency)
	pymt.AppendText("PAYMENTMETHOD", p.PaymentMethod)
	pymt.Append(intacct.El("APPYMTDETAILS",
		intacct.El("APPYMTDETAIL",
			intacct.Text("RECORDKEY", bill.RecordNo),
			intacct.Text("TRX_PAYMENTAMOUNT", p.Amount.String()),
		),
	))
	pymt.AppendText("DOCNUMBER", p.TransactionNumber)
	pymt.AppendText("PAYMENTDATE", m.paymentDate(p))
	if p.ExchangeRate != nil {
		pymt.AppendText("EXCHANGE_RATE", p.ExchangeRate.String())
	}

	mapped := &MappedRecord{
		FunctionName: "create",
		Kind:         syncdomain.OperationCreate,
		RecordType:   "APPYMT",
		Scope:        scope,
		ExternalID:   p.ExternalID,
		RecordID:     p.TransactionNumber,
	}
	if existing != nil {
		mapped.FunctionName = "update"
		mapped.Kind = syncdomain.OperationUpdate
		mapped.RecordNo = existing.RecordNo
	}
	mapped.Body = intacct.El(mapped.FunctionName, pymt)
	return mapped, nil
}

// resolveBankAccount tries checking accounts, then savings accounts, then
// credit cards. The account id hint matches record numbers, the account
// name hint the bank account or card id.
func (m BillPaymentMapper) resolveBankAccount(p unified.BillPayment, scope syncdomain.ScopeID) (string, error) {
	if p.AccountID == "" && p.AccountName == "" {
		return "", fmt.Errorf("%w: accountId or accountName is required for bill payment", syncdomain.ErrMissingReference)
	}
	hints := resolve.Hints{RecordNo: p.AccountID, Number: p.AccountName}
	for _, kind := range bankAccountKinds {
		res, err := m.Resolver.Resolve(kind, hints, scope, resolve.Options{})
		if err != nil {
			return "", err
		}
		if res.Status == resolve.Found {
			return res.Entity.EntityID, nil
		}
	}
	return "", fmt.Errorf("%w: no bank account or credit card matching accountId=%q accountName=%q",
		syncdomain.ErrReferenceNotFound, p.AccountID, p.AccountName)
}

func (m BillPaymentMapper) paymentDate(p unified.BillPayment) string {
	if p.PaymentDate != "" {
		return isoDate(p.PaymentDate)
	}
	now := m.Now
	if now == nil {
		now = time.Now
	}
	return now().UTC().Format("2006-01-02")
}
