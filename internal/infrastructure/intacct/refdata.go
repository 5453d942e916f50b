package intacct

import (
	"context"

	"go.uber.org/zap"

	"github.com/connectorhq/intacct-sync/internal/domain/resolve"
	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
)

// kindSpec describes how one reference collection is fetched and which
// fields carry the identifying trio. The scope tag comes from MEGAENTITYID
// where the object supports it.
type kindSpec struct {
	object    string
	fields    []string
	idField   string
	nameField string
	scoped    bool
}

var kindSpecs = map[resolve.Kind]kindSpec{
	resolve.KindAccount:          {object: "GLACCOUNT", fields: []string{"RECORDNO", "ACCOUNTNO", "TITLE", "MEGAENTITYID"}, idField: "ACCOUNTNO", nameField: "TITLE", scoped: true},
	resolve.KindVendor:           {object: "VENDOR", fields: []string{"RECORDNO", "VENDORID", "NAME", "MEGAENTITYID"}, idField: "VENDORID", nameField: "NAME", scoped: true},
	resolve.KindLocation:         {object: "LOCATION", fields: []string{"RECORDNO", "LOCATIONID", "NAME"}, idField: "LOCATIONID", nameField: "NAME"},
	resolve.KindClass:            {object: "CLASS", fields: []string{"RECORDNO", "CLASSID", "NAME", "MEGAENTITYID"}, idField: "CLASSID", nameField: "NAME", scoped: true},
	resolve.KindDepartment:       {object: "DEPARTMENT", fields: []string{"RECORDNO", "DEPARTMENTID", "TITLE"}, idField: "DEPARTMENTID", nameField: "TITLE"},
	resolve.KindProject:          {object: "PROJECT", fields: []string{"RECORDNO", "PROJECTID", "NAME", "MEGAENTITYID"}, idField: "PROJECTID", nameField: "NAME", scoped: true},
	resolve.KindItem:             {object: "ITEM", fields: []string{"RECORDNO", "ITEMID", "NAME", "MEGAENTITYID"}, idField: "ITEMID", nameField: "NAME", scoped: true},
	resolve.KindEmployee:         {object: "EMPLOYEE", fields: []string{"RECORDNO", "EMPLOYEEID", "MEGAENTITYID"}, idField: "EMPLOYEEID", scoped: true},
	resolve.KindTask:             {object: "TASK", fields: []string{"RECORDNO", "TASKID", "NAME"}, idField: "TASKID", nameField: "NAME"},
	resolve.KindSubsidiary:       {object: "LOCATIONENTITY", fields: []string{"RECORDNO", "LOCATIONID", "NAME"}, idField: "LOCATIONID", nameField: "NAME"},
	resolve.KindCheckingAccount:  {object: "CHECKINGACCOUNT", fields: []string{"RECORDNO", "BANKACCOUNTID", "BANKNAME", "MEGAENTITYID"}, idField: "BANKACCOUNTID", nameField: "BANKNAME", scoped: true},
	resolve.KindSavingsAccount:   {object: "SAVINGSACCOUNT", fields: []string{"RECORDNO", "BANKACCOUNTID", "BANKNAME", "MEGAENTITYID"}, idField: "BANKACCOUNTID", nameField: "BANKNAME", scoped: true},
	resolve.KindCreditCard:       {object: "CREDITCARD", fields: []string{"RECORDNO", "CARDID", "DESCRIPTION", "MEGAENTITYID"}, idField: "CARDID", nameField: "DESCRIPTION", scoped: true},
	resolve.KindBill:             {object: "APBILL", fields: []string{"RECORDNO", "RECORDID", "VENDORID", "CURRENCY", "MEGAENTITYID"}, idField: "RECORDID", scoped: true},
	resolve.KindBillPayment:      {object: "APPYMT", fields: []string{"RECORDNO", "DOCNUMBER", "MEGAENTITYID"}, idField: "DOCNUMBER", scoped: true},
	resolve.KindVendorCredit:     {object: "APADJUSTMENT", fields: []string{"RECORDNO", "RECORDID", "MEGAENTITYID"}, idField: "RECORDID", scoped: true},
	resolve.KindVendorCreditLine: {object: "APADJUSTMENTITEM", fields: []string{"RECORDNO", "RECORDKEY", "LINE_NO", "ENTRYDESCRIPTION", "ACCOUNTNO", "ITEMID"}, idField: "RECORDKEY"},
}

// RefLoader populates the per-run entity cache from the gateway. Reference
// queries always run under the top-level scope so that entities of every
// subsidiary are visible and tagged.
type RefLoader struct {
	client *Client
	log    *zap.Logger
}

// NewRefLoader wraps a client.
func NewRefLoader(client *Client, log *zap.Logger) *RefLoader {
	return &RefLoader{client: client, log: log.Named("refdata")}
}

// Load fetches the requested collections into a fresh cache.
func (l *RefLoader) Load(ctx context.Context, kinds []resolve.Kind) (*resolve.Cache, error) {
	cache := resolve.NewCache()
	if err := l.LoadInto(ctx, cache, kinds); err != nil {
		return nil, err
	}
	return cache, nil
}

// LoadInto fetches the requested collections into an existing cache,
// replacing any previously loaded collection of the same kind.
func (l *RefLoader) LoadInto(ctx context.Context, cache *resolve.Cache, kinds []resolve.Kind) error {
	for _, kind := range kinds {
		spec, ok := kindSpecs[kind]
		if !ok {
			continue
		}
		records, err := l.client.GetRecords(ctx, syncdomain.TopLevel, spec.object, spec.fields, nil)
		if err != nil {
			return err
		}
		entities := make([]resolve.RemoteEntity, 0, len(records))
		for _, r := range records {
			entity := resolve.RemoteEntity{
				RecordNo: r["RECORDNO"],
				EntityID: r[spec.idField],
				Scope:    syncdomain.TopLevel,
				Raw:      r,
			}
			if spec.nameField != "" {
				entity.Name = r[spec.nameField]
			}
			if spec.scoped {
				entity.Scope = syncdomain.ScopeOrTopLevel(r["MEGAENTITYID"])
			}
			entities = append(entities, entity)
		}
		cache.Put(kind, entities)
		l.log.Info("loaded reference collection",
			zap.String("kind", string(kind)),
			zap.Int("entities", len(entities)))
	}
	return nil
}
