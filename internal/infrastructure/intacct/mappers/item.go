package mappers

import (
	"fmt"

	"github.com/connectorhq/intacct-sync/internal/domain/resolve"
	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
	"github.com/connectorhq/intacct-sync/internal/domain/unified"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct"
)

// allowedItemTypes are the ITEMTYPE values the gateway accepts.
var allowedItemTypes = map[string]bool{
	"Inventory":                     true,
	"Non-Inventory":                 true,
	"Non-Inventory (Purchase only)": true,
	"Non-Inventory (Sales only)":    true,
}

// ItemMapper maps a unified Item onto the ITEM object.
type ItemMapper struct {
	Resolver *resolve.Resolver
}

// Map builds the create/update function for one item.
func (m ItemMapper) Map(it unified.Item) (*MappedRecord, error) {
	scope, err := m.Resolver.ResolveSubsidiary(resolve.Hints{Number: it.SubsidiaryID})
	if err != nil {
		return nil, err
	}

	existing, err := findExisting(m.Resolver.Cache(), resolve.KindItem, []pkTier{
		{value: it.ID, field: byRecordNo, requiredIfPresent: true},
		{value: it.ItemNumber, field: byEntityID},
		{value: it.DisplayName, field: byName},
	})
	if err != nil {
		return nil, err
	}

	// ITEMID is immutable on update, so the existing one always wins.
	itemID := it.ItemNumber
	if existing != nil {
		itemID = existing.EntityID
	} else if itemID == "" {
		return nil, fmt.Errorf("%w: itemNumber is required", syncdomain.ErrMissingReference)
	}

	if !allowedItemTypes[it.Type] {
		return nil, fmt.Errorf("%w: invalid item type %q", syncdomain.ErrMissingReference, it.Type)
	}

	item := intacct.El("ITEM")
	if existing != nil {
		item.AppendText("RECORDNO", existing.RecordNo)
	}
	item.AppendText("ITEMID", itemID)
	item.AppendText("NAME", it.DisplayName)
	item.AppendText("ITEMTYPE", it.Type)
	if it.IsActive != nil {
		status := "inactive"
		if *it.IsActive {
			status = "active"
		}
		item.AppendText("STATUS", status)
	}

	mapped := &MappedRecord{
		FunctionName: "create",
		Kind:         syncdomain.OperationCreate,
		RecordType:   "ITEM",
		Scope:        scope,
		ExternalID:   it.ExternalID,
		RecordID:     itemID,
	}
	if existing != nil {
		mapped.FunctionName = "update"
		mapped.Kind = syncdomain.OperationUpdate
		mapped.RecordNo = existing.RecordNo
	}
	mapped.Body = intacct.El(mapped.FunctionName, item)
	return mapped, nil
}
