package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
	"github.com/connectorhq/intacct-sync/internal/domain/unified"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct/mappers"
)

// planFromMapped turns one mapper result into a planned record carrying a
// single gateway operation.
func planFromMapped(externalID string, mapped *mappers.MappedRecord, err error) PlannedRecord {
	if err != nil {
		return PlannedRecord{ExternalID: externalID, MappingErr: err}
	}
	return PlannedRecord{
		ExternalID: mapped.ExternalID,
		Scope:      mapped.Scope,
		Envelopes: []intacct.OperationEnvelope{
			{Kind: mapped.Kind, Payload: mapped.Body},
		},
	}
}

// VendorSink plans vendor upserts.
type VendorSink struct {
	Mapper mappers.VendorMapper
}

func (s VendorSink) Plan(vendors []unified.Vendor) []PlannedRecord {
	plans := make([]PlannedRecord, 0, len(vendors))
	for _, v := range vendors {
		mapped, err := s.Mapper.Map(v)
		plans = append(plans, planFromMapped(v.ExternalID, mapped, err))
	}
	return plans
}

// ItemSink plans item upserts.
type ItemSink struct {
	Mapper mappers.ItemMapper
}

func (s ItemSink) Plan(items []unified.Item) []PlannedRecord {
	plans := make([]PlannedRecord, 0, len(items))
	for _, it := range items {
		mapped, err := s.Mapper.Map(it)
		plans = append(plans, planFromMapped(it.ExternalID, mapped, err))
	}
	return plans
}

// VendorCreditSink plans vendor credit upserts.
type VendorCreditSink struct {
	Mapper mappers.VendorCreditMapper
}

func (s VendorCreditSink) Plan(credits []unified.VendorCredit) []PlannedRecord {
	plans := make([]PlannedRecord, 0, len(credits))
	for _, vc := range credits {
		mapped, err := s.Mapper.Map(vc)
		plans = append(plans, planFromMapped(vc.ExternalID, mapped, err))
	}
	return plans
}

// BillPaymentSink plans bill payment upserts.
type BillPaymentSink struct {
	Mapper mappers.BillPaymentMapper
}

func (s BillPaymentSink) Plan(payments []unified.BillPayment) []PlannedRecord {
	plans := make([]PlannedRecord, 0, len(payments))
	for _, p := range payments {
		mapped, err := s.Mapper.Map(p)
		plans = append(plans, planFromMapped(p.ExternalID, mapped, err))
	}
	return plans
}

// BillSink plans bill upserts, each submitted as its own transactional
// request so the attachment folder, the supdoc upload, and the bill apply
// all-or-nothing. With NonAtomic set, the pieces apply independently and a
// failed bill triggers a compensating supdoc delete instead.
type BillSink struct {
	Mapper      mappers.BillMapper
	Attachments mappers.AttachmentMapper
	Client      *intacct.Client
	Log         *zap.Logger
	NonAtomic   bool
}

func (s BillSink) Plan(ctx context.Context, bills []unified.Bill) []PlannedRecord {
	plans := make([]PlannedRecord, 0, len(bills))
	for _, b := range bills {
		plans = append(plans, s.plan(ctx, b))
	}
	return plans
}

func (s BillSink) plan(ctx context.Context, b unified.Bill) PlannedRecord {
	var aux []*intacct.Element
	supDocID := ""
	createdSupDoc := false

	if len(b.Attachments) > 0 {
		if b.BillNumber == "" {
			return PlannedRecord{ExternalID: b.ExternalID,
				MappingErr: fmt.Errorf("%w: attachments require a billNumber", syncdomain.ErrMissingReference)}
		}

		folderName := mappers.SupDocFolderName(b.BillNumber)
		id := mappers.FormatSupDocID("APBILL", b.BillNumber)

		existing, err := s.Client.GetSupDoc(ctx, syncdomain.TopLevel, id)
		if err != nil {
			return PlannedRecord{ExternalID: b.ExternalID, MappingErr: err}
		}
		var existingAtts []intacct.AttachmentRecord
		if existing != nil {
			existingAtts = existing.Attachments
		}

		var newAtts []mappers.MappedAttachment
		for _, att := range b.Attachments {
			mapped, err := s.Attachments.Map(att, existingAtts)
			if err != nil {
				return PlannedRecord{ExternalID: b.ExternalID, MappingErr: err}
			}
			if mapped != nil {
				newAtts = append(newAtts, *mapped)
			}
		}

		switch {
		case len(newAtts) > 0:
			if existing == nil {
				exists, err := s.Client.SupDocFolderExists(ctx, syncdomain.TopLevel, folderName)
				if err != nil {
					return PlannedRecord{ExternalID: b.ExternalID, MappingErr: err}
				}
				if !exists {
					aux = append(aux, mappers.SupDocFolderFunction(folderName))
				}
			}
			aux = append(aux, mappers.SupDocFunction(existing != nil, id, folderName, newAtts))
			supDocID = id
			createdSupDoc = existing == nil
		case existing != nil:
			// every attachment already uploaded, just link the bundle
			supDocID = id
		}
	}

	mapped, err := s.Mapper.Map(b, supDocID)
	if err != nil {
		return PlannedRecord{ExternalID: b.ExternalID, MappingErr: err}
	}

	envs := make([]intacct.OperationEnvelope, 0, len(aux)+1)
	for _, el := range aux {
		envs = append(envs, intacct.OperationEnvelope{Kind: syncdomain.OperationCreate, Payload: el})
	}
	envs = append(envs, intacct.OperationEnvelope{Kind: mapped.Kind, Payload: mapped.Body})

	plan := PlannedRecord{
		ExternalID: mapped.ExternalID,
		Scope:      mapped.Scope,
		Atomic:     !s.NonAtomic,
		Envelopes:  envs,
		MainIndex:  len(envs) - 1,
	}
	if s.NonAtomic && createdSupDoc {
		docID, scope := supDocID, mapped.Scope
		plan.OnFailure = func(ctx context.Context) {
			s.Log.Info("bill failed after supdoc upload, deleting attachments",
				zap.String("supdoc_id", docID))
			if err := s.Client.DeleteSupDoc(ctx, scope, docID); err != nil {
				s.Log.Warn("compensating supdoc delete failed",
					zap.String("supdoc_id", docID),
					zap.Error(err))
			}
		}
	}
	return plan
}
