package sync

import (
	"context"

	"go.uber.org/zap"

	"github.com/connectorhq/intacct-sync/internal/domain/resolve"
	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
	"github.com/connectorhq/intacct-sync/internal/domain/unified"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct/mappers"
)

// Reference collections each stream needs before mapping can start.
var (
	vendorKinds = []resolve.Kind{resolve.KindSubsidiary, resolve.KindVendor}
	itemKinds   = []resolve.Kind{resolve.KindSubsidiary, resolve.KindItem}
	billKinds   = []resolve.Kind{
		resolve.KindSubsidiary, resolve.KindVendor, resolve.KindAccount,
		resolve.KindClass, resolve.KindDepartment, resolve.KindProject,
		resolve.KindLocation, resolve.KindTask, resolve.KindEmployee,
		resolve.KindItem, resolve.KindBill,
	}
	vendorCreditKinds = []resolve.Kind{
		resolve.KindSubsidiary, resolve.KindVendor, resolve.KindAccount,
		resolve.KindClass, resolve.KindDepartment, resolve.KindLocation,
		resolve.KindItem, resolve.KindVendorCredit, resolve.KindVendorCreditLine,
	}
	billPaymentKinds = []resolve.Kind{
		resolve.KindSubsidiary, resolve.KindVendor, resolve.KindBill,
		resolve.KindBillPayment, resolve.KindCheckingAccount,
		resolve.KindSavingsAccount, resolve.KindCreditCard,
	}
)

// Service is the application facade: one method per unified stream. It
// owns the reference cache for the run and builds the per-stream sinks.
type Service struct {
	engine   *Engine
	loader   *intacct.RefLoader
	snapshot *intacct.SnapshotStore
	client   *intacct.Client
	inputDir string
	fetcher  mappers.Fetcher
	log      *zap.Logger

	cache *resolve.Cache
}

// NewService wires the facade. snapshot may be nil to disable snapshot
// reuse between runs.
func NewService(engine *Engine, loader *intacct.RefLoader, snapshot *intacct.SnapshotStore, client *intacct.Client, inputDir string, fetcher mappers.Fetcher, log *zap.Logger) *Service {
	return &Service{
		engine:   engine,
		loader:   loader,
		snapshot: snapshot,
		client:   client,
		inputDir: inputDir,
		fetcher:  fetcher,
		log:      log.Named("sync"),
	}
}

// resolverFor returns a resolver over a cache holding at least the given
// kinds, loading missing collections from the snapshot file or the gateway.
func (s *Service) resolverFor(ctx context.Context, kinds []resolve.Kind) (*resolve.Resolver, error) {
	if s.cache == nil {
		if s.snapshot != nil {
			if cache, ok := s.snapshot.Load(); ok {
				s.log.Info("reusing reference snapshot")
				s.cache = cache
			}
		}
		if s.cache == nil {
			s.cache = resolve.NewCache()
		}
	}

	var missing []resolve.Kind
	for _, k := range kinds {
		if s.cache.Len(k) == 0 {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		if err := s.loader.LoadInto(ctx, s.cache, missing); err != nil {
			return nil, err
		}
		if s.snapshot != nil {
			if err := s.snapshot.Save(s.cache); err != nil {
				s.log.Warn("saving reference snapshot failed", zap.Error(err))
			}
		}
	}
	return resolve.NewResolver(s.cache), nil
}

// SyncVendors pushes vendors and returns one outcome per input record.
func (s *Service) SyncVendors(ctx context.Context, vendors []unified.Vendor) ([]syncdomain.RecordOutcome, error) {
	r, err := s.resolverFor(ctx, vendorKinds)
	if err != nil {
		return nil, err
	}
	sink := VendorSink{Mapper: mappers.VendorMapper{Resolver: r}}
	return s.engine.Run(ctx, sink.Plan(vendors)), nil
}

// SyncItems pushes items and returns one outcome per input record.
func (s *Service) SyncItems(ctx context.Context, items []unified.Item) ([]syncdomain.RecordOutcome, error) {
	r, err := s.resolverFor(ctx, itemKinds)
	if err != nil {
		return nil, err
	}
	sink := ItemSink{Mapper: mappers.ItemMapper{Resolver: r}}
	return s.engine.Run(ctx, sink.Plan(items)), nil
}

// SyncBills pushes bills, uploading attachments alongside each bill in a
// single transactional request.
func (s *Service) SyncBills(ctx context.Context, bills []unified.Bill) ([]syncdomain.RecordOutcome, error) {
	r, err := s.resolverFor(ctx, billKinds)
	if err != nil {
		return nil, err
	}
	sink := BillSink{
		Mapper:      mappers.BillMapper{Resolver: r},
		Attachments: mappers.AttachmentMapper{InputDir: s.inputDir, Fetcher: s.fetcher, Log: s.log},
		Client:      s.client,
		Log:         s.log,
	}
	return s.engine.Run(ctx, sink.Plan(ctx, bills)), nil
}

// SyncVendorCredits pushes vendor credits.
func (s *Service) SyncVendorCredits(ctx context.Context, credits []unified.VendorCredit) ([]syncdomain.RecordOutcome, error) {
	r, err := s.resolverFor(ctx, vendorCreditKinds)
	if err != nil {
		return nil, err
	}
	sink := VendorCreditSink{Mapper: mappers.VendorCreditMapper{Resolver: r}}
	return s.engine.Run(ctx, sink.Plan(credits)), nil
}

// SyncBillPayments pushes bill payments.
func (s *Service) SyncBillPayments(ctx context.Context, payments []unified.BillPayment) ([]syncdomain.RecordOutcome, error) {
	r, err := s.resolverFor(ctx, billPaymentKinds)
	if err != nil {
		return nil, err
	}
	sink := BillPaymentSink{Mapper: mappers.BillPaymentMapper{Resolver: r}}
	return s.engine.Run(ctx, sink.Plan(payments)), nil
}
