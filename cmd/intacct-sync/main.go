package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appsync "github.com/connectorhq/intacct-sync/internal/application/sync"
	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
	"github.com/connectorhq/intacct-sync/internal/domain/unified"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/config"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "intacct-sync",
		Short:        "Push unified accounting records into Sage Intacct",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var stream, input, output string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one batch file and write one outcome per record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), stream, input, output)
		},
	}
	cmd.Flags().StringVar(&stream, "stream", "", "record stream: vendors, items, bills, vendor-credits, bill-payments")
	cmd.Flags().StringVar(&input, "input", "", "JSONL input file (default stdin)")
	cmd.Flags().StringVar(&output, "output", "", "JSONL output file (default stdout)")
	_ = cmd.MarkFlagRequired("stream")
	return cmd
}

func run(ctx context.Context, stream, input, output string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer log.Sync()

	service := buildService(cfg, log)

	in := io.Reader(os.Stdin)
	if input != "" {
		f, err := os.Open(input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	out := io.Writer(os.Stdout)
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	outcomes, err := dispatch(ctx, service, stream, in)
	if err != nil {
		return err
	}
	return writeOutcomes(out, outcomes)
}

func buildService(cfg *config.Config, log *zap.Logger) *appsync.Service {
	creds := intacct.Credentials{
		CompanyID:      cfg.Gateway.CompanyID,
		SenderID:       cfg.Gateway.SenderID,
		SenderPassword: cfg.Gateway.SenderPassword,
		UserID:         cfg.Gateway.UserID,
		UserPassword:   cfg.Gateway.UserPassword,
		LocationID:     cfg.Gateway.LocationID,
		UseLocations:   cfg.Gateway.UseLocations,
	}
	transport := intacct.NewTransport(cfg.Gateway.URL, log,
		intacct.WithHTTPClient(&http.Client{Timeout: cfg.Transport.Timeout}),
		intacct.WithRetryPolicy(cfg.Transport.MaxAttempts, cfg.Transport.BackoffBase),
	)
	sessions := intacct.NewSessionManager(transport, creds, log)
	correlator := intacct.NewCorrelator(transport, creds, log)
	client := intacct.NewClient(transport, sessions, creds, log)
	loader := intacct.NewRefLoader(client, log)

	var snapshot *intacct.SnapshotStore
	if cfg.Snapshot.Enabled {
		snapshot = intacct.NewSnapshotStore(cfg.Snapshot.Path, cfg.Snapshot.MaxAge, log)
	}

	engine := appsync.NewEngine(sessions, correlator, cfg.Batch.MaxSize, log)
	return appsync.NewService(engine, loader, snapshot, client, cfg.App.InputDir, http.DefaultClient, log)
}

func dispatch(ctx context.Context, service *appsync.Service, stream string, in io.Reader) ([]syncdomain.RecordOutcome, error) {
	switch stream {
	case "vendors":
		records, err := readRecords[unified.Vendor](in)
		if err != nil {
			return nil, err
		}
		return service.SyncVendors(ctx, records)
	case "items":
		records, err := readRecords[unified.Item](in)
		if err != nil {
			return nil, err
		}
		return service.SyncItems(ctx, records)
	case "bills":
		records, err := readRecords[unified.Bill](in)
		if err != nil {
			return nil, err
		}
		return service.SyncBills(ctx, records)
	case "vendor-credits":
		records, err := readRecords[unified.VendorCredit](in)
		if err != nil {
			return nil, err
		}
		return service.SyncVendorCredits(ctx, records)
	case "bill-payments":
		records, err := readRecords[unified.BillPayment](in)
		if err != nil {
			return nil, err
		}
		return service.SyncBillPayments(ctx, records)
	default:
		return nil, fmt.Errorf("unknown stream %q", stream)
	}
}

// readRecords decodes one JSON record per input line, skipping blank lines.
func readRecords[T any](in io.Reader) ([]T, error) {
	var records []T
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decoding input line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return records, nil
}

func writeOutcomes(out io.Writer, outcomes []syncdomain.RecordOutcome) error {
	enc := json.NewEncoder(out)
	for _, o := range outcomes {
		if err := enc.Encode(o); err != nil {
			return err
		}
	}
	return nil
}
