// Command catalog-ingest loads the product catalog from gzipped JSON-lines
// supplier feeds. A product is accepted only when its SKU appears in at least
// two feeds; agreement across feeds filters out stale or corrupt entries.
//
// Feeds are far larger than memory, so matching is done in two passes: pass 1
// builds a bloom filter per feed, pass 2 re-streams each feed and keeps the
// records whose SKU tests positive in another feed's filter.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/avelinsk/gostore/internal/domain/catalog"
	"github.com/avelinsk/gostore/internal/storage/postgres"
)

const (
	bloomCapacity = 50_000_000
	bloomFPR      = 0.001
	numFeeds      = 3
	progressEvery = 1_000_000
)

type feedRecord struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       *int            `json:"stock"`
}

func (r feedRecord) valid() bool {
	return r.SKU != "" && r.Name != "" && r.Price.Sign() >= 0
}

// candidates maps SKU to a bitmask of the feeds it was confirmed in plus the
// freshest record seen for it.
type candidates struct {
	masks   map[string]uint
	records map[string]feedRecord
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing feedN.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	feeds := make([]string, numFeeds)
	for i := range numFeeds {
		feeds[i] = filepath.Join(dataDir, fmt.Sprintf("feed%d.gz", i+1))
	}
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	slog.Info("pass 1: building bloom filters", slog.Int("feeds", numFeeds))

	filters, err := buildFilters(ctx, feeds)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: confirming records across feeds")

	confirmed, err := confirmRecords(ctx, feeds, filters)
	if err != nil {
		return errors.Wrap(err, "confirm records")
	}

	slog.Info("confirmed products", slog.Int("count", len(confirmed)))
	if len(confirmed) == 0 {
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeProducts(ctx, postgres.NewProductRepository(pool), confirmed); err != nil {
		return errors.Wrap(err, "write products")
	}
	return nil
}

func buildFilters(ctx context.Context, feeds []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64

			err := streamFeed(ctx, f, func(rec feedRecord) {
				filter.AddString(rec.SKU)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("feed", i+1), slog.Uint64("records", count))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for feed %d", i+1)
			}

			slog.Info("pass 1 complete", slog.Int("feed", i+1), slog.Uint64("records", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// confirmRecords keeps records whose SKU appears in at least two feeds.
func confirmRecords(ctx context.Context, feeds []string, filters []*bloom.BloomFilter) ([]feedRecord, error) {
	results := make([]candidates, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(func() error {
			c := candidates{
				masks:   make(map[string]uint),
				records: make(map[string]feedRecord),
			}
			feedBit := uint(1) << uint(i)

			err := streamFeed(ctx, f, func(rec feedRecord) {
				for j, filter := range filters {
					if j == i {
						continue
					}
					if filter.TestString(rec.SKU) {
						c.masks[rec.SKU] |= feedBit
						c.records[rec.SKU] = rec
						break
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan feed %d", i+1)
			}

			slog.Info("pass 2 complete", slog.Int("feed", i+1), slog.Int("candidates", len(c.masks)))
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeCandidates(results), nil
}

// mergeCandidates unions the per-feed confirmations and keeps the SKUs seen
// in at least two feeds. When feeds disagree on a SKU's name or price the
// lowest-numbered feed wins, so repeated ingests of the same feed set
// produce the same catalog rows.
func mergeCandidates(results []candidates) []feedRecord {
	merged := make(map[string]uint)
	records := make(map[string]feedRecord)
	for _, c := range results {
		for sku, mask := range c.masks {
			merged[sku] |= mask
			if _, seen := records[sku]; !seen {
				records[sku] = c.records[sku]
			}
		}
	}

	var confirmed []feedRecord
	for sku, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			confirmed = append(confirmed, records[sku])
		}
	}
	return confirmed
}

// streamFeed decompresses a feed and calls fn for each well-formed line.
func streamFeed(ctx context.Context, path string, fn func(feedRecord)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var rec feedRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if rec.valid() {
			fn(rec)
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

func writeProducts(ctx context.Context, products *postgres.ProductRepository, confirmed []feedRecord) error {
	slog.Info("writing products to database", slog.Int("count", len(confirmed)))

	for i, rec := range confirmed {
		var categoryID *uuid.UUID
		if rec.Category != "" {
			id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("category:"+rec.Category))
			if err := products.UpsertCategory(ctx, id, rec.Category); err != nil {
				return errors.Wrapf(err, "upsert category %s", rec.Category)
			}
			categoryID = &id
		}

		p := catalog.Product{
			ID:            uuid.NewSHA1(uuid.NameSpaceOID, []byte("sku:"+rec.SKU)),
			Name:          rec.Name,
			Description:   rec.Description,
			Price:         rec.Price,
			CategoryID:    categoryID,
			StockQuantity: rec.Stock,
		}
		if err := products.Upsert(ctx, &p); err != nil {
			return errors.Wrapf(err, "upsert product %s", rec.SKU)
		}

		if (i+1)%100 == 0 || i+1 == len(confirmed) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(confirmed)))
		}
	}
	return nil
}
