// Command seed-db provisions a database with demo users, categories and
// products, and prints bearer tokens for the seeded users.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelinsk/gostore/internal/domain/auth"
	"github.com/avelinsk/gostore/internal/domain/catalog"
	"github.com/avelinsk/gostore/internal/domain/user"
	"github.com/avelinsk/gostore/internal/storage/postgres"
)

type productJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       *int            `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		pepper       string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&pepper, "token-pepper", "", "HMAC pepper for tokens and password hashing (or STORE_TOKEN_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if pepper == "" {
		pepper = os.Getenv("STORE_TOKEN_PEPPER")
	}
	if pepper == "" {
		slog.Error("pepper is required: set --token-pepper or STORE_TOKEN_PEPPER")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	users := postgres.NewUserRepository(pool)
	products := postgres.NewProductRepository(pool)

	if err := seedUsers(ctx, users, pepper); err != nil {
		return errors.Wrap(err, "seed users")
	}
	if err := seedProducts(ctx, products, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	return nil
}

func seedUsers(ctx context.Context, users user.Repository, pepper string) error {
	seeds := []struct {
		u        user.User
		password string
	}{
		{
			u:        user.User{FirstName: "Ada", LastName: "Admin", Login: "admin", Role: user.RoleAdmin},
			password: "admin",
		},
		{
			u:        user.User{FirstName: "Demo", LastName: "Customer", Login: "demo", Role: user.RoleUser},
			password: "demo",
		},
	}

	tokens := auth.NewTokens([]byte(pepper), 30*24*time.Hour)

	for _, s := range seeds {
		stored, err := users.Upsert(ctx, &s.u, hashPassword(s.password, pepper))
		if err != nil {
			return errors.Wrapf(err, "upsert user %s", s.u.Login)
		}
		slog.Info("upserted user",
			slog.String("login", stored.Login),
			slog.String("id", stored.ID.String()),
			slog.String("token", tokens.Issue(stored.ID)),
		)
	}
	return nil
}

func hashPassword(password, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

func seedProducts(ctx context.Context, products *postgres.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var list []productJSON
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(list)))

	for _, p := range list {
		var categoryID *uuid.UUID
		if p.Category != "" {
			id := deterministicID("category:" + p.Category)
			if err := products.UpsertCategory(ctx, id, p.Category); err != nil {
				return errors.Wrapf(err, "upsert category %s", p.Category)
			}
			categoryID = &id
		}

		prod := catalog.Product{
			ID:            deterministicID("product:" + p.Name),
			Name:          p.Name,
			Description:   p.Description,
			Price:         p.Price,
			CategoryID:    categoryID,
			StockQuantity: p.Stock,
		}
		if err := products.Upsert(ctx, &prod); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.Name)
		}

		slog.Info("upserted product", slog.String("id", prod.ID.String()), slog.String("name", prod.Name))
	}
	return nil
}

// deterministicID derives a stable UUID from a seed key so repeated runs
// update the same rows.
func deterministicID(key string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
}
