// Command seed-db applies the schema and loads a demo catalog and customer,
// useful for local development and the integration test suite.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/smart-billing/internal/domain/customer"
	"github.com/xenking/smart-billing/internal/domain/product"
	"github.com/xenking/smart-billing/internal/repository"
)

type productJSON struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "optional path to a products JSON file")
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

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCustomer(ctx, repository.NewCustomerRepository(pool)); err != nil {
		return errors.Wrap(err, "seed customer")
	}

	return nil
}

// defaultCatalog is inserted when no products file is given.
var defaultCatalog = []productJSON{
	{Name: "Waffle with Berries", Price: decimal.RequireFromString("6.50"), Quantity: 30},
	{Name: "Vanilla Bean Creme Brulee", Price: decimal.RequireFromString("7.00"), Quantity: 25},
	{Name: "Macaron Mix of Five", Price: decimal.RequireFromString("8.00"), Quantity: 40},
	{Name: "Classic Tiramisu", Price: decimal.RequireFromString("5.50"), Quantity: 20},
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, productsFile string) error {
	items := defaultCatalog
	if productsFile != "" {
		slog.Info("reading products file", slog.String("path", productsFile))

		data, err := os.ReadFile(productsFile)
		if err != nil {
			return errors.Wrap(err, "read products file")
		}
		if err := json.Unmarshal(data, &items); err != nil {
			return errors.Wrap(err, "parse products JSON")
		}
	}

	slog.Info("inserting products", slog.Int("count", len(items)))

	for _, item := range items {
		p := &product.Product{
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
		}
		if err := repo.Create(ctx, p); err != nil {
			return errors.Wrapf(err, "insert product %s", item.Name)
		}

		slog.Info("inserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCustomer(ctx context.Context, repo *repository.CustomerRepository) error {
	slog.Info("seeding demo customer")

	c := &customer.Customer{
		Name:  "Demo Customer",
		Phone: "123-456-7890",
		Email: "demo@smartbilling.example",
	}
	if err := repo.Create(ctx, c); err != nil {
		if errors.Is(err, customer.ErrDuplicateEmail) {
			slog.Info("demo customer already exists")
			return nil
		}
		return errors.Wrap(err, "insert demo customer")
	}

	slog.Info("inserted demo customer", slog.String("id", c.ID), slog.String("email", c.Email))

	return nil
}
