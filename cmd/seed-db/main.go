// Command seed-db migrates the database, loads the development catalog and
// optionally mints a bearer token for local testing.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sambamart/storefront/db"
	"github.com/sambamart/storefront/internal/auth"
	domainauth "github.com/sambamart/storefront/internal/domain/auth"
	"github.com/sambamart/storefront/internal/repository"
	"github.com/sambamart/storefront/internal/seed"
)

type options struct {
	databaseURL string
	catalogFile string
	skipSeed    bool

	tokenSubject string
	tokenEmail   string
	tokenName    string
	tokenTTL     time.Duration
	secret       string
	issuer       string
	audience     string
}

func main() {
	_ = godotenv.Load()

	var o options
	flag.StringVar(&o.databaseURL, "database-url", "", "PostgreSQL connection URL (or MART_DATABASE_URL / DATABASE_URL env)")
	flag.StringVar(&o.catalogFile, "catalog", "", "catalog JSON or JSON.gz file; empty uses the built-in catalog")
	flag.BoolVar(&o.skipSeed, "skip-seed", false, "only migrate, do not load the catalog")
	flag.StringVar(&o.tokenSubject, "issue-token", "", "print a bearer token for this subject id")
	flag.StringVar(&o.tokenEmail, "token-email", "", "email claim of the issued token")
	flag.StringVar(&o.tokenName, "token-name", "", "name claim of the issued token")
	flag.DurationVar(&o.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the issued token")
	flag.StringVar(&o.secret, "secret", "", "token signing secret (or MART_AUTH_SECRET env)")
	flag.StringVar(&o.issuer, "issuer", "", "token issuer (or MART_AUTH_ISSUER env)")
	flag.StringVar(&o.audience, "audience", "", "token audience (or MART_AUTH_AUDIENCE env)")
	flag.Parse()

	o.databaseURL = firstNonEmpty(o.databaseURL, os.Getenv("MART_DATABASE_URL"), os.Getenv("DATABASE_URL"))
	o.secret = firstNonEmpty(o.secret, os.Getenv("MART_AUTH_SECRET"))
	o.issuer = firstNonEmpty(o.issuer, os.Getenv("MART_AUTH_ISSUER"))
	o.audience = firstNonEmpty(o.audience, os.Getenv("MART_AUTH_AUDIENCE"))

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, lg, o); err != nil {
		lg.Error("Failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *zap.Logger, o options) error {
	if o.databaseURL == "" && o.tokenSubject == "" {
		return errors.New("nothing to do: set --database-url or --issue-token")
	}

	if o.databaseURL != "" {
		if err := migrateAndSeed(ctx, lg, o); err != nil {
			return err
		}
	}

	if o.tokenSubject != "" {
		token, err := issueToken(o)
		if err != nil {
			return err
		}
		lg.Info("Issued token", zap.String("sub", o.tokenSubject), zap.Duration("ttl", o.tokenTTL))
		fmt.Println(token)
	}
	return nil
}

func migrateAndSeed(ctx context.Context, lg *zap.Logger, o options) error {
	pool, err := repository.NewPool(ctx, o.databaseURL, nil)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer pool.Close()

	if err := repository.RunMigrations(pool); err != nil {
		return errors.Wrap(err, "migrate")
	}
	lg.Info("Migrations applied")

	if o.skipSeed {
		return nil
	}

	c, err := loadCatalog(o.catalogFile)
	if err != nil {
		return err
	}
	written, err := repository.SeedCatalog(ctx, pool, c)
	if err != nil {
		return errors.Wrap(err, "seed")
	}
	if !written {
		lg.Info("Catalog already present, skipping seed")
		return nil
	}

	var products int
	for _, cat := range c.Categories {
		products += len(cat.Products)
	}
	lg.Info("Catalog seeded",
		zap.Int("categories", len(c.Categories)),
		zap.Int("products", products),
	)
	return nil
}

func loadCatalog(path string) (*seed.Catalog, error) {
	var r io.Reader = bytes.NewReader(db.Seed)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open catalog")
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	c, err := seed.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return c, nil
}

func issueToken(o options) (string, error) {
	if o.secret == "" {
		return "", errors.New("token secret is required: set --secret or MART_AUTH_SECRET")
	}
	j, err := auth.NewJWT(auth.Config{
		Secret:   []byte(o.secret),
		Issuer:   o.issuer,
		Audience: o.audience,
	})
	if err != nil {
		return "", err
	}
	return j.Issue(domainauth.Subject{
		ID:    o.tokenSubject,
		Email: o.tokenEmail,
		Name:  o.tokenName,
	}, o.tokenTTL)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
