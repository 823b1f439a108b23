package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"offcampus.org/internal/auth"
	"offcampus.org/internal/migrate"
	"offcampus.org/ops/migrations"
)

func main() {
	log.SetFlags(0)
	var (
		dsn            = flag.String("dsn", os.Getenv("OFFCAMPUS_PG_DSN"), "PostgreSQL DSN")
		migrationsPath = flag.String("migrations", "", "Path to SQL migrations (default: embedded)")
		seedsPath      = flag.String("seeds", "", "Path to SQL seeds (default: embedded)")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or OFFCAMPUS_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status|gc]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	sqlFS := migrations.SQL()
	seedFS := migrations.Seeds()
	if *migrationsPath != "" {
		sqlFS = os.DirFS(*migrationsPath)
	}
	if *seedsPath != "" {
		seedFS = os.DirFS(*seedsPath)
	}

	mgr := migrate.NewManager(db, sqlFS, seedFS)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	case "gc":
		// Clear expired refresh-token rows. Validation deletes them lazily,
		// so this only reclaims rows whose tokens were never presented again.
		var n int64
		n, err = auth.NewPGTokenStore(db).DeleteExpired(ctx, time.Now().UTC())
		if err == nil {
			fmt.Printf("deleted %d expired refresh tokens\n", n)
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}
