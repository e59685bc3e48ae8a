// ABOUTME: Maintenance utility that upgrades on-disk weekcal state in place
// ABOUTME: Backs up the sync database, creates missing tables, and moves legacy vault tokens

package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harperreed/weekcal/db"
	"github.com/harperreed/weekcal/vault"
)

type options struct {
	dbPath   string
	vaultDir string
	keyFile  string
	dryRun   bool
	backup   bool
}

func main() {
	dbPath := flag.String("db", db.DefaultPath(), "Path to database file")
	vaultDir := flag.String("vault", filepath.Join(vault.Dir(), "vault"), "Vault store directory")
	keyFile := flag.String("key", filepath.Join(vault.Dir(), "vault.key"), "Vault key file")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Create backup before migration")
	flag.Parse()

	opts := options{
		dbPath:   *dbPath,
		vaultDir: *vaultDir,
		keyFile:  *keyFile,
		dryRun:   *dryRun,
		backup:   *backup,
	}
	if err := migrate(opts); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migration completed successfully")
}

func migrate(opts options) error {
	if err := migrateDatabase(opts); err != nil {
		return err
	}
	return migrateVault(opts)
}

func migrateDatabase(opts options) error {
	if _, err := os.Stat(opts.dbPath); os.IsNotExist(err) {
		log.Printf("No database at %s, it will be created on first run", opts.dbPath)
		return nil
	}

	if opts.backup && !opts.dryRun {
		backupPath := fmt.Sprintf("%s.backup.%s", opts.dbPath, time.Now().Format("20060102-150405"))
		log.Printf("Creating backup: %s", backupPath)

		input, err := os.ReadFile(opts.dbPath)
		if err != nil {
			return fmt.Errorf("failed to read database: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0600); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
		log.Printf("Backup created successfully")
	}

	database, err := sql.Open("sqlite3", opts.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	tables, err := getCurrentTables(database)
	if err != nil {
		return fmt.Errorf("failed to get current tables: %w", err)
	}
	log.Printf("Current tables: %v", tables)

	missing := missingTables(tables)
	if len(missing) == 0 {
		log.Printf("Schema is up to date")
		return nil
	}

	if opts.dryRun {
		log.Printf("[DRY RUN] Would create tables: %v", missing)
		return nil
	}
	if err := db.InitSchema(database); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	log.Printf("Created tables: %v", missing)
	return nil
}

func migrateVault(opts options) error {
	codec := vault.Codec(vault.EncodingCodec{})
	key, err := vault.LoadOrCreateKey(opts.keyFile)
	if err != nil {
		log.Printf("Vault key unavailable (%v), reading tokens as encoded only", err)
	} else {
		codec = vault.NewCodec(key)
	}

	store, err := vault.OpenBadger(opts.vaultDir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	v := vault.New(store, codec)
	if !v.PendingMigration() {
		log.Printf("No legacy vault entry to migrate")
		return nil
	}

	if opts.dryRun {
		log.Printf("[DRY RUN] Would move the legacy account into the account list")
		return nil
	}

	accounts, err := v.Accounts()
	if err != nil {
		return fmt.Errorf("failed to migrate vault: %w", err)
	}
	for _, a := range accounts {
		log.Printf("Migrated account: %s", a.Email)
	}
	return nil
}

func getCurrentTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}

// requiredTables are created by db.InitSchema.
var requiredTables = []string{"notification_log", "sync_state"}

func missingTables(current []string) []string {
	var missing []string
	for _, table := range requiredTables {
		if !slices.Contains(current, table) {
			missing = append(missing, table)
		}
	}
	return missing
}
