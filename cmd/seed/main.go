package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"cabinet/internal/audit"
	"cabinet/internal/config"
	"cabinet/internal/repository/postgres"
	"cabinet/internal/seed"
	authSvc "cabinet/internal/service/auth"
	"cabinet/internal/service/hierarchy"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed entries (for use with shell scripts)")
	clearData := flag.Bool("clear-data", false, "Clear the owner's folders and files (keep schema)")
	ownerFlag := flag.String("owner", "", "Owner id (UUID) to seed or clear")
	fixtureName := flag.String("fixture", "basic", "Name of the embedded fixture to seed")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *clearData {
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	// Exit early if schema-only mode
	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	// Everything past this point works on one owner's hierarchy
	ownerID, err := resolveOwnerID(*ownerFlag, cfg)
	if err != nil {
		log.Fatalf("Failed to resolve owner: %v", err)
	}

	// Exit early if clear-data mode (just clear and exit)
	if *clearData {
		log.Printf("🧹 Clearing folders and files for owner %s...", ownerID)
		if err := clearOwnerData(ctx, pool, tables, ownerID); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	folderRepo := postgres.NewFolderRepository(repoConfig)
	fileRepo := postgres.NewFileRepository(repoConfig)
	closureRepo := postgres.NewClosureRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Create services. Seeding skips audit emission.
	validator := hierarchy.NewResourceValidator(folderRepo)
	authorizer := authSvc.NewOwnerBasedAuthorizer(folderRepo, fileRepo)
	folderService := hierarchy.NewFolderService(
		folderRepo, fileRepo, closureRepo, txManager,
		validator, authorizer, audit.NopRecorder{}, cfg.MaxSubtreeSize, logger,
	)
	fileService := hierarchy.NewFileService(
		fileRepo, folderRepo, txManager,
		validator, authorizer, audit.NopRecorder{}, logger,
	)

	// Clear existing data so the fixture lands in an empty hierarchy
	log.Printf("⚠️  Clearing existing folders and files for owner %s...", ownerID)
	if err := clearOwnerData(ctx, pool, tables, ownerID); err != nil {
		log.Printf("Warning: Could not clear data: %v", err)
	}

	// Load and apply the fixture
	fixture, err := seed.Load(*fixtureName)
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}
	folderCount, fileCount := fixture.Count()
	log.Printf("📝 Seeding fixture %q (%d folders, %d files)...", *fixtureName, folderCount, fileCount)

	seeder := seed.NewSeeder(folderService, fileService, logger)
	if err := seeder.Apply(ctx, ownerID, fixture); err != nil {
		log.Fatalf("Failed to seed fixture: %v", err)
	}

	// Verify what we just wrote
	log.Println("🔎 Verifying hierarchy invariants...")
	checker := hierarchy.NewIntegrityChecker(folderRepo, fileRepo, closureRepo, logger)
	if err := checker.Check(ctx, ownerID); err != nil {
		log.Fatalf("Seeded hierarchy failed verification: %v", err)
	}
	log.Println("✅ Hierarchy invariants hold")

	// Show what the owner's drive looks like now
	treeService := hierarchy.NewTreeService(folderRepo, fileRepo, closureRepo, authorizer, logger)
	tree, err := treeService.GetTree(ctx, ownerID)
	if err != nil {
		log.Fatalf("Failed to read back seeded tree: %v", err)
	}
	log.Printf("🌳 Seeded hierarchy for %s:\n%s", ownerID, hierarchy.RenderTree(tree))

	log.Println("🎉 Seeding complete!")
}

// resolveOwnerID picks the owner from --owner, falling back to DEV_OWNER_ID
func resolveOwnerID(flagValue string, cfg *config.Config) (uuid.UUID, error) {
	raw := flagValue
	if raw == "" {
		raw = cfg.DevOwnerID
	}
	if raw == "" {
		return uuid.Nil, fmt.Errorf("pass --owner or set DEV_OWNER_ID")
	}
	return uuid.Parse(raw)
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.Files,
		tables.FolderClosure,
		tables.Folders,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}

// clearOwnerData removes every folder, file and closure row for an owner.
// Closure rows go with the folders via ON DELETE CASCADE.
func clearOwnerData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, ownerID uuid.UUID) error {
	// Delete files first; folder deletion would only null their folder_id
	_, err := pool.Exec(ctx, "DELETE FROM "+tables.Files+" WHERE owner_id = $1", ownerID)
	if err != nil {
		return err
	}

	// Delete folders (cascades to closure rows)
	_, err = pool.Exec(ctx, "DELETE FROM "+tables.Folders+" WHERE owner_id = $1", ownerID)
	if err != nil {
		return err
	}

	return nil
}
