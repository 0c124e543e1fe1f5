package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"codebench/internal/config"
	models "codebench/internal/domain/models/filetree"
	"codebench/internal/repository/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	projectID := flag.String("project", "", "Project ID to seed (default: a fresh UUID)")
	userID := flag.String("user", "dev-user", "User granted workspace membership")
	clearData := flag.Bool("clear-data", false, "Clear the project's nodes before seeding")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: never run destructive operations against production
	if cfg.Environment == "prod" && *clearData {
		log.Fatalf("BLOCKED: cannot run --clear-data in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if cfg.TablePrefix == "" {
		if err := postgres.Migrate(cfg.DatabaseURL, logger); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
	}
	nodeStore := postgres.NewNodeStore(repoConfig)
	memberStore := postgres.NewMembershipStore(repoConfig)

	project := *projectID
	if project == "" {
		project = uuid.NewString()
	}

	if *clearData {
		log.Printf("Clearing nodes for project %s", project)
		if err := clearProjectNodes(ctx, pool, tables, project); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
	}

	log.Printf("Seeding project %s for user %s (environment: %s, prefix: %q)",
		project, *userID, cfg.Environment, cfg.TablePrefix)

	if err := memberStore.AddMember(ctx, project, *userID, "member"); err != nil {
		log.Fatalf("Failed to add membership: %v", err)
	}

	now := time.Now()
	newNode := func(parent *models.Node, name string, nodeType models.NodeType, content string) *models.Node {
		var parentID *string
		path := name
		if parent != nil {
			parentID = &parent.ID
			path = parent.Path + "/" + name
		}
		n := &models.Node{
			ID:        uuid.NewString(),
			ProjectID: project,
			ParentID:  parentID,
			Name:      name,
			Type:      nodeType,
			Path:      path,
			CreatedBy: *userID,
			UpdatedBy: *userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if content != "" {
			n.Body = models.InlineBody{Text: content}
			n.SizeBytes = int64(len(content))
		}
		return n
	}

	src := newNode(nil, "src", models.NodeTypeFolder, "")
	docs := newNode(nil, "docs", models.NodeTypeFolder, "")
	seedNodes := []*models.Node{
		src,
		docs,
		newNode(nil, "readme.md", models.NodeTypeFile, "# Demo project\n\nSeeded workspace for local development.\n"),
		newNode(src, "main.go", models.NodeTypeFile, "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hello\")\n}\n"),
		newNode(docs, "notes.md", models.NodeTypeFile, "## Notes\n\n- edit me\n"),
	}

	for _, n := range seedNodes {
		if err := nodeStore.Insert(ctx, n); err != nil {
			log.Fatalf("Failed to insert %s: %v", n.Path, err)
		}
		log.Printf("  created %-6s %s", n.Type, n.Path)
	}

	log.Printf("Done. Export this to use the project: PROJECT_ID=%s", project)
}

func clearProjectNodes(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, projectID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE project_id = $1`, tables.Nodes)
	if _, err := pool.Exec(ctx, query, projectID); err != nil {
		return fmt.Errorf("delete nodes: %w", err)
	}
	return nil
}
