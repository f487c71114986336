package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"threadpulse/internal/config"
	"threadpulse/internal/middleware"

	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaObject is a table or index the service relies on.
type SchemaObject struct {
	Kind    string // "table" or "index"
	Table   string
	Name    string
	Purpose string
	// SQLOnly objects are created by the SQL migrations but not by AutoMigrate.
	SQLOnly bool
	Present bool
}

func (o SchemaObject) String() string {
	if o.Kind == "table" {
		return "table " + o.Name
	}
	return fmt.Sprintf("index %s on %s", o.Name, o.Table)
}

// schemaObjects lists what the store, sync engine and insights refresher
// depend on.
var schemaObjects = []SchemaObject{
	{Kind: "table", Table: "users", Name: "users", Purpose: "dashboard users and Threads credentials"},
	{Kind: "table", Table: "posts", Name: "posts", Purpose: "synced posts and metrics"},
	{Kind: "index", Table: "users", Name: "idx_users_threads_user_id", Purpose: "one dashboard user per Threads account"},
	{Kind: "index", Table: "posts", Name: "idx_posts_threads_post_id", Purpose: "upsert key for synced posts"},
	{Kind: "index", Table: "posts", Name: "idx_posts_refresh_candidates", Purpose: "insights refresh candidate scan", SQLOnly: true},
}

type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
	Objects            []SchemaObject
}

// MissingObjects returns the required objects that are absent. SQL-only
// indexes are required only when SQL migrations run.
func (s *SchemaStatus) MissingObjects() []SchemaObject {
	var missing []SchemaObject
	for _, o := range s.Objects {
		if o.Present || (o.SQLOnly && !s.WillRunSQL) {
			continue
		}
		missing = append(missing, o)
	}
	return missing
}

func isProdLikeEnv(env string) bool {
	e := strings.ToLower(strings.TrimSpace(env))
	return e == "production" || e == "prod" || e == "staging" || e == "stage"
}

func normalizedSchemaMode(cfg *config.Config) string {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		return SchemaModeHybrid
	}
	return mode
}

func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	mode := normalizedSchemaMode(cfg)
	prodLike := isProdLikeEnv(cfg.Env)

	switch mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return false, false, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return false, true, nil
	case SchemaModeHybrid:
		return true, !prodLike, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// inspectSchema reports which of the service's tables and indexes exist.
func inspectSchema(db *gorm.DB) []SchemaObject {
	migrator := db.Migrator()
	out := make([]SchemaObject, len(schemaObjects))
	for i, o := range schemaObjects {
		switch o.Kind {
		case "table":
			o.Present = migrator.HasTable(o.Name)
		default:
			o.Present = migrator.HasTable(o.Table) && migrator.HasIndex(o.Table, o.Name)
		}
		out[i] = o
	}
	return out
}

// ApplySchema brings the schema up according to DB_SCHEMA_MODE and refuses
// to start when an object the service relies on is still missing.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if runAuto {
		mode := normalizedSchemaMode(cfg)
		if mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
			middleware.Logger.Warn("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true set for DB_SCHEMA_MODE=auto; review schema diffs before production deployment")
		}
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", mode), slog.String("env", cfg.Env))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	status := &SchemaStatus{WillRunSQL: runSQL, Objects: inspectSchema(db.WithContext(ctx))}
	return schemaError(status.MissingObjects())
}

func schemaError(missing []SchemaObject) error {
	if len(missing) == 0 {
		return nil
	}
	parts := make([]string, 0, len(missing))
	for _, o := range missing {
		parts = append(parts, fmt.Sprintf("%s (%s)", o, o.Purpose))
	}
	return fmt.Errorf("schema incomplete, missing %s", strings.Join(parts, "; "))
}

// GetSchemaStatus reports the schema policy, migration progress and which
// required objects exist, without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               normalizedSchemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
		Objects:            inspectSchema(db.WithContext(ctx)),
	}

	if !runSQL {
		return status, nil
	}

	states, err := MigrationStates(ctx, db)
	if err != nil {
		return nil, err
	}
	for _, st := range states {
		if st.Applied {
			status.AppliedVersions = append(status.AppliedVersions, st.Version)
		} else {
			status.PendingMigrations = append(status.PendingMigrations, st.Migration)
		}
	}

	return status, nil
}
