package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/orgdesk/orgdesk/internal/config"
	"github.com/orgdesk/orgdesk/internal/db"
	"github.com/orgdesk/orgdesk/internal/feed"
	"github.com/orgdesk/orgdesk/internal/logging"
	"github.com/orgdesk/orgdesk/internal/messaging"
	"github.com/orgdesk/orgdesk/internal/models"
	"github.com/orgdesk/orgdesk/internal/prefs"
)

// app bundles the wired dependencies a command needs: loaded config, open
// database, the store, and (when an acting user is set) a messaging
// session.
type app struct {
	cfg    *config.Config
	db     *db.DB
	store  *db.Store
	logger zerolog.Logger
}

// newApp loads config (flags override file and env), initializes logging,
// and opens the migrated database.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, configFile, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	logger := logging.Component("cli")
	logger.Debug().
		Str("config_file", configFile).
		Interface("config", logging.RedactMap(map[string]interface{}{
			"database": map[string]interface{}{"path": cfg.DatabasePath()},
			"identity": map[string]interface{}{"org_id": cfg.Identity.OrgID, "user_id": cfg.Identity.UserID},
		})).
		Msg("config loaded")

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DatabasePath(), db.WithLogger(logging.Component("db")))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	applied, err := database.MigrateUp(cmd.Context())
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	if applied > 0 {
		logger.Debug().Int("applied", applied).Msg("migrations applied")
	}

	changeFeed := feed.NewMemoryFeed(
		feed.WithBufferSize(cfg.Messaging.SubscribeBuffer),
		feed.WithLogger(logging.Component("feed")),
	)
	store := db.NewStore(database, changeFeed)

	return &app{
		cfg:    cfg,
		db:     database,
		store:  store,
		logger: logger,
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close database")
	}
}

// session builds a messaging session for the configured user, resolving
// the org scope from the explicit override, the user's profile, and the
// saved preference.
func (a *app) session(ctx context.Context) (*messaging.Session, error) {
	userID := a.cfg.Identity.UserID
	if userID == "" {
		return nil, fmt.Errorf("no acting user: set --user or identity.user_id")
	}

	orgID := a.cfg.Identity.OrgID
	if orgID == "" {
		// Profile lookup is best effort; a user without a profile row
		// still resolves through the preference chain.
		profile, err := a.store.ProfileByID(ctx, userID)
		if err != nil {
			profile = nil
		}
		prefStore, err := prefs.NewStore("")
		if err != nil {
			return nil, err
		}
		orgID = messaging.ResolveOrgID(profile, prefStore)
	}

	return messaging.NewSession(messaging.SessionConfig{
		Store:    a.store,
		OrgID:    orgID,
		UserID:   userID,
		SelfType: models.MemberType(a.cfg.Identity.UserType),
		PageSize: a.cfg.Messaging.PageSize,
		Logger:   logging.Component("messaging").With().Str("org_id", orgID).Str("user_id", userID).Logger(),
	})
}

func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	loader := config.NewLoader()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loader.SetConfigFile(path)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, "", err
	}

	// CLI flags take highest precedence.
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.Database.Path = v
	}
	if v, _ := cmd.Flags().GetString("org"); v != "" {
		cfg.Identity.OrgID = v
	}
	if v, _ := cmd.Flags().GetString("user"); v != "" {
		cfg.Identity.UserID = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Logging.Format = v
	} else if !cmd.Flags().Changed("log-format") && !term.IsTerminal(int(os.Stderr.Fd())) && cfg.Logging.Format == "console" {
		// Piped stderr gets machine-readable logs unless asked otherwise.
		cfg.Logging.Format = "json"
	}

	return cfg, loader.ConfigFileUsed(), nil
}
