package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pawkeeper/mobilesession/internal/config"
	"github.com/pawkeeper/mobilesession/internal/logging"
	"github.com/pawkeeper/mobilesession/internal/metrics"
	"github.com/pawkeeper/mobilesession/internal/providers"
	"github.com/pawkeeper/mobilesession/internal/session"
	"github.com/pawkeeper/mobilesession/internal/storage"

	_ "modernc.org/sqlite"
)

type App struct {
	config  *config.Config
	orch    *session.Orchestrator
	cognito *providers.Cognito
	db      *sql.DB
	kv      storage.KV
	log     logging.Logger
	reader  *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	db, kv, err := storage.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, err
	}

	cognito, err := providers.NewCognito(ctx, providers.CognitoOptions{
		Region:   c.AWSRegion,
		ClientID: c.CognitoClientID,
	}, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	firebase := providers.NewFirebase(providers.FirebaseOptions{APIKey: c.FirebaseAPIKey}, logger)
	identities := []providers.Identity{cognito, firebase}

	gate := providers.NewProfileClient(c.ProfileServiceURL, nil, logger)
	tokens := session.NewEncryptedTokenStore(kv, []byte(c.DeviceSecret), logger)
	met := metrics.NewCollector(prometheus.NewRegistry())

	sched := session.NewScheduler(session.SchedulerTiming{
		RefreshBuffer:      c.RefreshBuffer,
		RefreshInterval:    c.DefaultRefreshInterval,
		MaxRefreshDelay:    c.MaxRefreshDelay,
		ForegroundThrottle: c.ForegroundThrottle,
	}, nil, nil, logger)

	orch := session.NewOrchestrator(session.OrchestratorOptions{
		Store:                 session.NewStore(nil),
		Recoverer:             session.NewRecoverer(identities, gate, tokens, kv, logger, met),
		Scheduler:             sched,
		TokenStore:            tokens,
		KV:                    kv,
		Identities:            identities,
		Logger:                logger,
		Metrics:               met,
		DisableLegacyFallback: c.DisableLegacyFallback,
	})

	return &App{
		config:  c,
		orch:    orch,
		cognito: cognito,
		db:      db,
		kv:      kv,
		log:     logger,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isSignedIn() bool {
	return a.orch.State().Status == session.StatusAuthenticated
}

func (a *App) getStatus() string {
	st := a.orch.State()
	if st.User != nil {
		return "(" + st.User.Email + ")"
	}
	return "(" + string(st.Status) + ")"
}

// Run recovers the persisted session and hands control to the REPL.
func (a *App) Run(ctx context.Context) {
	defer a.db.Close()

	if err := a.orch.Initialize(ctx); err != nil {
		printlnFn("Session recovery failed:", err.Error())
	}

	printlnFn("Welcome to sessionctl (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
