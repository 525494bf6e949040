package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	vouch "github.com/codeReaper0/go-vouch"
	"github.com/codeReaper0/go-vouch/cmd/server/config"
)

type App struct {
	config *config.Config
	bunDB  *bun.DB
	auther vouch.Authenticator
	repo   vouch.RepositoryManager
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Debug),
		glog.WithName("vouch"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		lgr.Error("config load failed", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		lgr.Error("config validation failed", "error", err)
		os.Exit(1)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		lgr.Error("persistence setup failed", "error", err)
		os.Exit(1)
	}

	if err := WithAuth(ctx, app); err != nil {
		lgr.Error("auth setup failed", "error", err)
		os.Exit(1)
	}

	if err := BootstrapSuperAdmin(ctx, app); err != nil {
		lgr.Error("super admin bootstrap failed", "error", err)
		os.Exit(1)
	}

	WithHTTPServer(ctx, app)

	app.srv.Serve(cfg.Server.Address)

	sig := WaitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())

	if err := app.bunDB.Close(); err != nil {
		lgr.Error("database close failed", "error", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	sqlDB, err := sql.Open(sqliteshim.ShimName, app.config.Database.DSN)
	if err != nil {
		return err
	}

	goose.SetBaseFS(vouch.GetMigrationsFS())
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, sqlDB, vouch.MigrationsDir); err != nil {
		return err
	}

	app.bunDB = bun.NewDB(sqlDB, sqlitedialect.New())

	repo := vouch.NewRepositoryManager(app.bunDB)
	if err := repo.Validate(); err != nil {
		return err
	}
	app.repo = repo

	return nil
}

func WithAuth(ctx context.Context, app *App) error {
	provider := vouch.NewUserProvider(app.repo.Users())
	provider.WithLogger(app.GetLogger("auth:prv"))

	auther := vouch.NewAuthenticator(provider, app.config)
	auther.WithLogger(app.GetLogger("auth:authn"))

	app.auther = auther

	return nil
}

// BootstrapSuperAdmin creates the configured super admin account on first
// boot. An existing account with the same email is left untouched.
func BootstrapSuperAdmin(ctx context.Context, app *App) error {
	email := app.config.Bootstrap.SuperAdminEmail
	password := app.config.Bootstrap.SuperAdminPassword

	if email == "" || password == "" {
		app.GetLogger("bootstrap").Debug("no super admin configured, skipping bootstrap")
		return nil
	}

	registrar := vouch.NewRegisterUserHandler(app.repo)
	registrar.WithLogger(app.GetLogger("bootstrap"))

	_, err := registrar.Execute(ctx, vouch.RegisterUserMessage{
		FirstName:  "Super",
		LastName:   "Admin",
		Email:      email,
		Password:   password,
		SuperAdmin: true,
	})
	if err != nil {
		if errors.Is(err, vouch.ErrDuplicateEmail) {
			app.GetLogger("bootstrap").Debug("super admin already present", "email", email)
			return nil
		}
		return err
	}

	app.GetLogger("bootstrap").Info("super admin created", "email", email)

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	errorHandler := vouch.MakeAuthErrorHandler(app.GetLogger("auth:http"))

	tokens := app.auther.TokenService()
	protected := vouch.ProtectedRoute(app.config, tokens, errorHandler)
	superadmin := vouch.SuperAdminRoute(app.config, tokens, errorHandler)

	group := srv.Router().Group("/")

	authCtrl := vouch.NewAuthController(app.auther, app.repo).
		WithLogger(app.GetLogger("auth:ctrl"))
	authCtrl.ErrorHandler = errorHandler
	authCtrl.RegisterRoutes(group, protected, superadmin)

	tstCtrl := vouch.NewTestimonialsController(app.repo.Testimonials(), app.config).
		WithLogger(app.GetLogger("testimonials:ctrl"))
	tstCtrl.ErrorHandler = errorHandler
	tstCtrl.RegisterRoutes(group, protected, superadmin)

	app.srv = srv
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
