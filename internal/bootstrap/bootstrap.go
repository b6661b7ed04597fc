package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/riveredge/riveredge/internal/core/config"
	"github.com/riveredge/riveredge/internal/core/logic"
	"github.com/riveredge/riveredge/internal/core/registry"
	"github.com/riveredge/riveredge/internal/core/router"
	"github.com/riveredge/riveredge/pkg/http"
	"github.com/riveredge/riveredge/pkg/log"
	"github.com/riveredge/riveredge/pkg/safe"
)

// App bundles everything the server process runs: the HTTP router, the
// manifest registry and the background schedules.
type App struct {
	Router   *router.Router
	Registry *registry.Registry
	Cron     *cron.Cron
	AppConf  *config.AppConfig
}

// InitAppFunc is the Wire-built application constructor.
type InitAppFunc func(configPath string) (*App, func(), error)

// NewApp assembles the App and registers the background jobs: approval task
// expiry on the configured schedule, completion webhook delivery, and the
// tenant plan-expiry sweep.
func NewApp(rt *router.Router, reg *registry.Registry, tenantLogic *logic.TenantLogic,
	approvalLogic *logic.ApprovalLogic, appConf *config.AppConfig) (*App, func(), error) {
	c := cron.New()

	if _, err := c.AddFunc(appConf.Approval.ExpireCron, func() {
		safe.Do(approvalLogic.SweepExpiredTasks)
	}); err != nil {
		return nil, nil, err
	}
	if _, err := c.AddFunc("@every 1m", func() {
		safe.Do(func() { approvalLogic.SendCompletions(context.Background()) })
	}); err != nil {
		return nil, nil, err
	}
	if _, err := c.AddFunc("@every 1h", func() {
		safe.Do(tenantLogic.SweepExpired)
	}); err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		ctx := c.Stop()
		<-ctx.Done()
		log.Info("background schedules stopped")
	}

	app := &App{
		Router:   rt,
		Registry: reg,
		Cron:     c,
		AppConf:  appConf,
	}
	return app, cleanup, nil
}

// Bootstrap loads configuration, initializes logging and builds the App.
func Bootstrap(configFile string, initApp InitAppFunc) (*App, func(), error) {
	appConf := config.NewConf(configFile)
	log.MustInit(&appConf.Log)

	return initApp(configFile)
}

// Run scans application manifests, starts the schedules and the HTTP
// server, then blocks until a termination signal arrives.
func Run(app *App, cleanup func()) {
	manifests, err := app.Registry.Scan()
	if err != nil {
		log.Errorf("manifest scan failed: %v", err)
		cleanup()
		os.Exit(1)
	}
	log.Infof("application registry loaded, %d manifest(s)", len(manifests))

	app.Cron.Start()

	httpClean := http.NewServer(&app.AppConf.Http, app.Router.Router())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-quit
	log.Infof("received signal: %s", sig.String())

	httpClean()
	cleanup()
}
