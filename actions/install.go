package actions

import (
	"context"
	"io"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"

	"webup/stackup/docker"
	"webup/stackup/domain"
	"webup/stackup/helpers"
	"webup/stackup/session"
	"webup/stackup/tasks"
)

// Exit statuses of the install command.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitPrecondition = 2
	ExitInterrupted  = 130
)

// Installer takes a checkout of the stack to a runnable installation.
type Installer struct {
	Config  domain.Config
	Compose docker.Compose
	Engine  docker.Engine
	Console *helpers.Console
	Logger  logrus.FieldLogger
	Clock   clock.Clock
	Random  io.Reader
	Ask     AskFunc
}

// Run executes every stage in order and stops at the first failure. Preflight
// failures are tagged ErrPrecondition, later ones ErrProvisioning.
func (i Installer) Run(ctx context.Context) error {
	cfg := i.Config

	preflight := Preflight{
		Engine:       i.Engine,
		Compose:      i.Compose,
		Requirements: cfg.Requirements,
		Console:      i.Console,
	}
	if err := preflight.Check(ctx); err != nil {
		return i.stop(ctx, err)
	}

	if err := EnsureConfigFiles(i.Console, cfg.ConfigFiles, cfg.Secret, i.Random); err != nil {
		return i.fail(ctx, errors.Annotate(err, "unable to prepare config files"))
	}

	i.Console.Step("Creating volumes for persistent storage")
	report, err := EnsureVolumes(ctx, i.Engine, cfg.Volumes)
	if err != nil {
		return i.fail(ctx, err)
	}
	PrintVolumeReport(i.Console, cfg.Volumes, report)

	images := ImagePipeline{Compose: i.Compose, Engine: i.Engine, Console: i.Console, Logger: i.Logger}
	if err := images.SyncImages(ctx, cfg.ApplicationImage, cfg.Images); err != nil {
		return i.fail(ctx, err)
	}

	if archive, err := SnapshotConfigFiles(cfg.ConfigFiles, cfg.BackupDir, i.Clock.Now()); err != nil {
		i.Console.Warn("unable to save the config files: %s", err)
	} else if archive != "" {
		i.Logger.WithField("archive", archive).Debug("config files saved")
	}

	i.Console.Step("Migrating existing data")
	env := tasks.Environment{Config: cfg, Compose: i.Compose, Engine: i.Engine, Clock: i.Clock}
	runner := tasks.Runner{Console: i.Console, Logger: i.Logger}
	if _, err := runner.RunAll(ctx, tasks.All(env)); err != nil {
		return i.stop(ctx, err)
	}

	database := DatabaseSetup{
		Compose:     i.Compose,
		Services:    cfg.Services,
		Interactive: cfg.Interactive,
		Ask:         i.Ask,
		Console:     i.Console,
	}
	if err := database.Run(ctx); err != nil {
		return i.fail(ctx, err)
	}

	if _, err := EnsureCredentials(ctx, i.Compose, cfg, i.Console); err != nil {
		return i.fail(ctx, err)
	}

	i.Console.Println("")
	i.Console.Println("----------------")
	i.Console.Done("You're all done! Run the following command to get the stack running:")
	i.Console.Println("")
	i.Console.Printf("  %s\n", i.Compose.CommandLine("up", "-d"))
	i.Console.Println("")
	return nil
}

// fail tags err as a provisioning failure unless the run was cancelled.
func (i Installer) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.Trace(ctx.Err())
	}
	return domain.Provisioning(err)
}

// stop returns an already tagged err unless the run was cancelled.
func (i Installer) stop(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.Trace(ctx.Err())
	}
	return err
}

// InstallActionHandler runs the installer inside the session and returns the
// process exit status. The stack is stopped on every path out.
func InstallActionHandler(ctx context.Context, installer Installer, sess *session.Session) int {
	runCtx, release := sess.Watch(ctx)
	err := installer.Run(runCtx)
	// a signal received during the run has finished its cleanup after release
	release()

	if err != nil {
		sess.Cleanup(session.FailureTrigger(err))
	} else {
		sess.Cleanup(session.ExitTrigger())
	}

	if _, trigger := sess.CleanedUp(); trigger.Kind == session.Signal {
		installer.Console.Fail("%s", domain.ErrInterrupted)
		return ExitInterrupted
	}
	if err == nil {
		return ExitOK
	}

	installer.Logger.Debug(errors.ErrorStack(err))
	installer.Console.Fail("%s", err)
	if errors.Is(err, domain.ErrPrecondition) {
		return ExitPrecondition
	}
	return ExitFailure
}
