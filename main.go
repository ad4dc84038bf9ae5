package main

import (
	"context"
	"crypto/rand"
	"os"

	"github.com/Songmu/prompter"
	"github.com/fatih/color"
	"github.com/jawher/mow.cli"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"

	"webup/stackup/actions"
	"webup/stackup/config"
	"webup/stackup/docker"
	"webup/stackup/domain"
	"webup/stackup/helpers"
	"webup/stackup/session"
)

func main() {

	app := cli.App("stackup", "Install or upgrade the self-hosted stack in the current directory")

	app.Version("v version", "Stackup 1 (build 1)")

	image := app.String(cli.StringOpt{
		Name:   "image",
		Desc:   "Full reference of the application image",
		EnvVar: "SENTRY_IMAGE",
	})
	versionTag := app.String(cli.StringOpt{
		Name:   "version-tag",
		Desc:   "Tag of the application image, ignored when --image is set",
		EnvVar: "SENTRY_VERSION",
	})
	skipUserPrompt := app.Bool(cli.BoolOpt{
		Name:   "no-user-prompt",
		Value:  false,
		Desc:   "Do not prompt for the creation of a user",
		EnvVar: "SKIP_USER_PROMPT",
	})
	configFile := app.String(cli.StringOpt{
		Name:   "config",
		Value:  config.DefaultFilename,
		Desc:   "Installer config file",
		EnvVar: "STACKUP_CONFIG",
	})
	logLevel := app.String(cli.StringOpt{
		Name:   "log-level",
		Value:  "info",
		Desc:   "Log level (debug, info, warn, error)",
		EnvVar: "STACKUP_LOG_LEVEL",
	})
	composeFile := app.String(cli.StringOpt{
		Name:   "compose-file",
		Desc:   "Docker Compose file of the stack",
		EnvVar: "COMPOSE_FILE",
	})

	app.Action = func() {
		logger := newLogger(*logLevel)
		console := helpers.NewConsole(nil)

		cfg, err := config.Load(*configFile)
		if err != nil {
			console.Fail("%s", err)
			cli.Exit(actions.ExitFailure)
		}
		config.Overrides{
			Image:          *image,
			VersionTag:     *versionTag,
			SkipUserPrompt: *skipUserPrompt,
			ComposeFile:    *composeFile,
		}.Apply(&cfg)
		if err := config.Check(cfg); err != nil {
			console.Fail("%s", err)
			cli.Exit(actions.ExitPrecondition)
		}

		executor := domain.NewShellExecutor(logger)
		compose := docker.Compose{
			Exec: executor,
			File: cfg.ComposeFile,
			Env:  []string{"SENTRY_IMAGE=" + cfg.ApplicationImage},
		}
		engine := docker.Engine{Exec: executor}

		installer := actions.Installer{
			Config:  cfg,
			Compose: compose,
			Engine:  engine,
			Console: console,
			Logger:  logger,
			Clock:   clock.WallClock,
			Random:  rand.Reader,
			Ask:     prompter.YN,
		}
		sess := session.New(compose.Stop, color.Output, logger)

		cli.Exit(actions.InstallActionHandler(context.Background(), installer, sess))
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Debug(errors.ErrorStack(err))
		cli.Exit(actions.ExitFailure)
	}
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithField("level", level).Warn("unknown log level, using info")
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}
