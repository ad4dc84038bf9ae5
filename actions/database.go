package actions

import (
	"context"

	"github.com/juju/errors"

	"webup/stackup/docker"
	"webup/stackup/domain"
	"webup/stackup/helpers"
)

// AskFunc asks a yes/no question, prompter.YN fits.
type AskFunc func(question string, defaultAnswer bool) bool

// DatabaseSetup prepares the event store and the application schema.
type DatabaseSetup struct {
	Compose     docker.Compose
	Services    domain.ServiceNames
	Interactive bool
	Ask         AskFunc
	Console     *helpers.Console
}

// Run bootstraps the event store, applies the schema upgrade and offers to
// create the first user.
func (d DatabaseSetup) Run(ctx context.Context) error {
	d.Console.Step("Setting up database")

	steps := []docker.RunOptions{
		{Service: d.Services.Snuba, Remove: true, Args: []string{"bootstrap", "--no-migrate", "--force"}},
		{Service: d.Services.Snuba, Remove: true, Args: []string{"migrations", "migrate", "--force"}},
		{Service: d.Services.Web, Remove: true, Args: []string{"upgrade", "--noinput"}},
	}
	for _, step := range steps {
		if err := d.Compose.Run(ctx, step); err != nil {
			return errors.Annotatef(err, "database setup failed on %s", step.Service)
		}
	}

	createUser := docker.RunOptions{Service: d.Services.Web, Remove: true, Args: []string{"createuser"}}
	if !d.Interactive || d.Ask == nil {
		d.Console.Println("")
		d.Console.Println("Did not prompt for user creation. Run the following command to create one yourself (recommended):")
		d.Console.Println("")
		d.Console.Printf("  %s\n", d.Compose.RunCommandLine(createUser))
		d.Console.Println("")
		return nil
	}
	if !d.Ask("Would you like to create a user account now?", true) {
		return nil
	}
	return errors.Annotate(d.Compose.Run(ctx, createUser), "user creation failed")
}
