package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"

	"webup/stackup/docker"
	"webup/stackup/domain"
	"webup/stackup/helpers"
)

// images built from the local tree carry this suffix and can not be pulled
const localImageSuffix = "-onpremise-local"

// ImageError reports the service whose image could not be prepared.
type ImageError struct {
	Service string
	Err     error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %s: %v", e.Service, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}

// BuildOrder sorts the images so that every image comes after the one it
// depends on, keeping the declared order otherwise.
func BuildOrder(images []domain.ServiceImage) ([]domain.ServiceImage, error) {
	byService := map[string]domain.ServiceImage{}
	for _, image := range images {
		if _, ok := byService[image.Service]; ok {
			return nil, errors.NotValidf("image %s declared twice", image.Service)
		}
		byService[image.Service] = image
	}

	ordered := []domain.ServiceImage{}
	done := map[string]bool{}
	visiting := map[string]bool{}
	var visit func(image domain.ServiceImage) error
	visit = func(image domain.ServiceImage) error {
		if done[image.Service] {
			return nil
		}
		if visiting[image.Service] {
			return errors.NotValidf("image dependency cycle through %s", image.Service)
		}
		visiting[image.Service] = true
		if image.DependsOn != "" {
			dependency, ok := byService[image.DependsOn]
			if !ok {
				return errors.NotValidf("image %s depends on unknown image %s", image.Service, image.DependsOn)
			}
			if err := visit(dependency); err != nil {
				return err
			}
		}
		visiting[image.Service] = false
		done[image.Service] = true
		ordered = append(ordered, image)
		return nil
	}

	for _, image := range images {
		if err := visit(image); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// ImagePipeline brings every service image up to date.
type ImagePipeline struct {
	Compose docker.Compose
	Engine  docker.Engine
	Console *helpers.Console
	Logger  logrus.FieldLogger
}

// SyncImages stops the stack, pulls the registry images and builds the local
// ones in dependency order, always refreshing their base layers.
func (p ImagePipeline) SyncImages(ctx context.Context, applicationImage string, images []domain.ServiceImage) error {
	ordered, err := BuildOrder(images)
	if err != nil {
		return errors.Trace(err)
	}

	p.Console.Step("Fetching and updating Docker images")

	if err := p.Compose.Down(ctx); err != nil {
		if ctx.Err() != nil {
			return errors.Trace(ctx.Err())
		}
		p.Logger.WithError(err).Debug("no stack to bring down")
	}

	result, err := p.Compose.Pull(ctx)
	if ctx.Err() != nil {
		return errors.Trace(ctx.Err())
	}
	if err != nil {
		p.Logger.WithError(err).Debug("some images could not be pulled")
	}
	for _, line := range pullReport(result.Stdout + result.Stderr) {
		p.Console.Println(line)
	}

	// the application image may only exist as a local build
	if applicationImage != "" {
		if err := p.Engine.Pull(ctx, applicationImage); err != nil {
			if ctx.Err() != nil {
				return errors.Trace(ctx.Err())
			}
			p.Console.Warn("unable to pull %s, using the local image", applicationImage)
			p.Logger.WithError(err).Debug("application image pull failed")
		}
	}

	p.Console.Step("Building and tagging Docker images")

	for _, image := range ordered {
		if !image.LocalBuild {
			continue
		}
		if err := p.Compose.Build(ctx, true, image.Service); err != nil {
			return &ImageError{Service: image.Service, Err: err}
		}
	}

	p.Console.Done("Docker images built.")
	return nil
}

// pullReport drops the expected failures about locally built images.
func pullReport(output string) []string {
	lines := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.Contains(line, localImageSuffix) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
