package actions

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-version"
	"github.com/juju/errors"

	"webup/stackup/docker"
	"webup/stackup/domain"
	"webup/stackup/helpers"
)

const (
	diagnosticImage = "busybox"
	// hypervisor whose CPU flag reporting can not be trusted
	unreliableCPUModel = "Common KVM processor"
	sse42Flag          = "sse4_2"
)

var versionCore = regexp.MustCompile(`[0-9]+\.[0-9]+\.[0-9]+`)

// Preflight verifies the host before anything is provisioned. It never
// changes any state.
type Preflight struct {
	Engine       docker.Engine
	Compose      docker.Compose
	Requirements domain.Requirements
	Console      *helpers.Console
}

// Check runs every check and returns an ErrPrecondition on the first failure.
func (p Preflight) Check(ctx context.Context) error {
	p.Console.Step("Checking minimum requirements")

	if err := p.checkVersion(ctx, "Docker", p.Engine.ServerVersion, p.Requirements.MinDockerVersion); err != nil {
		return err
	}
	if err := p.checkVersion(ctx, "Docker Compose", p.Compose.Version, p.Requirements.MinComposeVersion); err != nil {
		return err
	}
	if err := p.checkRAM(ctx); err != nil {
		return err
	}
	return p.checkCPU(ctx)
}

func (p Preflight) checkVersion(ctx context.Context, name string, current func(context.Context) (string, error), minimum string) error {
	if minimum == "" {
		return nil
	}
	raw, err := current(ctx)
	if err != nil {
		return domain.Precondition(errors.Annotatef(err, "unable to read the %s version", name))
	}

	// only the X.Y.Z core is compared, "-ce" style suffixes are not pre-releases
	found, err := version.NewVersion(versionCore.FindString(raw))
	if err != nil {
		return domain.Precondition(errors.Annotatef(err, "unexpected %s version %q", name, raw))
	}
	required, err := version.NewVersion(minimum)
	if err != nil {
		return errors.Annotatef(err, "invalid minimum %s version %q", name, minimum)
	}
	if found.LessThan(required) {
		return domain.Precondition(errors.Errorf("expected minimum %s version to be %s but found %s", name, minimum, raw))
	}
	p.Console.Printf("%s %s OK.\n", name, raw)
	return nil
}

func (p Preflight) checkRAM(ctx context.Context) error {
	if p.Requirements.MinRAMMB <= 0 {
		return nil
	}
	result, err := p.Engine.Run(ctx, diagnosticImage, nil, "free", "-m")
	if err != nil {
		return domain.Precondition(errors.Annotate(err, "unable to measure the memory available to Docker"))
	}
	ram, err := parseTotalRAM(result.Stdout)
	if err != nil {
		return domain.Precondition(err)
	}
	if ram < p.Requirements.MinRAMMB {
		return domain.Precondition(errors.Errorf("expected minimum RAM available to Docker to be %d MB (%s) but found %d MB (%s)",
			p.Requirements.MinRAMMB, megabytes(p.Requirements.MinRAMMB), ram, megabytes(ram)))
	}
	p.Console.Printf("RAM available to Docker: %s OK.\n", megabytes(ram))
	return nil
}

func (p Preflight) checkCPU(ctx context.Context) error {
	if !p.Requirements.RequireSSE42 {
		return nil
	}
	unreliable, err := p.grepCPUInfo(ctx, unreliableCPUModel)
	if err != nil {
		return domain.Precondition(errors.Annotate(err, "unable to read the CPU model"))
	}
	if unreliable > 0 {
		p.Console.Printf("Virtualized CPU detected, skipping the SSE 4.2 check.\n")
		return nil
	}
	supported, err := p.grepCPUInfo(ctx, sse42Flag)
	if err != nil {
		return domain.Precondition(errors.Annotate(err, "unable to read the CPU flags"))
	}
	if supported == 0 {
		return domain.Precondition(errors.New("the CPU your machine is running on does not support the SSE 4.2 instruction set, " +
			"which is required for one of the services (ClickHouse)"))
	}
	p.Console.Printf("CPU supports SSE 4.2 OK.\n")
	return nil
}

// grepCPUInfo counts the /proc/cpuinfo lines containing pattern.
func (p Preflight) grepCPUInfo(ctx context.Context, pattern string) (int, error) {
	result, err := p.Engine.Run(ctx, diagnosticImage, nil, "grep", "-c", pattern, "/proc/cpuinfo")
	// grep exits with 1 when nothing matched, its count is still valid
	if err != nil && !domain.IsExitCode(err, 1) {
		return 0, errors.Trace(err)
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(result.Stdout))
	if convErr != nil {
		return 0, errors.Annotatef(convErr, "unexpected grep output %q", result.Stdout)
	}
	return n, nil
}

// parseTotalRAM reads the total column of the "Mem:" row of 'free -m'.
func parseTotalRAM(output string) (int, error) {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "Mem:" {
			continue
		}
		ram, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, errors.Annotatef(err, "unexpected memory figure %q", fields[1])
		}
		return ram, nil
	}
	return 0, errors.Errorf("no memory figure in %q", output)
}

func megabytes(mb int) string {
	return humanize.IBytes(uint64(mb) * humanize.MiByte)
}
