package config

// ImageSpec declares a locally built service image.
type ImageSpec struct {
	Service   string `yaml:"service"`
	Build     *bool  `yaml:"build"`
	DependsOn string `yaml:"depends_on"`
}

type SecretSpec struct {
	File        string `yaml:"file"`
	Key         string `yaml:"key"`
	Placeholder string `yaml:"placeholder"`
}

type RequirementsSpec struct {
	MinRAMMB          *int   `yaml:"min_ram_mb"`
	RequireSSE42      *bool  `yaml:"require_sse42"`
	MinDockerVersion  string `yaml:"min_docker_version"`
	MinComposeVersion string `yaml:"min_compose_version"`
}

// Overrides are the values taken from the command line and the environment.
type Overrides struct {
	Image          string
	VersionTag     string
	SkipUserPrompt bool
	ComposeFile    string
}
