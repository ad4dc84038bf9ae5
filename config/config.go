package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"webup/stackup/domain"
	"webup/stackup/utils"
)

const (
	DefaultFilename = "stackup.yml"

	defaultImage = "getsentry/sentry:latest"
)

// volume keys, in creation order
var volumeKeys = []string{"data", "postgres", "redis", "zookeeper", "kafka", "clickhouse", "symbolicator"}

type parserConfig struct {
	ComposeFile  string            `yaml:"compose_file"`
	Project      string            `yaml:"project"`
	Image        string            `yaml:"image"`
	Containers   map[string]string `yaml:"containers"`
	ConfigFiles  []string          `yaml:"config_files"`
	Secret       SecretSpec        `yaml:"secret"`
	SettingsFile string            `yaml:"settings_file"`
	Volumes      map[string]string `yaml:"volumes"`
	Images       []ImageSpec       `yaml:"images"`
	Credentials  string            `yaml:"credentials"`
	Requirements RequirementsSpec  `yaml:"requirements"`
	BackupDir    string            `yaml:"backup_dir"`
}

// Load reads the installer file. A missing file yields the defaults.
func Load(filename string) (domain.Config, error) {
	var parsed parserConfig

	data, err := os.ReadFile(filename)
	if err != nil && !os.IsNotExist(err) {
		return domain.Config{}, errors.Annotatef(err, "unable to read %s", filename)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return domain.Config{}, errors.Annotatef(err, "unable to parse the config file, check '%s' syntax", filename)
		}
	}

	config := domain.Config{}
	if err := parsed.convertToConfig(&config); err != nil {
		return domain.Config{}, errors.Trace(err)
	}
	return config, nil
}

// Check makes sure the compose file the installer relies on is present.
func Check(config domain.Config) error {
	if _, err := os.Stat(config.ComposeFile); os.IsNotExist(err) {
		return errors.Errorf("unable to find the Docker Compose file '%s' in the current directory", config.ComposeFile)
	}
	return nil
}

// Apply folds the command line and environment values into config.
func (o Overrides) Apply(config *domain.Config) {
	if o.ComposeFile != "" {
		config.ComposeFile = o.ComposeFile
	}
	switch {
	case o.Image != "":
		config.ApplicationImage = o.Image
	case o.VersionTag != "":
		config.ApplicationImage = withTag(config.ApplicationImage, o.VersionTag)
	}
	config.Interactive = !o.SkipUserPrompt
}

// withTag replaces the tag of an image reference, keeping a registry port.
func withTag(image, tag string) string {
	repo := image
	if i := strings.LastIndex(image, ":"); i > strings.LastIndex(image, "/") {
		repo = image[:i]
	}
	return repo + ":" + tag
}

func (parsed parserConfig) convertToConfig(config *domain.Config) error {
	config.ComposeFile = valueOr(parsed.ComposeFile, "docker-compose.yml")
	config.Project = valueOr(parsed.Project, "sentry")
	config.ApplicationImage = valueOr(parsed.Image, defaultImage)
	config.BackupDir = valueOr(parsed.BackupDir, ".stackup_backup")
	config.Interactive = true

	// containers
	services := domain.ServiceNames{
		Web:       "web",
		Snuba:     "snuba-api",
		Zookeeper: "zookeeper",
		Relay:     "relay",
	}
	if name, ok := parsed.Containers["web"]; ok {
		services.Web = name
	}
	if name, ok := parsed.Containers["snuba"]; ok {
		services.Snuba = name
	}
	if name, ok := parsed.Containers["zookeeper"]; ok {
		services.Zookeeper = name
	}
	if name, ok := parsed.Containers["relay"]; ok {
		services.Relay = name
	}
	config.Services = services

	// config files
	targets := parsed.ConfigFiles
	if len(targets) == 0 {
		targets = []string{"sentry/config.yml", "sentry/sentry.conf.py", "symbolicator/config.yml", "relay/config.yml"}
	}
	configFiles := []domain.ConfigFile{}
	for _, target := range targets {
		configFiles = append(configFiles, domain.ConfigFile{Sample: utils.ExamplePath(target), Target: target})
	}
	config.ConfigFiles = configFiles

	// secret
	config.Secret = domain.SecretConfig{
		File:        valueOr(parsed.Secret.File, "sentry/config.yml"),
		Key:         valueOr(parsed.Secret.Key, "system.secret-key"),
		Placeholder: valueOr(parsed.Secret.Placeholder, "!!changeme!!"),
	}

	config.SettingsFile = valueOr(parsed.SettingsFile, "sentry/sentry.conf.py")

	// volumes
	for key := range parsed.Volumes {
		if !contains(volumeKeys, key) {
			return errors.NotValidf("volume %q (expected one of %s)", key, strings.Join(volumeKeys, ", "))
		}
	}
	volumes := []string{}
	for _, key := range volumeKeys {
		name, ok := parsed.Volumes[key]
		if !ok || name == "" {
			name = fmt.Sprintf("%s-%s", config.Project, key)
		}
		volumes = append(volumes, name)
		switch key {
		case "data":
			config.DataVolume = name
		case "postgres":
			config.PostgresVolume = name
		}
	}
	config.Volumes = volumes

	// images
	images := []domain.ServiceImage{}
	if len(parsed.Images) == 0 {
		images = []domain.ServiceImage{
			{Service: services.Web, LocalBuild: true},
			{Service: "sentry-cleanup", LocalBuild: true, DependsOn: services.Web},
			{Service: "snuba-cleanup", LocalBuild: true},
			{Service: "symbolicator-cleanup", LocalBuild: true},
		}
	}
	for _, spec := range parsed.Images {
		if spec.Service == "" {
			return errors.NotValidf("image without a service name")
		}
		build := true
		if spec.Build != nil {
			build = *spec.Build
		}
		images = append(images, domain.ServiceImage{Service: spec.Service, LocalBuild: build, DependsOn: spec.DependsOn})
	}
	config.Images = images

	config.Credentials = valueOr(parsed.Credentials, "relay/credentials.json")

	// requirements
	requirements := domain.Requirements{
		MinRAMMB:          2400,
		RequireSSE42:      true,
		MinDockerVersion:  valueOr(parsed.Requirements.MinDockerVersion, "19.03.6"),
		MinComposeVersion: valueOr(parsed.Requirements.MinComposeVersion, "1.24.1"),
	}
	if parsed.Requirements.MinRAMMB != nil {
		requirements.MinRAMMB = *parsed.Requirements.MinRAMMB
	}
	if parsed.Requirements.RequireSSE42 != nil {
		requirements.RequireSSE42 = *parsed.Requirements.RequireSSE42
	}
	config.Requirements = requirements

	return nil
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
