package domain

// Config describes one installation of the stack.
type Config struct {
	ComposeFile string
	Project     string

	ConfigFiles []ConfigFile
	Secret      SecretConfig
	// SettingsFile is the application settings module the TSDB migration edits.
	SettingsFile string
	Volumes     []string
	// DataVolume and PostgresVolume are members of Volumes that migrations inspect.
	DataVolume     string
	PostgresVolume string
	Images      []ServiceImage
	Services    ServiceNames

	Credentials  string
	Requirements Requirements

	// ApplicationImage is the image reference of the primary application.
	ApplicationImage string
	// Interactive is false when user creation must not prompt.
	Interactive bool
	BackupDir   string
}

// ConfigFile is a file materialized from its example template.
type ConfigFile struct {
	Sample string
	Target string
}

// SecretConfig locates the placeholder line of the generated secret key.
type SecretConfig struct {
	File        string
	Key         string
	Placeholder string
}

// PlaceholderLine is the exact line that marks an uncustomized secret.
func (s SecretConfig) PlaceholderLine() string {
	return s.Key + ": '" + s.Placeholder + "'"
}

// ServiceImage is a compose service image. LocalBuild images have no
// registry counterpart and DependsOn names the image they extend.
type ServiceImage struct {
	Service    string
	LocalBuild bool
	DependsOn  string
}

// ServiceNames are the compose services the installer talks to directly.
type ServiceNames struct {
	Web       string
	Snuba     string
	Zookeeper string
	Relay     string
}

// Requirements are the host minimums checked before provisioning.
type Requirements struct {
	MinRAMMB          int
	RequireSSE42      bool
	MinDockerVersion  string
	MinComposeVersion string
}
