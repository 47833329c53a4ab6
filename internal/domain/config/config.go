// Package config defines the provisioning configuration and how it is loaded.
package config

import (
	"strconv"
	"strings"
)

// EnvRef names the environment variable that may supply repository.ref.
const EnvRef = "LABELHOST_REF"

// Transport names.
const (
	TransportLocal = "local"
	TransportSSH   = "ssh"
)

// Config is the full provisioning configuration for one host.
type Config struct {
	App        AppConfig        `yaml:"app" toml:"app"`
	Packages   []string         `yaml:"packages" toml:"packages"`
	Service    string           `yaml:"service" toml:"service"`
	User       string           `yaml:"user" toml:"user"`
	Group      string           `yaml:"group" toml:"group"`
	Compose    ComposeConfig    `yaml:"compose" toml:"compose"`
	Repository RepositoryConfig `yaml:"repository" toml:"repository"`
	Container  ContainerConfig  `yaml:"container" toml:"container"`
	Status     StatusConfig     `yaml:"status" toml:"status"`
	Transport  string           `yaml:"transport" toml:"transport"`
	SSH        SSHConfig        `yaml:"ssh" toml:"ssh"`
	Log        LogConfig        `yaml:"log" toml:"log"`
	// MetricsFile, when set, receives a Prometheus textfile after every run.
	MetricsFile string `yaml:"metrics_file" toml:"metrics_file"`
}

// AppConfig names the provisioned application and its published port.
type AppConfig struct {
	Name string `yaml:"name" toml:"name"`
	Port int    `yaml:"port" toml:"port"`
}

// ComposeConfig describes the Compose binary to install.
type ComposeConfig struct {
	// URL may contain {version}, {os} and {arch} placeholders.
	URL         string `yaml:"url" toml:"url"`
	Version     string `yaml:"version" toml:"version"`
	OS          string `yaml:"os" toml:"os"`
	Arch        string `yaml:"arch" toml:"arch"`
	SHA256      string `yaml:"sha256" toml:"sha256"`
	Destination string `yaml:"destination" toml:"destination"`
}

// ResolvedURL returns URL with placeholders substituted.
func (c ComposeConfig) ResolvedURL() string {
	return strings.NewReplacer(
		"{version}", c.Version,
		"{os}", c.OS,
		"{arch}", c.Arch,
	).Replace(c.URL)
}

// BinDir returns the directory the Compose binary is installed into.
func (c ComposeConfig) BinDir() string {
	i := strings.LastIndex(c.Destination, "/")
	if i <= 0 {
		return "/"
	}
	return c.Destination[:i]
}

// RepositoryConfig describes the deployment repository to clone.
type RepositoryConfig struct {
	URL string `yaml:"url" toml:"url"`
	// Ref is a tag or commit. It has no default.
	Ref string `yaml:"ref" toml:"ref"`
	Dir string `yaml:"dir" toml:"dir"`
}

// ContainerConfig describes the post-start admin bootstrap.
type ContainerConfig struct {
	Name         string   `yaml:"name" toml:"name"`
	AdminCommand []string `yaml:"admin_command" toml:"admin_command"`
	CheckCommand []string `yaml:"check_command" toml:"check_command"`
	CheckExpect  string   `yaml:"check_expect" toml:"check_expect"`
	SkipAdmin    bool     `yaml:"skip_admin" toml:"skip_admin"`
}

// StatusConfig controls the final status line.
type StatusConfig struct {
	Host           string `yaml:"host" toml:"host"`
	DetectPublicIP bool   `yaml:"detect_public_ip" toml:"detect_public_ip"`
}

// SSHConfig describes how to reach a remote target.
type SSHConfig struct {
	Host         string `yaml:"host" toml:"host"`
	Port         int    `yaml:"port" toml:"port"`
	User         string `yaml:"user" toml:"user"`
	IdentityFile string `yaml:"identity_file" toml:"identity_file"`
	// Sudo runs every remote command through "sudo -n". Unset means on for
	// any user but root.
	Sudo *bool `yaml:"sudo" toml:"sudo"`
}

// UseSudo reports whether remote commands are elevated with sudo.
func (c SSHConfig) UseSudo() bool {
	if c.Sudo != nil {
		return *c.Sudo
	}
	return c.User != "root"
}

// Address returns host:port.
func (c SSHConfig) Address() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return c.Host + ":" + strconv.Itoa(port)
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	File   string `yaml:"file" toml:"file"`
}

// Defaults returns the configuration for the reference deployment:
// CVAT on Amazon Linux, provisioned locally as root.
func Defaults() *Config {
	return &Config{
		App: AppConfig{
			Name: "CVAT",
			Port: 8080,
		},
		Packages: []string{"docker", "git"},
		Service:  "docker",
		User:     "ec2-user",
		Group:    "docker",
		Compose: ComposeConfig{
			URL:         "https://github.com/docker/compose/releases/download/{version}/docker-compose-{os}-{arch}",
			Version:     "1.25.0",
			OS:          "Linux",
			Arch:        "x86_64",
			Destination: "/usr/local/bin/docker-compose",
		},
		Repository: RepositoryConfig{
			URL: "https://github.com/opencv/cvat.git",
			Dir: "/opt/cvat",
		},
		Container: ContainerConfig{
			Name:         "cvat",
			AdminCommand: []string{"bash", "-ic", "python3 ~/manage.py createsuperuser"},
			CheckCommand: []string{"bash", "-c",
				`python3 ~/manage.py shell -c "from django.contrib.auth.models import User; print(User.objects.filter(is_superuser=True).exists())"`},
			CheckExpect: "True",
		},
		Status: StatusConfig{
			DetectPublicIP: true,
		},
		Transport: TransportLocal,
		SSH: SSHConfig{
			Port: 22,
			User: "ec2-user",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
