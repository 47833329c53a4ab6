package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/labelhost/internal/validation"
)

var (
	// Unix account and group names.
	accountPattern = regexp.MustCompile(`^[a-z_][a-z0-9_-]*\$?$`)
	sha256Pattern  = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
)

// Validate checks cfg and reports every problem at once.
func Validate(cfg *Config) error {
	errs := NewErrorList()

	if strings.TrimSpace(cfg.App.Name) == "" {
		errs.AddValidation("app.name", "must not be empty", "Name the application shown in the final status line.")
	}
	if cfg.App.Port < 1 || cfg.App.Port > 65535 {
		errs.AddValidation("app.port", fmt.Sprintf("%d is not a valid TCP port", cfg.App.Port), "Use a port between 1 and 65535.")
	}

	for i, pkg := range cfg.Packages {
		if err := validation.ValidatePackageName(pkg); err != nil {
			errs.AddValidation(fmt.Sprintf("packages[%d]", i), err.Error(), "")
		}
	}

	if cfg.Service == "" {
		errs.AddValidation("service", "must not be empty", "Name the container runtime service, usually 'docker'.")
	}
	if !accountPattern.MatchString(cfg.User) {
		errs.AddValidation("user", fmt.Sprintf("invalid user name %q", cfg.User), "")
	}
	if !accountPattern.MatchString(cfg.Group) {
		errs.AddValidation("group", fmt.Sprintf("invalid group name %q", cfg.Group), "")
	}

	validateCompose(cfg.Compose, errs)
	validateRepository(cfg.Repository, errs)

	if cfg.Container.Name == "" {
		errs.AddValidation("container.name", "must not be empty", "")
	}
	if !cfg.Container.SkipAdmin && len(cfg.Container.AdminCommand) == 0 {
		errs.AddValidation("container.admin_command", "must not be empty", "Set container.skip_admin to skip the admin bootstrap.")
	}
	if len(cfg.Container.CheckCommand) > 0 && cfg.Container.CheckExpect == "" {
		errs.AddValidation("container.check_expect", "required when check_command is set", "")
	}

	switch cfg.Transport {
	case TransportLocal:
	case TransportSSH:
		if cfg.SSH.Host == "" {
			errs.AddValidation("ssh.host", "required when transport is ssh", "")
		} else if err := validation.ValidateHostname(cfg.SSH.Host); err != nil {
			errs.AddValidation("ssh.host", err.Error(), "Put the login name in ssh.user.")
		}
		if cfg.SSH.Port < 0 || cfg.SSH.Port > 65535 {
			errs.AddValidation("ssh.port", fmt.Sprintf("%d is not a valid TCP port", cfg.SSH.Port), "")
		}
		if cfg.SSH.User != "root" && !cfg.SSH.UseSudo() {
			errs.AddValidation("ssh.sudo", fmt.Sprintf("user %q cannot install packages or start services without sudo", cfg.SSH.User),
				"Leave ssh.sudo unset, or set ssh.user to root.")
		}
	default:
		errs.AddValidation("transport", fmt.Sprintf("unknown transport %q", cfg.Transport), "Use 'local' or 'ssh'.")
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "", "text", "json":
	default:
		errs.AddValidation("log.format", fmt.Sprintf("unknown format %q", cfg.Log.Format), "Use 'text' or 'json'.")
	}

	return errs.AsError()
}

func validateCompose(c ComposeConfig, errs *ErrorList) {
	url := c.ResolvedURL()
	if strings.Contains(url, "{") {
		errs.AddValidation("compose.url", "contains an unknown placeholder", "Supported placeholders: {version}, {os}, {arch}.")
	} else if err := validation.ValidateURL(url); err != nil {
		errs.AddValidation("compose.url", err.Error(), "")
	}
	if c.SHA256 != "" && !sha256Pattern.MatchString(c.SHA256) {
		errs.AddValidation("compose.sha256", "must be a 64 character hex digest", "")
	}
	if err := validation.ValidateAbsPath(c.Destination); err != nil {
		errs.AddValidation("compose.destination", err.Error(), "")
	}
}

func validateRepository(r RepositoryConfig, errs *ErrorList) {
	if r.URL == "" {
		errs.AddValidation("repository.url", "must not be empty", "")
	} else if err := validation.ValidateGitRemoteURL(r.URL); err != nil {
		errs.AddValidation("repository.url", err.Error(), "")
	}
	if strings.TrimSpace(r.Ref) == "" {
		errs.Add(NewRefRequiredError())
	} else if err := validation.ValidateGitRef(r.Ref); err != nil {
		errs.AddValidation("repository.ref", err.Error(), "Use a tag or a full commit hash.")
	}
	if err := validation.ValidateAbsPath(r.Dir); err != nil {
		errs.AddValidation("repository.dir", err.Error(), "The clone directory is passed explicitly to every Compose command.")
	}
}
