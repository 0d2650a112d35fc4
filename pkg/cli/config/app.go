package config

import (
	"os"

	domainConfig "github.com/Quangdung1996/chat-sub001/pkg/domain/model/config"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// AppConfig represents the application configuration loaded from TOML
type AppConfig struct {
	Departments []Department `toml:"department"`
	Projects    []Project    `toml:"project"`

	path string
}

// Department declares a department rooms may be associated with
type Department struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// Validate checks if the Department is valid
func (x *Department) Validate() error {
	if x.ID == "" {
		return goerr.New("department id is required")
	}
	if x.Name == "" {
		return goerr.New("department name is required", goerr.V("id", x.ID))
	}
	return nil
}

// Project declares a project rooms may be associated with
type Project struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// Validate checks if the Project is valid
func (x *Project) Validate() error {
	if x.ID == "" {
		return goerr.New("project id is required")
	}
	if x.Name == "" {
		return goerr.New("project name is required", goerr.V("id", x.ID))
	}
	return nil
}

// Validate checks the whole configuration, rejecting duplicate IDs
func (x *AppConfig) Validate() error {
	deptIDs := make(map[string]bool)
	for _, d := range x.Departments {
		if err := d.Validate(); err != nil {
			return goerr.Wrap(err, "invalid department")
		}
		if deptIDs[d.ID] {
			return goerr.New("duplicate department ID", goerr.V("id", d.ID))
		}
		deptIDs[d.ID] = true
	}

	projIDs := make(map[string]bool)
	for _, p := range x.Projects {
		if err := p.Validate(); err != nil {
			return goerr.Wrap(err, "invalid project")
		}
		if projIDs[p.ID] {
			return goerr.New("duplicate project ID", goerr.V("id", p.ID))
		}
		projIDs[p.ID] = true
	}

	return nil
}

// Flags returns CLI flags for application configuration
func (x *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to TOML application config declaring departments and projects",
			Sources:     cli.EnvVars("CHATSYNC_CONFIG"),
			Destination: &x.path,
		},
	}
}

// Configure loads the TOML config when a path is set. With no path the
// returned OrgConfig is nil and room org checks are skipped.
func (x *AppConfig) Configure() (*domainConfig.OrgConfig, error) {
	if x.path == "" {
		return nil, nil
	}

	loaded, err := LoadAppConfiguration(x.path)
	if err != nil {
		return nil, err
	}
	x.Departments = loaded.Departments
	x.Projects = loaded.Projects

	return x.ToDomainOrgConfig(), nil
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML config", goerr.V("path", path))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V("path", path))
	}

	return &config, nil
}

// ToDomainOrgConfig converts AppConfig to the domain OrgConfig
func (x *AppConfig) ToDomainOrgConfig() *domainConfig.OrgConfig {
	departments := make([]domainConfig.Department, len(x.Departments))
	for i, d := range x.Departments {
		departments[i] = domainConfig.Department{ID: d.ID, Name: d.Name}
	}

	projects := make([]domainConfig.Project, len(x.Projects))
	for i, p := range x.Projects {
		projects[i] = domainConfig.Project{ID: p.ID, Name: p.Name}
	}

	return &domainConfig.OrgConfig{
		Departments: departments,
		Projects:    projects,
	}
}
