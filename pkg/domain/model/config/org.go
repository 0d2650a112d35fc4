package config

// Department represents an organizational department rooms belong to
type Department struct {
	ID   string
	Name string
}

// Project represents a project rooms belong to
type Project struct {
	ID   string
	Name string
}

// OrgConfig holds the organizational structure rooms are validated against
type OrgConfig struct {
	Departments []Department
	Projects    []Project
}

// HasDepartment reports whether the department ID is declared. An empty ID
// is always acceptable: department assignment is optional.
func (x *OrgConfig) HasDepartment(id string) bool {
	if id == "" {
		return true
	}
	for _, d := range x.Departments {
		if d.ID == id {
			return true
		}
	}
	return false
}

// HasProject reports whether the project ID is declared. An empty ID is
// always acceptable.
func (x *OrgConfig) HasProject(id string) bool {
	if id == "" {
		return true
	}
	for _, p := range x.Projects {
		if p.ID == id {
			return true
		}
	}
	return false
}
