package config

import "strings"

// SeedConfig holds the initial roles and admin account read from the
// environment at startup
type SeedConfig struct {
	Roles          string `env:"MEMBERSHIP_SEED_ROLES" env-default:"admin,user"`
	AdminEmail     string `env:"MEMBERSHIP_ADMIN_EMAIL"`
	AdminPassword  string `env:"MEMBERSHIP_ADMIN_PASSWORD"`
	AdminFirstName string `env:"MEMBERSHIP_ADMIN_FIRST_NAME" env-default:"Admin"`
	AdminLastName  string `env:"MEMBERSHIP_ADMIN_LAST_NAME" env-default:"User"`
	AdminRole      string `env:"MEMBERSHIP_ADMIN_ROLE" env-default:"admin"`
}

// ParseRoleNames splits a comma-separated role list, trimming whitespace and
// dropping empty entries. An empty list falls back to the defaults.
func ParseRoleNames(roles string) []string {
	names := make([]string, 0)
	for _, name := range strings.Split(roles, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return []string{"admin", "user"}
	}
	return names
}
