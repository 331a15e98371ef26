// Package environment names the deployment environments the service knows about.
package environment

import "strings"

// Environment is a deployment environment name.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Parse normalizes s, accepting the short forms dev, stage and prod.
// Anything unrecognized is treated as Development.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	default:
		return Development
	}
}

// IsProduction reports whether e is Production.
func (e Environment) IsProduction() bool { return e == Production }

// IsDevelopment reports whether e is Development.
func (e Environment) IsDevelopment() bool { return e == Development }

func (e Environment) String() string { return string(e) }
