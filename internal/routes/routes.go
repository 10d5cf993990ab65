package routes

import (
	"fmt"
	"time"
)

// Surface names a projection target. TypeScript is the only surface
// today; the name is validated so a typo'd surface fails loudly as a
// diagnostic instead of silently producing the default.
const SurfaceTypeScript = "typescript"

// Severity levels a generation diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes. Errors drop the offending route (or, for an
// unknown surface, all artifacts); warnings keep everything.
const (
	CodeUnknownSurface       = "UNKNOWN_SURFACE"
	CodeDuplicateManualRoute = "DUPLICATE_MANUAL_ROUTE"
	CodeRouteCollision       = "ROUTE_COLLISION"
	CodeCommandNoEntity      = "COMMAND_NO_ENTITY"
)

// Diagnostic is one generation problem. Diagnostics are returned, never
// panicked or thrown; generation always runs to completion.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s", d.Severity, d.Code, d.Message)
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ManualRoute is an explicitly declared route merged into the derived
// set. Params name the :param segments of Path in order. Auth and
// Tenant override the generation-wide defaults when set.
type ManualRoute struct {
	ID     string   `json:"id" yaml:"id"`
	Path   string   `json:"path" yaml:"path"`
	Method string   `json:"method" yaml:"method"`
	Params []string `json:"params,omitempty" yaml:"params,omitempty"`
	Auth   *bool    `json:"auth,omitempty" yaml:"auth,omitempty"`
	Tenant *bool    `json:"tenant,omitempty" yaml:"tenant,omitempty"`
}

// Options configures one generation call.
//
// Auth and Tenant are expectation flags stamped onto every route; they
// are metadata for external enforcement, defaulting to true when nil.
type Options struct {
	Surface     string
	BasePath    string // default "/api"
	GeneratedAt time.Time
	Auth        *bool
	Tenant      *bool
	Manual      []ManualRoute
}

// RouteSource discriminates where a route came from.
type RouteSource string

const (
	SourceEntityRead RouteSource = "entity-read"
	SourceCommand    RouteSource = "command"
	SourceManual     RouteSource = "manual"
)

// RouteEntry is one route in the manifest.
type RouteEntry struct {
	ID     string      `json:"id"`
	Path   string      `json:"path"`
	Method string      `json:"method"`
	Params []string    `json:"params,omitempty"`
	Source RouteSource `json:"source"`
	Auth   bool        `json:"auth"`
	Tenant bool        `json:"tenant"`
}

// Manifest is the machine-readable projection of all routes.
type Manifest struct {
	Version     string       `json:"version"`
	BasePath    string       `json:"basePath"`
	GeneratedAt string       `json:"generatedAt"` // RFC 3339, UTC
	Routes      []RouteEntry `json:"routes"`
}

// ManifestVersion is bumped when the manifest shape changes.
const ManifestVersion = "1"

// Artifact is one generated file.
type Artifact struct {
	Name    string `json:"name"`
	Content []byte `json:"content"`
}

func boolOr(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}
