package routes

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/roach88/manifest/internal/ir"
)

// Generate projects the document's entities, commands, and the given
// manual routes onto the requested surface.
//
// Errors drop only what they concern: an unknown surface yields zero
// artifacts, a duplicate manual route drops that route. Warnings drop
// nothing.
func Generate(doc *ir.Document, opts Options) ([]Artifact, []Diagnostic) {
	var diags []Diagnostic

	surface := opts.Surface
	if surface == "" {
		surface = SurfaceTypeScript
	}
	if surface != SurfaceTypeScript {
		diags = append(diags, Diagnostic{
			Severity: SeverityError,
			Code:     CodeUnknownSurface,
			Message:  fmt.Sprintf("unknown surface %q", opts.Surface),
		})
		return nil, diags
	}

	basePath := strings.TrimRight(opts.BasePath, "/")
	if basePath == "" {
		basePath = "/api"
	}
	generatedAt := opts.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	auth := boolOr(opts.Auth, true)
	tenant := boolOr(opts.Tenant, true)

	var rts []tsRoute
	seenPaths := map[string]string{} // path -> first route id

	add := func(r tsRoute) {
		if firstID, ok := seenPaths[r.entry.Path]; ok {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeRouteCollision,
				Message: fmt.Sprintf("routes %q and %q share path %q",
					firstID, r.entry.ID, r.entry.Path),
			})
		} else {
			seenPaths[r.entry.Path] = r.entry.ID
		}
		rts = append(rts, r)
	}

	// Entities in name order; each entity's command routes follow its
	// two read routes, in command-name order.
	entities := make([]string, 0, len(doc.Entities))
	for i := range doc.Entities {
		entities = append(entities, doc.Entities[i].Name)
	}
	sort.Strings(entities)

	byEntity := map[string][]*ir.Command{}
	var orphans []*ir.Command
	for i := range doc.Commands {
		cmd := &doc.Commands[i]
		if doc.Entity(cmd.Entity) == nil {
			orphans = append(orphans, cmd)
			continue
		}
		byEntity[cmd.Entity] = append(byEntity[cmd.Entity], cmd)
	}

	for _, name := range entities {
		words := identWords(name)
		collection := basePath + "/" + pluralize(kebab(name))

		add(tsRoute{
			fn: camelJoin(append(words, "list")...),
			entry: RouteEntry{
				ID:     name + ".list",
				Path:   collection,
				Method: "GET",
				Source: SourceEntityRead,
				Auth:   auth,
				Tenant: tenant,
			},
		})
		add(tsRoute{
			fn: camelJoin(append(words, "get")...),
			entry: RouteEntry{
				ID:     name + ".get",
				Path:   collection + "/:id",
				Method: "GET",
				Params: []string{"id"},
				Source: SourceEntityRead,
				Auth:   auth,
				Tenant: tenant,
			},
		})

		cmds := byEntity[name]
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
		for _, cmd := range cmds {
			add(tsRoute{
				fn: camelJoin(append(words, identWords(cmd.Name)...)...),
				entry: RouteEntry{
					ID:     name + "." + cmd.Name,
					Path:   collection + "/" + kebab(cmd.Name),
					Method: "POST",
					Source: SourceCommand,
					Auth:   auth,
					Tenant: tenant,
				},
			})
		}
	}

	sort.Slice(orphans, func(i, j int) bool {
		if orphans[i].Entity != orphans[j].Entity {
			return orphans[i].Entity < orphans[j].Entity
		}
		return orphans[i].Name < orphans[j].Name
	})
	for _, cmd := range orphans {
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeCommandNoEntity,
			Message:  fmt.Sprintf("command %q has no resolvable entity %q", cmd.Name, cmd.Entity),
		})
	}

	// Manual routes keep declaration order. Only the first of a
	// duplicated id survives.
	manualSeen := map[string]bool{}
	for _, m := range opts.Manual {
		if manualSeen[m.ID] {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Code:     CodeDuplicateManualRoute,
				Message:  fmt.Sprintf("manual route id %q declared more than once", m.ID),
			})
			continue
		}
		manualSeen[m.ID] = true

		method := strings.ToUpper(m.Method)
		if method == "" {
			method = "GET"
		}
		add(tsRoute{
			fn: camelJoin(identWords(m.ID)...),
			entry: RouteEntry{
				ID:     m.ID,
				Path:   m.Path,
				Method: method,
				Params: m.Params,
				Source: SourceManual,
				Auth:   boolOr(m.Auth, auth),
				Tenant: boolOr(m.Tenant, tenant),
			},
		})
	}

	manifest := Manifest{
		Version:     ManifestVersion,
		BasePath:    basePath,
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
		Routes:      make([]RouteEntry, 0, len(rts)),
	}
	for _, r := range rts {
		manifest.Routes = append(manifest.Routes, r.entry)
	}

	artifacts := []Artifact{
		{Name: "routes.manifest", Content: marshalManifest(manifest)},
		{Name: "routes.ts", Content: renderTypeScript(manifest, rts)},
	}
	return artifacts, diags
}

type tsRoute struct {
	fn    string
	entry RouteEntry
}

func marshalManifest(m Manifest) []byte {
	// Struct field order is fixed, so MarshalIndent is already
	// byte-deterministic.
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		panic(fmt.Sprintf("marshal route manifest: %v", err))
	}
	return append(out, '\n')
}

func renderTypeScript(m Manifest, rts []tsRoute) []byte {
	var b strings.Builder
	b.WriteString("// Code generated by manifest. DO NOT EDIT.\n")
	b.WriteString("//\n")
	fmt.Fprintf(&b, "// base path: %s\n", m.BasePath)
	fmt.Fprintf(&b, "// generated at: %s\n", m.GeneratedAt)
	b.WriteString("\n")
	fmt.Fprintf(&b, "export const BASE_PATH = %q;\n", m.BasePath)

	for _, r := range rts {
		b.WriteString("\n")
		sig := make([]string, 0, len(r.entry.Params))
		for _, p := range r.entry.Params {
			sig = append(sig, p+": string")
		}
		fmt.Fprintf(&b, "export function %s(%s): string {\n", r.fn, strings.Join(sig, ", "))
		fmt.Fprintf(&b, "  return %s;\n", pathExpr(r.entry.Path))
		b.WriteString("}\n")
	}
	return []byte(b.String())
}

// pathExpr renders a route path as a TypeScript expression, replacing
// :param segments with encodeURIComponent calls.
func pathExpr(path string) string {
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	var parts []string
	lit := ""
	for _, seg := range segs {
		if strings.HasPrefix(seg, ":") {
			lit += "/"
			parts = append(parts, fmt.Sprintf("%q", lit))
			lit = ""
			parts = append(parts, fmt.Sprintf("encodeURIComponent(%s)", seg[1:]))
			continue
		}
		lit += "/" + seg
	}
	if lit != "" {
		parts = append(parts, fmt.Sprintf("%q", lit))
	}
	if len(parts) == 0 {
		return `""`
	}
	return strings.Join(parts, " + ")
}
