// Package access loads the table of guarded views and the roles allowed on each.
package access

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/servicehub/session-gateway/internal/core/domain"
)

// ErrReservedPath rejects a view that would shadow a route the gateway serves itself.
var ErrReservedPath = errors.New("path is reserved")

// reservedPaths are served by the gateway; a view may not equal one or sit below it.
var reservedPaths = []string{
	"/login",
	"/unauthorized",
	"/api/session",
	"/health",
	"/metrics",
	"/swagger",
}

func reserved(path string) bool {
	for _, r := range reservedPaths {
		if path == r || strings.HasPrefix(path, r+"/") {
			return true
		}
	}
	return false
}

// View is a guarded page. An empty Roles list admits any authenticated user.
type View struct {
	Name  string        `yaml:"name"`
	Path  string        `yaml:"path"`
	Roles []domain.Role `yaml:"-"`

	RawRoles []string `yaml:"roles"`
}

type Policy struct {
	Views []View `yaml:"views"`
}

// Default is used when no policy file exists.
func Default() *Policy {
	return &Policy{Views: []View{
		{Name: "profile", Path: "/profile"},
		{Name: "customer-bookings", Path: "/customer/bookings", Roles: []domain.Role{domain.RoleCustomer}},
		{Name: "worker-jobs", Path: "/worker/jobs", Roles: []domain.Role{domain.RoleWorker}},
		{Name: "admin-dashboard", Path: "/admin/dashboard", Roles: []domain.Role{domain.RoleAdmin}},
		{Name: "admin-users", Path: "/admin/users", Roles: []domain.Role{domain.RoleAdmin}},
		{Name: "admin-payments", Path: "/admin/payments", Roles: []domain.Role{domain.RoleAdmin}},
	}}
}

// Load reads the policy at path. An empty path or a missing file yields
// Default; a file that exists but does not parse is an error.
func Load(path string) (*Policy, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read access policy: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a YAML policy document.
func Parse(b []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode access policy: %w", err)
	}

	seen := make(map[string]bool, len(p.Views))
	for i := range p.Views {
		v := &p.Views[i]
		if !strings.HasPrefix(v.Path, "/") {
			return nil, fmt.Errorf("view %q: path %q must start with /", v.Name, v.Path)
		}
		if reserved(v.Path) {
			return nil, fmt.Errorf("view %q: %q: %w", v.Name, v.Path, ErrReservedPath)
		}
		if seen[v.Path] {
			return nil, fmt.Errorf("view %q: duplicate path %q", v.Name, v.Path)
		}
		seen[v.Path] = true

		v.Roles = make([]domain.Role, 0, len(v.RawRoles))
		for _, raw := range v.RawRoles {
			r, err := domain.ParseRole(raw)
			if err != nil {
				return nil, fmt.Errorf("view %q: %w", v.Name, err)
			}
			v.Roles = append(v.Roles, r)
		}
		if v.Name == "" {
			v.Name = strings.Trim(strings.ReplaceAll(v.Path, "/", "-"), "-")
		}
	}
	return &p, nil
}
