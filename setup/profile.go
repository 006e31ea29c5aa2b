package setup

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed profile.yaml
var defaultProfile []byte

type Folder struct {
	ID    string `yaml:"id"`
	Type  string `yaml:"type"`
	Title string `yaml:"title"`
}

type ActionMove struct {
	IDs        []string `yaml:"ids"`
	Category   string   `yaml:"category"`
	Permission string   `yaml:"permission"`
}

type Group struct {
	Name  string   `yaml:"name"`
	Roles []string `yaml:"roles"`
}

type Mapping struct {
	Permission string   `yaml:"permission"`
	Roles      []string `yaml:"roles"`
	Acquire    bool     `yaml:"acquire"`
}

// PathPermissions are the permission mappings of the object at Path.
type PathPermissions struct {
	Path     string    `yaml:"path"`
	Mappings []Mapping `yaml:"mappings"`
}

type Proxies struct {
	Script    string   `yaml:"script"`
	Roles     []string `yaml:"roles"`
	Workflows []string `yaml:"workflows"`
}

// A Profile describes the site structure which Generator sets up.
type Profile struct {
	Products       []string          `yaml:"products"`
	Delete         []string          `yaml:"delete"`
	Folders        []Folder          `yaml:"folders"`
	DisallowGlobal []string          `yaml:"disallow_global"`
	MoveActions    ActionMove        `yaml:"move_actions"`
	Roles          []string          `yaml:"roles"`
	Groups         []Group           `yaml:"groups"`
	Permissions    []PathPermissions `yaml:"permissions"`
	Proxies        Proxies           `yaml:"proxies"`
}

func ParseProfile(data []byte) (*Profile, error) {
	var p = &Profile{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	return p, nil
}

// DefaultProfile returns the built-in LIMS profile.
func DefaultProfile() *Profile {
	p, err := ParseProfile(defaultProfile)
	if err != nil {
		panic(err)
	}
	return p
}
