package core

import (
	"strings"
	"unicode"
)

type ContentType struct {
	Name        string
	GlobalAllow bool // whether it can be added anywhere, including the site root
}

type TypeDB interface {
	GetContentType(name string) (ContentType, error) // unknown types are globally allowed
	SetGlobalAllow(name string, allow bool) error
}

// A ControlPanelAction is a link in the site control panel.
type ControlPanelAction struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Permission string `json:"permission"`
}

type ActionDB interface {
	GetAllActions() ([]ControlPanelAction, error)
	UpdateAction(a ControlPanelAction) error
}

// A ScriptDB stores the proxy roles of workflow scripts.
type ScriptDB interface {
	GetProxyRoles(workflowID, script string) ([]string, error)
	SetProxyRoles(workflowID, script string, roles []string) error
}

type ProductDB interface {
	GetInstalledProducts() ([]string, error)
	InstallProduct(name string) error
}

// NormalizeSlug lowercases s and replaces everything except letters, digits, "-" and "_" by "-".
func NormalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Trim(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, s), "-")
}
