package core

import (
	"context"

	"golang.org/x/text/language"
)

type ctxKey int

const (
	userKey ctxKey = iota
	languageKey
	proxyRolesKey
)

var langMatcher = language.NewMatcher([]language.Tag{
	language.AmericanEnglish, // default
	language.German,
})

// MatchLanguage picks a supported language from an Accept-Language header value.
func MatchLanguage(acceptLanguage string) language.Tag {
	tag, _ := language.MatchStrings(langMatcher, acceptLanguage)
	base, _ := tag.Base()
	return language.Make(base.String())
}

// WithUser returns a copy of ctx in which u is the acting user. A nil user means anonymous.
func WithUser(ctx context.Context, u DBUser) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the acting user or nil.
func UserFrom(ctx context.Context) DBUser {
	u, _ := ctx.Value(userKey).(DBUser)
	return u
}

// ActorName returns the name of the acting user, which is recorded in the review history.
func ActorName(ctx context.Context) string {
	if u := UserFrom(ctx); u != nil {
		return u.Name()
	}
	return "system"
}

func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, languageKey, tag)
}

// LanguageFrom returns the request language, defaulting to English.
func LanguageFrom(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(languageKey).(language.Tag); ok {
		return tag
	}
	return language.English
}

// WithProxyRoles grants additional roles to everything running with the returned context.
// Workflow scripts use it to run with elevated roles.
func WithProxyRoles(ctx context.Context, roles []string) context.Context {
	if len(roles) == 0 {
		return ctx
	}
	var all = append(ProxyRolesFrom(ctx), roles...)
	return context.WithValue(ctx, proxyRolesKey, all)
}

func ProxyRolesFrom(ctx context.Context) []string {
	roles, _ := ctx.Value(proxyRolesKey).([]string)
	return append([]string(nil), roles...)
}
