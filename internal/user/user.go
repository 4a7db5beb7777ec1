package users

import (
	"context"
	"slices"
)

type ContextKey string

const UserKey ContextKey = "user"

// Where an identity was resolved from.
const (
	SourceToken   = "token"
	SourceSession = "session"
	SourceDev     = "dev"
)

// User is the caller of a request. It is never persisted; tokens and
// sessions are the only source of truth.
type User struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	NavIdent string   `json:"navIdent"`
	Groups   []string `json:"groups"`
	IsAdmin  bool     `json:"isAdmin"`
	Source   string   `json:"source"`
}

func (u *User) InGroup(groupID string) bool {
	return groupID != "" && slices.Contains(u.Groups, groupID)
}

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, UserKey, u)
}

func FromContext(ctx context.Context) *User {
	u, _ := ctx.Value(UserKey).(*User)
	return u
}
