package auth

import "context"

const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleChatbot = "chatbot"
)

// StaffRoles are the human operator roles. The chatbot service account is
// deliberately left out.
var StaffRoles = []string{RoleAdmin, RoleUser}

// Identity is the caller decoded from a bearer token.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// HasRole is the single capability check used by every gated operation.
func (i Identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type contextKey string

const identityKey = contextKey("identity")

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
