package auth

const (
	RoleUser       = "user"
	RoleSuperadmin = "superadmin"
)

// Identity is the outcome of resolving a request's credentials.
type Identity struct {
	Authenticated bool
	User          string
	Role          string
	// Reason is set when Authenticated is false: unauthorized,
	// bad_credentials or rate_limited.
	Reason string
}

func (i Identity) IsSuperadmin() bool {
	return i.Authenticated && i.Role == RoleSuperadmin
}
