package userbase

// IdentityData is a plain Identity value. Directories that keep richer
// records convert them into it.
type IdentityData struct {
	IdentityID      string `json:"id"`
	DisplayName     string `json:"name"`
	EmailAddress    string `json:"email"`
	IsEmailVerified bool   `json:"is_email_verified"`
	UserRole        string `json:"user_role"`
}

var _ Identity = IdentityData{}

// NewIdentity returns an Identity with the given attributes.
func NewIdentity(id, name, email string, verified bool, role string) Identity {
	return IdentityData{
		IdentityID:      id,
		DisplayName:     name,
		EmailAddress:    email,
		IsEmailVerified: verified,
		UserRole:        role,
	}
}

// ID returns the identity ID.
func (u IdentityData) ID() string {
	return u.IdentityID
}

// Name returns the display name.
func (u IdentityData) Name() string {
	return u.DisplayName
}

// Email returns the email address.
func (u IdentityData) Email() string {
	return u.EmailAddress
}

// EmailVerified reports whether the address was confirmed.
func (u IdentityData) EmailVerified() bool {
	return u.IsEmailVerified
}

// Role returns the role as a string.
func (u IdentityData) Role() string {
	return u.UserRole
}
