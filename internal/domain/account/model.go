package account

import "time"

// User is the identity attached to a verified access token.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// Auth is the token pair returned by the identity provider after a
// successful sign-up, sign-in, or refresh.
type Auth struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	User         User
}

// Principal is the caller identity resolved from a bearer token.
type Principal struct {
	UserID string
	Email  string
}
