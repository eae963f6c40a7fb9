package auth

import "errors"

var (
	// ErrAuthRequired is returned when a request has no valid session.
	ErrAuthRequired = errors.New("authentication required")
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned by stores when the email already has an account.
	ErrEmailTaken = errors.New("an account with this email already exists")
	// ErrInvalidSignup is returned for missing signup fields or a short password.
	ErrInvalidSignup = errors.New("invalid signup")
	// ErrInvalidProfile is returned for out-of-range targets or unknown option ids.
	ErrInvalidProfile = errors.New("invalid profile")
)
