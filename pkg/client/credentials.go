package client

// Credentials authenticate a Login call. The variants are APIKey,
// UserPassword and UserPasswordTOTP; the interface is sealed.
type Credentials interface {
	credentials()
}

// APIKey logs in with an API key created in the customer account.
type APIKey struct {
	Key string
}

// UserPassword logs in with account credentials. Accounts with two-factor
// authentication fail with ErrTOTPRequired.
type UserPassword struct {
	User     string
	Password string
}

// UserPasswordTOTP logs in with account credentials and a one-time code.
type UserPasswordTOTP struct {
	User     string
	Password string
	Code     string
}

func (APIKey) credentials()           {}
func (UserPassword) credentials()     {}
func (UserPasswordTOTP) credentials() {}

// String hides the key.
func (k APIKey) String() string { return "APIKey{***}" }

// String hides the password.
func (u UserPassword) String() string { return "UserPassword{" + u.User + ", ***}" }

// String hides the password and code.
func (u UserPasswordTOTP) String() string { return "UserPasswordTOTP{" + u.User + ", ***, ***}" }

// LoginOption adjusts a Login call.
type LoginOption func(*loginOptions)

type loginOptions struct {
	signInAs string
}

// WithSignInAs opens the session on behalf of another account the
// credentials are allowed to act for.
func WithSignInAs(user string) LoginOption {
	return func(o *loginOptions) {
		o.signInAs = user
	}
}
