package handler

// LoginState is the position of one login request in the login flow.
type LoginState int

const (
	AwaitingInput LoginState = iota
	Validating
	Authenticated
	Rejected
	Errored
)

func (s LoginState) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case Validating:
		return "validating"
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether the flow ends in s.
func (s LoginState) Terminal() bool {
	return s == Authenticated || s == Rejected || s == Errored
}

const (
	MsgCredentialsRequired = "Email og adgangskode er påkrævet."
	MsgInvalidCredentials  = "Ugyldig email eller adgangskode."
	MsgGenericError        = "Der opstod en fejl. Prøv venligst igen senere."
)

const (
	LoginPath     = "/Login"
	DashboardPath = "/Dashboard/Dashboard"
)
