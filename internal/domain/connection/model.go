package connection

import (
	"net/url"
	"strings"
)

// Phase tracks one session's progress through the provider handoff.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseAwaitingRedirect Phase = "awaiting_redirect"
	PhaseReconciling      Phase = "reconciling"
	PhaseConnected        Phase = "connected"
	PhaseFailed           Phase = "failed"
)

// ErrorCode classifies a failed authorization for display.
type ErrorCode string

const (
	ErrorCodeDenied         ErrorCode = "denied"
	ErrorCodeExchangeFailed ErrorCode = "exchange_failed"
	ErrorCodeUnknown        ErrorCode = "unknown"
)

// ClassifyErrorCode maps a raw redirect error value onto the fixed set.
// Anything outside the set becomes ErrorCodeUnknown.
func ClassifyErrorCode(raw string) ErrorCode {
	switch ErrorCode(strings.TrimSpace(raw)) {
	case ErrorCodeDenied:
		return ErrorCodeDenied
	case ErrorCodeExchangeFailed:
		return ErrorCodeExchangeFailed
	default:
		return ErrorCodeUnknown
	}
}

// Message renders the user-facing text for an error code.
func (c ErrorCode) Message() string {
	switch c {
	case ErrorCodeDenied:
		return "GitHub authorization was denied."
	case ErrorCodeExchangeFailed:
		return "GitHub token exchange failed. Try connecting again."
	default:
		return "GitHub connection failed. Try connecting again."
	}
}

// Redirect contract parameter names on the onboarding return URL.
const (
	ParamConnected = "connected"
	ParamUsername  = "username"
	ParamError     = "error"
)

// RedirectResult carries the contract parameters observed on one load of the
// return URL.
type RedirectResult struct {
	Success  bool
	Username string
	RawError string
}

// ParseRedirect extracts the redirect contract from query parameters. The
// second return reports whether any contract parameter was present at all;
// a bare URL means the redirect was already consumed.
func ParseRedirect(query url.Values) (RedirectResult, bool) {
	if !query.Has(ParamConnected) && !query.Has(ParamUsername) && !query.Has(ParamError) {
		return RedirectResult{}, false
	}

	return RedirectResult{
		Success:  query.Get(ParamConnected) == "true",
		Username: strings.TrimSpace(query.Get(ParamUsername)),
		RawError: strings.TrimSpace(query.Get(ParamError)),
	}, true
}

// Link is the durable connection record value. The zero value is
// disconnected; a username is only observable while connected.
type Link struct {
	connected bool
	username  string
}

func Disconnected() Link {
	return Link{}
}

// LinkedAs reports a connected provider account. A blank username yields the
// disconnected value; connection without an account name is not
// representable.
func LinkedAs(username string) Link {
	username = strings.TrimSpace(username)
	if username == "" {
		return Link{}
	}
	return Link{connected: true, username: username}
}

func (l Link) Connected() bool {
	return l.connected
}

func (l Link) Username() (string, bool) {
	if !l.connected {
		return "", false
	}
	return l.username, true
}

// Outcome is the decided transition for one consumed redirect observation.
type Outcome struct {
	Phase       Phase
	Link        Link
	WriteRecord bool
	ErrorCode   ErrorCode
	Noop        bool
}

// Reconcile decides the transition out of awaiting_redirect for one observed
// redirect. tokenAvailable reports whether the one-shot vault still held the
// access token when it was consumed. A success flag arriving after the vault
// was drained is a replay of already-consumed parameters and changes nothing.
func Reconcile(result RedirectResult, tokenAvailable bool) Outcome {
	if result.RawError != "" {
		return Outcome{Phase: PhaseFailed, ErrorCode: ClassifyErrorCode(result.RawError)}
	}
	if result.Success && result.Username == "" {
		return Outcome{Phase: PhaseFailed, ErrorCode: ErrorCodeUnknown}
	}
	if result.Success && !tokenAvailable {
		return Outcome{Noop: true}
	}
	if result.Success {
		return Outcome{
			Phase:       PhaseConnected,
			Link:        LinkedAs(result.Username),
			WriteRecord: true,
		}
	}

	return Outcome{Noop: true}
}

// IsConnected reports the durable flag, or the in-flight redirect success
// before the durable write settles. The transient half never leaks into the
// stored record.
func IsConnected(link Link, current RedirectResult) bool {
	if link.Connected() {
		return true
	}
	return current.Success && current.Username != ""
}
