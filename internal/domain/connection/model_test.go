package connection

import (
	"net/url"
	"testing"
)

func TestClassifyErrorCode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ErrorCode
	}{
		{name: "denied", raw: "denied", want: ErrorCodeDenied},
		{name: "exchange failed", raw: "exchange_failed", want: ErrorCodeExchangeFailed},
		{name: "anything else", raw: "server_on_fire", want: ErrorCodeUnknown},
		{name: "empty", raw: "", want: ErrorCodeUnknown},
		{name: "whitespace trimmed", raw: " denied ", want: ErrorCodeDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyErrorCode(tt.raw); got != tt.want {
				t.Fatalf("ClassifyErrorCode(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseRedirect(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantPresent bool
		want        RedirectResult
	}{
		{
			name:        "success with username",
			query:       "connected=true&username=alice",
			wantPresent: true,
			want:        RedirectResult{Success: true, Username: "alice"},
		},
		{
			name:        "error code",
			query:       "error=denied",
			wantPresent: true,
			want:        RedirectResult{RawError: "denied"},
		},
		{
			name:        "bare url already consumed",
			query:       "",
			wantPresent: false,
		},
		{
			name:        "unrelated params ignored",
			query:       "utm_source=mail",
			wantPresent: false,
		},
		{
			name:        "success flag must be literal true",
			query:       "connected=1&username=alice",
			wantPresent: true,
			want:        RedirectResult{Success: false, Username: "alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}

			got, present := ParseRedirect(values)
			if present != tt.wantPresent {
				t.Fatalf("present = %v, want %v", present, tt.wantPresent)
			}
			if got != tt.want {
				t.Fatalf("result = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLinkVariant(t *testing.T) {
	disconnected := Disconnected()
	if disconnected.Connected() {
		t.Fatalf("zero link must be disconnected")
	}
	if _, ok := disconnected.Username(); ok {
		t.Fatalf("disconnected link must not expose a username")
	}

	linked := LinkedAs("alice")
	if !linked.Connected() {
		t.Fatalf("linked value must report connected")
	}
	if name, ok := linked.Username(); !ok || name != "alice" {
		t.Fatalf("expected alice, got %q present=%v", name, ok)
	}

	if LinkedAs("  ").Connected() {
		t.Fatalf("blank username must not produce a connected link")
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name           string
		result         RedirectResult
		tokenAvailable bool
		want           Outcome
	}{
		{
			name:           "success with token connects",
			result:         RedirectResult{Success: true, Username: "alice"},
			tokenAvailable: true,
			want: Outcome{
				Phase:       PhaseConnected,
				Link:        LinkedAs("alice"),
				WriteRecord: true,
			},
		},
		{
			name:           "denied fails without record write",
			result:         RedirectResult{RawError: "denied"},
			tokenAvailable: true,
			want:           Outcome{Phase: PhaseFailed, ErrorCode: ErrorCodeDenied},
		},
		{
			name:           "unclassified error is unknown",
			result:         RedirectResult{RawError: "gremlins"},
			tokenAvailable: false,
			want:           Outcome{Phase: PhaseFailed, ErrorCode: ErrorCodeUnknown},
		},
		{
			name:           "replayed success without token is a no-op",
			result:         RedirectResult{Success: true, Username: "alice"},
			tokenAvailable: false,
			want:           Outcome{Noop: true},
		},
		{
			name:           "success without username is a protocol violation",
			result:         RedirectResult{Success: true},
			tokenAvailable: true,
			want:           Outcome{Phase: PhaseFailed, ErrorCode: ErrorCodeUnknown},
		},
		{
			name:           "empty observation is a no-op",
			result:         RedirectResult{},
			tokenAvailable: false,
			want:           Outcome{Noop: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.result, tt.tokenAvailable)
			if got != tt.want {
				t.Fatalf("Reconcile() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIsConnected(t *testing.T) {
	if !IsConnected(LinkedAs("alice"), RedirectResult{}) {
		t.Fatalf("durable link must report connected")
	}
	if !IsConnected(Disconnected(), RedirectResult{Success: true, Username: "alice"}) {
		t.Fatalf("in-flight success with username must report connected")
	}
	if IsConnected(Disconnected(), RedirectResult{Success: true}) {
		t.Fatalf("success flag without username must not report connected")
	}
	if IsConnected(Disconnected(), RedirectResult{Username: "alice"}) {
		t.Fatalf("username without success flag must not report connected")
	}
}
