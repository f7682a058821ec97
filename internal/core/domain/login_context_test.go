package domain

import (
	"reflect"
	"testing"
)

func sampleContext() LoginContext {
	return LoginContext{
		IP:         "203.0.113.7",
		Country:    "DE",
		City:       "Berlin",
		Browser:    "Firefox",
		Platform:   "desktop",
		OS:         "Linux",
		Device:     "ThinkPad",
		DeviceType: "laptop",
	}
}

func TestContextMatchesIdenticalContexts(t *testing.T) {
	a := sampleContext()
	if !ContextMatches(a, a) {
		t.Fatal("expected identical contexts to match")
	}
	if ContextChanged(a, a) {
		t.Fatal("expected identical contexts to be unchanged")
	}
}

func TestContextChangedIsNegationOfMatches(t *testing.T) {
	base := sampleContext()
	mutations := map[string]func(*LoginContext){
		"ip":         func(c *LoginContext) { c.IP = "198.51.100.1" },
		"country":    func(c *LoginContext) { c.Country = "FR" },
		"city":       func(c *LoginContext) { c.City = "berlin" },
		"browser":    func(c *LoginContext) { c.Browser = "Chrome" },
		"platform":   func(c *LoginContext) { c.Platform = "mobile" },
		"os":         func(c *LoginContext) { c.OS = "macOS" },
		"device":     func(c *LoginContext) { c.Device = "" },
		"deviceType": func(c *LoginContext) { c.DeviceType = UnknownContextValue },
	}

	for field, mutate := range mutations {
		t.Run(field, func(t *testing.T) {
			changed := base
			mutate(&changed)

			if ContextMatches(base, changed) {
				t.Fatalf("expected mismatch after changing %s", field)
			}
			if !ContextChanged(base, changed) {
				t.Fatalf("expected change after changing %s", field)
			}
			if got := ChangedFields(base, changed); !reflect.DeepEqual(got, []string{field}) {
				t.Fatalf("unexpected changed fields: %v", got)
			}
		})
	}
}

func TestUnknownSentinelMatchesItself(t *testing.T) {
	a := sampleContext()
	a.City = UnknownContextValue
	b := a

	if !ContextMatches(a, b) {
		t.Fatal("expected unknown values to compare equal")
	}
}

func TestMissingFields(t *testing.T) {
	ctx := sampleContext()
	ctx.IP = ""
	ctx.OS = "   "

	got := ctx.MissingFields()
	if !reflect.DeepEqual(got, []string{"ip", "os"}) {
		t.Fatalf("unexpected missing fields: %v", got)
	}
	if ctx.Complete() {
		t.Fatal("expected incomplete context")
	}

	unknown := sampleContext()
	unknown.Browser = UnknownContextValue
	if !unknown.Complete() {
		t.Fatal("unknown sentinel must count as present")
	}
}

func TestMatchesAnyTrusted(t *testing.T) {
	current := sampleContext()
	other := current
	other.IP = "192.0.2.10"

	if MatchesAnyTrusted(nil, current) {
		t.Fatal("empty trusted set must not match")
	}

	trusted := []TrustedContext{{ID: "a", Context: other}}
	if MatchesAnyTrusted(trusted, current) {
		t.Fatal("expected no match against a different context")
	}

	trusted = append(trusted, TrustedContext{ID: "b", Context: current})
	if !MatchesAnyTrusted(trusted, current) {
		t.Fatal("expected match against the second trusted context")
	}
	if !IsTrustedDevice(trusted[1], current) {
		t.Fatal("expected IsTrustedDevice to agree with MatchesAnyTrusted")
	}
}

func TestSuspiciousLoginState(t *testing.T) {
	cases := []struct {
		name   string
		record SuspiciousLogin
		want   SuspiciousLoginState
	}{
		{"new", SuspiciousLogin{}, SuspiciousLoginStateNew},
		{"tracked", SuspiciousLogin{UnverifiedAttempts: 2}, SuspiciousLoginStateTracked},
		{"blocked", SuspiciousLogin{UnverifiedAttempts: 4, IsBlocked: true}, SuspiciousLoginStateBlocked},
		{"trusted", SuspiciousLogin{IsTrusted: true}, SuspiciousLoginStateTrusted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.record.State(); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestAttemptsExceeded(t *testing.T) {
	if AttemptsExceeded(3, 3) {
		t.Fatal("reaching the threshold must not exceed it")
	}
	if !AttemptsExceeded(4, 3) {
		t.Fatal("expected four attempts to exceed a threshold of three")
	}
}

func TestCommunityMembership(t *testing.T) {
	c := Community{
		Members:     []string{"u1", "u2"},
		Moderators:  []string{"u2"},
		BannedUsers: []string{"u3"},
	}
	if !c.IsMember("u1") || c.IsMember("u3") {
		t.Fatal("unexpected membership result")
	}
	if !c.IsModerator("u2") || c.IsModerator("u1") {
		t.Fatal("unexpected moderator result")
	}
	if !c.IsBanned("u3") || c.IsBanned("u1") {
		t.Fatal("unexpected ban result")
	}
}
