package version

import (
	"strings"
	"testing"
)

// withVersionVars temporarily sets version variables and restores them after the test.
func withVersionVars(t *testing.T, v, commit, date string, fn func()) {
	t.Helper()
	origVersion, origCommit, origDate := version, gitCommit, buildDate
	defer func() {
		version, gitCommit, buildDate = origVersion, origCommit, origDate
	}()
	version, gitCommit, buildDate = v, commit, date
	fn()
}

func TestGetVersion(t *testing.T) {
	if v := GetVersion(); v == "" {
		t.Error("GetVersion() returned empty string")
	}
}

func TestGetVersion_NonDev(t *testing.T) {
	withVersionVars(t, "1.0.0", "", "", func() {
		if v := GetVersion(); v != "1.0.0" {
			t.Errorf("Expected '1.0.0', got '%s'", v)
		}
	})
}

func TestGetCommit_FromLdflags(t *testing.T) {
	withVersionVars(t, "dev", "abc1234", "", func() {
		if c := GetCommit(); c != "abc1234" {
			t.Errorf("Expected 'abc1234', got '%s'", c)
		}
	})
}

func TestString_WithLdflags(t *testing.T) {
	withVersionVars(t, "2.0.0", "def4567", "2026-06-15", func() {
		s := String()
		for _, want := range []string{"2.0.0", "def4567", "2026-06-15"} {
			if !strings.Contains(s, want) {
				t.Errorf("Version string should contain '%s', got: %s", want, s)
			}
		}
	})
}
