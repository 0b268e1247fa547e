package logging

import "testing"

func TestPriorityOrdering(t *testing.T) {
	ordered := []string{LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical}
	for i := 1; i < len(ordered); i++ {
		if Priority(ordered[i-1]) >= Priority(ordered[i]) {
			t.Errorf("Priority(%s)=%d not below Priority(%s)=%d",
				ordered[i-1], Priority(ordered[i-1]), ordered[i], Priority(ordered[i]))
		}
	}
}

func TestPriorityAcceptsAliasesAndCase(t *testing.T) {
	if Priority("WARN") != Priority(LevelWarning) {
		t.Errorf("WARN should rank as WARNING")
	}
	if Priority("warn") != Priority(LevelWarning) {
		t.Errorf("warn should rank as WARNING")
	}
	if Priority("  debug ") != Priority(LevelDebug) {
		t.Errorf("whitespace and case should not affect ranking")
	}
}

func TestPriorityUnknownRanksAsInfo(t *testing.T) {
	for _, lvl := range []string{"", "TRACE", "NOTICE", "garbage"} {
		if Priority(lvl) != Priority(LevelInfo) {
			t.Errorf("Priority(%q)=%d, want INFO rank %d", lvl, Priority(lvl), Priority(LevelInfo))
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"debug":    LevelDebug,
		"INFO":     LevelInfo,
		"warn":     LevelWarning,
		"WARNING":  LevelWarning,
		"error":    LevelError,
		"CRITICAL": LevelCritical,
		"bogus":    LevelInfo,
		"":         LevelInfo,
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestShouldWrite(t *testing.T) {
	if !ShouldWrite(LevelError, LevelWarning) {
		t.Error("ERROR must pass a WARNING gate")
	}
	if !ShouldWrite(LevelWarning, LevelWarning) {
		t.Error("a level must pass its own gate")
	}
	if ShouldWrite(LevelDebug, LevelInfo) {
		t.Error("DEBUG must not pass an INFO gate")
	}
	// Unknown record levels rank as INFO and are filtered accordingly.
	if ShouldWrite("mystery", LevelWarning) {
		t.Error("unknown level must not pass a WARNING gate")
	}
	if !ShouldWrite("mystery", LevelInfo) {
		t.Error("unknown level must pass an INFO gate")
	}
}
