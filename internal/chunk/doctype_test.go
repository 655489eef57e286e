package chunk

import "testing"

func TestDetectDocumentType(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"sportsbook", "All Sportsbook wagers settle at posted odds.", DocTypeSportsbookRules},
		{"betting", "In-play betting may be suspended.", DocTypeSportsbookRules},
		{"bonus", "The welcome BONUS requires a 5x rollover.", DocTypeBonusRules},
		{"privacy", "This Privacy notice explains our practices.", DocTypePrivacyPolicy},
		{"aml", "Money laundering is reported to authorities.", DocTypeAMLPolicy},
		{"terms", "These Terms govern your use of the service.", DocTypeTerms},
		{"general", "Contact support for help.", DocTypeGeneral},
		{"empty", "", DocTypeGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDocumentType(tt.text); got != tt.want {
				t.Errorf("DetectDocumentType(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectDocumentType_PriorityOrder(t *testing.T) {
	// Mentions both betting and bonus; the earlier rule wins.
	text := "Betting bonus terms for new customers."
	if got := DetectDocumentType(text); got != DocTypeSportsbookRules {
		t.Errorf("expected first-match priority %s, got %s", DocTypeSportsbookRules, got)
	}
}

func TestTokenizer_Windows(t *testing.T) {
	tok := NewTokenizer()

	short := tok.Windows([]string{"a", "b", "c"}, 5, 2)
	if len(short) != 1 || len(short[0]) != 3 {
		t.Fatalf("short stream should yield one window, got %v", short)
	}

	tokens := make([]string, 10)
	for i := range tokens {
		tokens[i] = string(rune('a' + i))
	}
	windows := tok.Windows(tokens, 4, 1)
	// Starts advance by size-overlap: 0, 3, 6 (final window reaches the end).
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}
	for i, w := range windows {
		if len(w) > 4 {
			t.Errorf("window %d exceeds size: %d", i, len(w))
		}
	}
	if windows[2][0] != "g" || len(windows[2]) != 4 {
		t.Errorf("unexpected final window %v", windows[2])
	}
}

func TestTokenizer_CountAndRoundTrip(t *testing.T) {
	tok := NewTokenizer()
	if got := tok.Count("  one   two\tthree "); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}
	if got := tok.Decode(tok.Encode("one two three")); got != "one two three" {
		t.Errorf("round trip = %q", got)
	}
	if got := tok.Count(""); got != 0 {
		t.Errorf("empty Count = %d", got)
	}
}
