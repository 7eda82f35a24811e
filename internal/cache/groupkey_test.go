package cache

import "testing"

func TestGroupKeyForName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"numbered variant", "demowki001.jpg", "demowki"},
		{"another variant shares key", "demowki140.jpg", "demowki"},
		{"separator before number", "wedding_2024-003.png", "wedding_2024"},
		{"diacritics folded", "Demówki007.jpg", "demowki"},
		{"no number", "portrait.jpg", "portrait"},
		{"spaces sanitized", "summer trip 01.jpg", "summer_trip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GroupKeyForName(tt.input); got != tt.expected {
				t.Errorf("GroupKeyForName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGroupKeyForNameFallsBackToHash(t *testing.T) {
	got := GroupKeyForName("488.jpg")
	if got == "" {
		t.Fatal("expected non-empty key")
	}
	if len(got) != 16 {
		t.Errorf("expected 16-char hash fallback, got %q", got)
	}
}

func TestSplitURL(t *testing.T) {
	group1, item1 := SplitURL("https://klient.example.pl/download.php?mode=api_preview&access=abc&file=demowki001.jpg")
	if item1 != "demowki001.jpg" {
		t.Errorf("item = %q, want demowki001.jpg", item1)
	}

	// Same album, next file: same group.
	group2, _ := SplitURL("https://klient.example.pl/download.php?mode=api_preview&access=abc&file=demowki002.jpg")
	if group1 != group2 {
		t.Errorf("same album produced different groups: %q vs %q", group1, group2)
	}

	// Different album (access token), same file name: different group.
	group3, _ := SplitURL("https://klient.example.pl/download.php?mode=api_preview&access=xyz&file=demowki001.jpg")
	if group1 == group3 {
		t.Error("different albums share a group key")
	}

	// Plain path URLs use the last path element.
	_, item4 := SplitURL("https://cdn.example.com/albums/trip/photo42.jpg")
	if item4 != "photo42.jpg" {
		t.Errorf("item = %q, want photo42.jpg", item4)
	}
}
