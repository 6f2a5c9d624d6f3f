package toolutil

import (
	"errors"
	"testing"
)

func TestParseVideoRef(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"", "", false},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"  dQw4w9WgXcQ ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"short", "", true},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", true},
	}
	for _, tt := range tests {
		got, err := ParseVideoRef(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrBadVideoRef) {
				t.Errorf("ParseVideoRef(%q) err = %v, want ErrBadVideoRef", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseVideoRef(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestWatchURL(t *testing.T) {
	if got := WatchURL("abc", 0); got != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("got %q", got)
	}
	if got := WatchURL("abc", 90.7); got != "https://www.youtube.com/watch?v=abc&t=90s" {
		t.Errorf("got %q", got)
	}
}
