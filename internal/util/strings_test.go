package util

import (
	"reflect"
	"testing"
)

func TestSafeTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "longer than max", input: "very-long-state-abc123", maxLen: 8, want: "very-lon"},
		{name: "shorter than max", input: "short", maxLen: 10, want: "short"},
		{name: "exact length", input: "12345678", maxLen: 8, want: "12345678"},
		{name: "empty string", input: "", maxLen: 8, want: ""},
		{name: "zero max", input: "abc", maxLen: 0, want: ""},
		{name: "negative max", input: "abc", maxLen: -1, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeTruncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("SafeTruncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single value",
			input: "http://localhost:3000/oauth/callback",
			want:  []string{"http://localhost:3000/oauth/callback"},
		},
		{
			name:  "multiple with spaces",
			input: " https://app.example.com/cb , http://localhost:3000/cb",
			want:  []string{"https://app.example.com/cb", "http://localhost:3000/cb"},
		},
		{
			name:  "trailing comma",
			input: "a,b,",
			want:  []string{"a", "b"},
		},
		{
			name:  "empty segments",
			input: ",, ,",
			want:  []string{},
		},
		{
			name:  "empty string",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitAndTrim(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitAndTrim(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
