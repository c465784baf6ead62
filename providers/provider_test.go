package providers

import (
	"errors"
	"testing"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{"kakao", Kakao, false},
		{"KAKAO", Kakao, false},
		{" naver ", Naver, false},
		{"Google", Google, false},
		{"apple", Apple, false},
		{"github", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownProvider) {
					t.Errorf("expected ErrUnknownProvider, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseProvider(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestProvider_UsesIDToken(t *testing.T) {
	for _, p := range []Provider{Kakao, Naver, Google} {
		if p.UsesIDToken() {
			t.Errorf("%s should not use id_token", p)
		}
	}
	if !Apple.UsesIDToken() {
		t.Error("Apple should use id_token")
	}
}

func TestExtractIdentity(t *testing.T) {
	tests := []struct {
		name   string
		p      Provider
		claims map[string]any
		want   ExternalIdentity
	}{
		{
			name: "kakao numeric id and nested maps",
			p:    Kakao,
			claims: map[string]any{
				"id": float64(3141592653),
				"properties": map[string]any{
					"nickname":      "철수",
					"profile_image": "https://k.kakaocdn.net/img.png",
				},
				"kakao_account": map[string]any{"email": "cs@example.com"},
			},
			want: ExternalIdentity{
				Provider:  Kakao,
				SubjectID: "3141592653",
				Nickname:  "철수",
				Email:     "cs@example.com",
				AvatarURL: "https://k.kakaocdn.net/img.png",
			},
		},
		{
			name: "naver wraps everything in response",
			p:    Naver,
			claims: map[string]any{
				"resultcode": "00",
				"response": map[string]any{
					"id":            "naver-uid-1",
					"nickname":      "영희",
					"email":         "yh@example.com",
					"profile_image": "https://phinf.net/p.png",
				},
			},
			want: ExternalIdentity{
				Provider:  Naver,
				SubjectID: "naver-uid-1",
				Nickname:  "영희",
				Email:     "yh@example.com",
				AvatarURL: "https://phinf.net/p.png",
			},
		},
		{
			name: "google flat claims",
			p:    Google,
			claims: map[string]any{
				"sub":     "108123",
				"name":    "Jamie",
				"email":   "jamie@example.com",
				"picture": "https://lh3.googleusercontent.com/a.jpg",
			},
			want: ExternalIdentity{
				Provider:  Google,
				SubjectID: "108123",
				Nickname:  "Jamie",
				Email:     "jamie@example.com",
				AvatarURL: "https://lh3.googleusercontent.com/a.jpg",
			},
		},
		{
			name:   "apple id_token claims",
			p:      Apple,
			claims: map[string]any{"sub": "001234.abcd", "email": "priv@privaterelay.appleid.com"},
			want: ExternalIdentity{
				Provider:  Apple,
				SubjectID: "001234.abcd",
				Email:     "priv@privaterelay.appleid.com",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractIdentity(tt.p, tt.claims)
			if err != nil {
				t.Fatalf("ExtractIdentity: %v", err)
			}
			if *got != tt.want {
				t.Errorf("ExtractIdentity = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestExtractIdentity_Errors(t *testing.T) {
	tests := []struct {
		name   string
		p      Provider
		claims map[string]any
	}{
		{"missing subject", Google, map[string]any{"email": "x@example.com"}},
		{"kakao without id", Kakao, map[string]any{"properties": map[string]any{}}},
		{"naver without response", Naver, map[string]any{"resultcode": "00"}},
		{"nil claims", Apple, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExtractIdentity(tt.p, tt.claims); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := ExtractIdentity(Provider("GITHUB"), map[string]any{"sub": "1"}); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}
