package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Provider identifies a supported social login provider. The set is
// closed; adding a provider means extending every switch below.
type Provider string

const (
	Kakao  Provider = "KAKAO"
	Naver  Provider = "NAVER"
	Google Provider = "GOOGLE"
	Apple  Provider = "APPLE"
)

var ErrUnknownProvider = errors.New("unknown provider")

// ParseProvider maps a registration id (case-insensitive) to a Provider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToUpper(strings.TrimSpace(s))) {
	case Kakao:
		return Kakao, nil
	case Naver:
		return Naver, nil
	case Google:
		return Google, nil
	case Apple:
		return Apple, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

// UsesIDToken reports whether the provider authenticates via an OIDC
// id_token rather than a userinfo endpoint.
func (p Provider) UsesIDToken() bool {
	return p == Apple
}

func (p Provider) String() string { return string(p) }

// ExternalIdentity is the provider-neutral view of an authenticated
// social account.
type ExternalIdentity struct {
	Provider  Provider
	SubjectID string
	Nickname  string
	Email     string
	AvatarURL string

	// RevokeToken is the provider token needed to sever the social link
	// later. Apple only hands out its refresh token on the first login.
	RevokeToken string
}

// ExtractIdentity maps a provider's raw claim document to an
// ExternalIdentity. The claim layout differs per provider; unknown
// providers and claims missing a subject are errors.
func ExtractIdentity(p Provider, claims map[string]any) (*ExternalIdentity, error) {
	id := &ExternalIdentity{Provider: p}
	switch p {
	case Kakao:
		id.SubjectID = stringClaim(claims, "id")
		props := mapClaim(claims, "properties")
		id.Nickname = stringClaim(props, "nickname")
		id.AvatarURL = stringClaim(props, "profile_image")
		account := mapClaim(claims, "kakao_account")
		id.Email = stringClaim(account, "email")
	case Naver:
		resp := mapClaim(claims, "response")
		id.SubjectID = stringClaim(resp, "id")
		id.Nickname = stringClaim(resp, "nickname")
		id.Email = stringClaim(resp, "email")
		id.AvatarURL = stringClaim(resp, "profile_image")
	case Google:
		id.SubjectID = stringClaim(claims, "sub")
		id.Nickname = stringClaim(claims, "name")
		id.Email = stringClaim(claims, "email")
		id.AvatarURL = stringClaim(claims, "picture")
	case Apple:
		id.SubjectID = stringClaim(claims, "sub")
		id.Email = stringClaim(claims, "email")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, p)
	}
	if id.SubjectID == "" {
		return nil, fmt.Errorf("%s claims carry no subject identifier", p)
	}
	return id, nil
}

// stringClaim reads m[key] as a string, rendering JSON numbers (Kakao
// sends its id as one) without an exponent.
func stringClaim(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func mapClaim(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}
