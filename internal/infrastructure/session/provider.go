package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// Identity is the signed-in staff member the service acts for
type Identity struct {
	UserID     string `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	HospitalID string `json:"hospital_id,omitempty"`
}

// userInfo accepts the field spellings used by the backend's login response
type userInfo struct {
	ID           json.RawMessage `json:"id"`
	UserID       json.RawMessage `json:"_id"`
	Name         string          `json:"name"`
	Role         string          `json:"role"`
	HospitalID   json.RawMessage `json:"hospitalId"`
	HospitalIDv2 json.RawMessage `json:"hospital_id"`
}

// Provider holds the process-wide session. It is populated once at startup
// and only ever cleared afterwards.
type Provider struct {
	mu       sync.RWMutex
	token    string
	identity *Identity
}

// NewProvider builds a session from the backend API token and the optional
// user-info JSON. When user info is absent the identity is read from the
// token's claims; the token signature is the backend's to verify.
func NewProvider(token, userInfoJSON string) (*Provider, error) {
	p := &Provider{token: strings.TrimSpace(token)}

	switch {
	case strings.TrimSpace(userInfoJSON) != "":
		identity, err := parseUserInfo(userInfoJSON)
		if err != nil {
			return nil, err
		}
		p.identity = identity
	case p.token != "":
		identity, err := identityFromToken(p.token)
		if err != nil {
			log.Warn().Err(err).Msg("Backend token carries no readable identity")
		} else {
			p.identity = identity
		}
	}

	if p.identity != nil {
		log.Info().
			Str("user_id", p.identity.UserID).
			Str("role", p.identity.Role).
			Msg("Session initialized")
	}
	return p, nil
}

// Token returns the bearer token, empty after Clear
func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// Identity returns a copy of the current identity, or nil when signed out
func (p *Provider) Identity() *Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.identity == nil {
		return nil
	}
	identity := *p.identity
	return &identity
}

// Authenticated reports whether a token is present
func (p *Provider) Authenticated() bool {
	return p.Token() != ""
}

// HasRole reports whether the current identity holds one of roles
func (p *Provider) HasRole(roles ...string) bool {
	return p.Identity().HasRole(roles...)
}

// HasRole reports whether the identity holds one of roles. Role names are
// compared after normalization.
func (i *Identity) HasRole(roles ...string) bool {
	if i == nil {
		return false
	}
	for _, role := range roles {
		if i.Role == normalizeRole(role) {
			return true
		}
	}
	return false
}

// Clear signs the session out
func (p *Provider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	p.identity = nil
	log.Info().Msg("Session cleared")
}

func parseUserInfo(raw string) (*Identity, error) {
	var info userInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("invalid user info JSON: %w", err)
	}

	identity := &Identity{
		UserID:     firstScalar(info.ID, info.UserID),
		Name:       info.Name,
		Role:       normalizeRole(info.Role),
		HospitalID: firstScalar(info.HospitalID, info.HospitalIDv2),
	}
	if identity.UserID == "" && identity.Role == "" {
		return nil, fmt.Errorf("user info has neither id nor role")
	}
	return identity, nil
}

func identityFromToken(token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to read token claims: %w", err)
	}

	identity := identityFromClaims(claims)
	if identity.UserID == "" && identity.Role == "" {
		return nil, fmt.Errorf("token has neither id nor role claim")
	}
	return identity, nil
}

func identityFromClaims(claims jwt.MapClaims) *Identity {
	return &Identity{
		UserID:     claimString(claims, "id", "userId", "sub"),
		Name:       claimString(claims, "name"),
		Role:       normalizeRole(claimString(claims, "role")),
		HospitalID: claimString(claims, "hospitalId", "hospital_id"),
	}
}

func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

func firstScalar(values ...json.RawMessage) string {
	for _, raw := range values {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

// normalizeRole folds "Hospital Admin", "hospital_admin" and "hospital-admin" together
func normalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(role)
}
