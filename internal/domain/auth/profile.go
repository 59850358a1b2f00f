package auth

import (
	"encoding/json"
	"fmt"
)

// Profile is the authorization record of a user. It is resolved fresh on
// every access decision and never cached.
type Profile struct {
	ID        string `json:"id"`
	Nome      string `json:"nome"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	Ativo     bool   `json:"ativo"`
	Plano     string `json:"plano,omitempty"`
	AuthEmail string `json:"auth_email"`
	AuthID    string `json:"auth_id"`

	// Extra keeps the remaining columns of the profile row.
	Extra map[string]any `json:"-"`
}

// profileFields is an alias without methods so the default codec can be reused.
type profileFields Profile

var knownProfileKeys = []string{"id", "nome", "email", "role", "ativo", "plano", "auth_email", "auth_id"}

// UnmarshalJSON decodes a profile row, keeping unknown columns in Extra.
// Nullable text columns decode to the empty string.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}

	var f profileFields
	f.ID = stringField(raw, "id")
	f.Nome = stringField(raw, "nome")
	f.Email = stringField(raw, "email")
	f.Role = Role(stringField(raw, "role"))
	f.Plano = stringField(raw, "plano")
	f.AuthEmail = stringField(raw, "auth_email")
	f.AuthID = stringField(raw, "auth_id")
	if v, ok := raw["ativo"].(bool); ok {
		f.Ativo = v
	}

	for _, k := range knownProfileKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		f.Extra = raw
	}
	*p = Profile(f)
	return nil
}

// MarshalJSON emits the known fields merged with Extra.
func (p Profile) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+len(knownProfileKeys))
	for k, v := range p.Extra {
		out[k] = v
	}
	out["id"] = p.ID
	out["nome"] = p.Nome
	out["email"] = p.Email
	out["role"] = p.Role
	out["ativo"] = p.Ativo
	out["auth_email"] = p.AuthEmail
	out["auth_id"] = p.AuthID
	if p.Plano != "" {
		out["plano"] = p.Plano
	}
	return json.Marshal(out)
}

func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
