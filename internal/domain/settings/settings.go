// Package settings holds the key/value business configuration stored in the
// configuracoes table.
package settings

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Well-known keys.
const (
	KeyPesoBotijaoGas    = "peso_botijao_gas"
	KeyPrecoBotijaoGas   = "preco_botijao_gas"
	KeyCustoKWh          = "custo_kwh"
	KeyCustoMaoObraHora  = "custo_mao_obra_hora"
	KeyMargemLucroPadrao = "margem_lucro_padrao"
	KeyMoeda             = "moeda"
	KeyTimezone          = "timezone"
)

// DefaultCategory is used when Set is called without a category.
const DefaultCategory = "geral"

// Type is the declared type of a stored value.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
)

// Entry is one row of configuracoes.
type Entry struct {
	Key         string    `json:"chave"`
	Value       string    `json:"valor"`
	Type        Type      `json:"tipo"`
	Description string    `json:"descricao"`
	Category    string    `json:"categoria"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// NewEntry builds an Entry from a Go value, inferring its Type. Description
// defaults to the key and Category to DefaultCategory.
func NewEntry(key string, value any, description, category string) Entry {
	if description == "" {
		description = key
	}
	if category == "" {
		category = DefaultCategory
	}
	str, typ := Encode(value)
	return Entry{Key: key, Value: str, Type: typ, Description: description, Category: category}
}

// Encode renders a value as stored text and reports its Type.
func Encode(value any) (string, Type) {
	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v), TypeBoolean
	case int:
		return strconv.Itoa(v), TypeNumber
	case int64:
		return strconv.FormatInt(v, 10), TypeNumber
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), TypeNumber
	case decimal.Decimal:
		return v.String(), TypeNumber
	case string:
		return v, TypeString
	case nil:
		return "", TypeString
	default:
		return fmt.Sprint(v), TypeString
	}
}

// ParseBool interprets stored text as a boolean: "true", "1" and "yes" are
// true, case-insensitively.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// PreloadKeys are the keys loaded into the cache at startup.
func PreloadKeys() []string {
	return []string{
		KeyPesoBotijaoGas,
		KeyPrecoBotijaoGas,
		KeyCustoKWh,
		KeyCustoMaoObraHora,
		KeyMargemLucroPadrao,
	}
}
