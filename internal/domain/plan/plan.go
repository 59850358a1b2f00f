// Package plan describes subscription plans and the usage limits of the
// Free plan.
package plan

import "math"

// Plan is the subscription tier stored in perfis_usuarios.plano.
type Plan string

const (
	Free    Plan = "free"
	Premium Plan = "premium"
)

// Normalize returns Free for unknown or empty values.
func Normalize(p string) Plan {
	if Plan(p) == Premium {
		return Premium
	}
	return Free
}

// Resource is a countable thing subject to a limit.
type Resource string

const (
	Produtos           Resource = "produtos"
	Receitas           Resource = "receitas"
	Marketplaces       Resource = "marketplaces"
	VendasMes          Resource = "vendas_mes"
	CategoriasProdutos Resource = "categorias_produtos"
	CategoriasInsumos  Resource = "categorias_insumos"
	CategoriasDespesas Resource = "categorias_despesas"
)

// Unlimited is the limit reported for premium users and unknown resources.
const Unlimited = math.MaxInt

// FreeLimits are the thresholds of the Free plan.
var FreeLimits = map[Resource]int{
	Produtos:           3,
	Receitas:           2,
	Marketplaces:       1,
	VendasMes:          30,
	CategoriasProdutos: 2,
	CategoriasInsumos:  2,
	CategoriasDespesas: 3,
}

// CategoryResource maps a categorias.tipo value to its limited resource.
func CategoryResource(tipo string) (Resource, bool) {
	switch tipo {
	case "produtos":
		return CategoriasProdutos, true
	case "insumos":
		return CategoriasInsumos, true
	case "despesas":
		return CategoriasDespesas, true
	default:
		return "", false
	}
}

// Level is the banner severity for a usage value.
type Level string

const (
	LevelOK      Level = "ok"
	LevelWarning Level = "warning"
	LevelReached Level = "reached"
)

// warningPercent is the usage ratio at which a warning is raised.
const warningPercent = 70

// Usage is the result of a limit check.
type Usage struct {
	Resource  Resource `json:"resource"`
	Current   int      `json:"current"`
	Limit     int      `json:"limit"`
	Unlimited bool     `json:"unlimited"`
	Reached   bool     `json:"reached"`
	Percent   int      `json:"percent"`
	Level     Level    `json:"level"`
}

// NewUsage computes Reached, Percent and Level for current against limit.
func NewUsage(r Resource, current, limit int) Usage {
	u := Usage{Resource: r, Current: current, Limit: limit}
	if limit == Unlimited {
		u.Unlimited = true
		u.Level = LevelOK
		return u
	}
	u.Reached = current >= limit
	if limit > 0 {
		u.Percent = min(100, int(math.Round(float64(current)/float64(limit)*100)))
	} else {
		u.Percent = 100
	}
	switch {
	case u.Reached:
		u.Level = LevelReached
	case u.Percent >= warningPercent:
		u.Level = LevelWarning
	default:
		u.Level = LevelOK
	}
	return u
}

// UnlimitedUsage is reported for premium users.
func UnlimitedUsage(r Resource) Usage {
	return NewUsage(r, 0, Unlimited)
}
