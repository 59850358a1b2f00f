package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gelatohub/painel/internal/domain/plan"
	"github.com/gelatohub/painel/internal/ports"
)

// Tables counted by plan limits.
const (
	tableProdutos   = "produtos"
	tableReceitas   = "receitas"
	tableCategorias = "categorias"
	tablePedidos    = "pedidos"
)

// PlanLimitsOptions groups dependencies for PlanLimitsService. Both clients
// must be bound to the same caller.
type PlanLimitsOptions struct {
	Session ports.SessionClient
	Records ports.RecordClient
	Logger  *slog.Logger
	// Now and Location define "the current month"; they default to time.Now
	// and time.Local.
	Now      func() time.Time
	Location *time.Location
}

// PlanLimitsService reports how much of the Free plan a user has consumed.
// Counting failures are logged and reported as zero usage.
type PlanLimitsService struct {
	session ports.SessionClient
	records ports.RecordClient
	logger  *slog.Logger
	now     func() time.Time
	loc     *time.Location
}

// NewPlanLimitsService constructs a PlanLimitsService.
func NewPlanLimitsService(opts PlanLimitsOptions) *PlanLimitsService {
	s := &PlanLimitsService{
		session: opts.Session,
		records: opts.Records,
		logger:  opts.Logger,
		now:     opts.Now,
		loc:     opts.Location,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// UserPlan returns the caller's plan. Any failure yields plan.Free.
func (s *PlanLimitsService) UserPlan(ctx context.Context) plan.Plan {
	if s.session == nil {
		return plan.Free
	}
	sess, err := s.session.GetSession(ctx)
	if err != nil || sess == nil {
		return plan.Free
	}
	raw, err := s.session.QueryRow(ctx, ProfileTable, "id", sess.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "plan lookup failed", "user_id", sess.UserID, "error", err)
		return plan.Free
	}
	var row struct {
		Plano string `json:"plano"`
	}
	if err := json.Unmarshal(raw, &row); err != nil {
		s.logger.WarnContext(ctx, "plan row undecodable", "user_id", sess.UserID, "error", err)
		return plan.Free
	}
	return plan.Normalize(row.Plano)
}

// Products checks the produtos limit.
func (s *PlanLimitsService) Products(ctx context.Context) plan.Usage {
	return s.products(ctx, s.UserPlan(ctx))
}

// Recipes checks the active receitas limit.
func (s *PlanLimitsService) Recipes(ctx context.Context) plan.Usage {
	return s.recipes(ctx, s.UserPlan(ctx))
}

// Marketplaces checks the active marketplace limit.
func (s *PlanLimitsService) Marketplaces(ctx context.Context) plan.Usage {
	return s.marketplaces(ctx, s.UserPlan(ctx))
}

// MonthlySales checks the pedidos placed in the current month.
func (s *PlanLimitsService) MonthlySales(ctx context.Context) plan.Usage {
	return s.monthlySales(ctx, s.UserPlan(ctx))
}

// Categories checks the active categories of tipo. Unknown tipos are unlimited.
func (s *PlanLimitsService) Categories(ctx context.Context, tipo string) plan.Usage {
	if _, ok := plan.CategoryResource(tipo); !ok {
		return plan.UnlimitedUsage(plan.Resource("categorias_" + tipo))
	}
	return s.categories(ctx, s.UserPlan(ctx), tipo)
}

// Check dispatches on a resource name.
func (s *PlanLimitsService) Check(ctx context.Context, r plan.Resource) (plan.Usage, error) {
	if _, ok := plan.FreeLimits[r]; !ok {
		return plan.Usage{}, fmt.Errorf("unknown resource %q", r)
	}
	return s.checkFor(ctx, s.UserPlan(ctx), r)
}

func (s *PlanLimitsService) checkFor(ctx context.Context, p plan.Plan, r plan.Resource) (plan.Usage, error) {
	switch r {
	case plan.Produtos:
		return s.products(ctx, p), nil
	case plan.Receitas:
		return s.recipes(ctx, p), nil
	case plan.Marketplaces:
		return s.marketplaces(ctx, p), nil
	case plan.VendasMes:
		return s.monthlySales(ctx, p), nil
	case plan.CategoriasProdutos:
		return s.categories(ctx, p, "produtos"), nil
	case plan.CategoriasInsumos:
		return s.categories(ctx, p, "insumos"), nil
	case plan.CategoriasDespesas:
		return s.categories(ctx, p, "despesas"), nil
	default:
		return plan.Usage{}, fmt.Errorf("unknown resource %q", r)
	}
}

func (s *PlanLimitsService) products(ctx context.Context, p plan.Plan) plan.Usage {
	return s.check(ctx, p, plan.Produtos, tableProdutos)
}

func (s *PlanLimitsService) recipes(ctx context.Context, p plan.Plan) plan.Usage {
	return s.check(ctx, p, plan.Receitas, tableReceitas, ports.Eq("ativo", "true"))
}

func (s *PlanLimitsService) marketplaces(ctx context.Context, p plan.Plan) plan.Usage {
	return s.check(ctx, p, plan.Marketplaces, tableCategorias,
		ports.Eq("tipo", "marketplace"), ports.Eq("ativo", "true"))
}

func (s *PlanLimitsService) monthlySales(ctx context.Context, p plan.Plan) plan.Usage {
	start, end := MonthRange(s.now().In(s.loc))
	return s.check(ctx, p, plan.VendasMes, tablePedidos,
		ports.Filter{Column: "data_pedido", Op: ports.OpGte, Value: start.UTC().Format(time.RFC3339)},
		ports.Filter{Column: "data_pedido", Op: ports.OpLte, Value: end.UTC().Format(time.RFC3339)},
	)
}

func (s *PlanLimitsService) categories(ctx context.Context, p plan.Plan, tipo string) plan.Usage {
	r, _ := plan.CategoryResource(tipo)
	return s.check(ctx, p, r, tableCategorias, ports.Eq("tipo", tipo), ports.Eq("ativo", "true"))
}

// Summary is the usage of every limited resource.
type Summary struct {
	Plan   plan.Plan                    `json:"plan"`
	Limits map[plan.Resource]int        `json:"limits"`
	Usage  map[plan.Resource]plan.Usage `json:"usage"`
}

// Summary resolves the plan once and runs every check concurrently.
func (s *PlanLimitsService) Summary(ctx context.Context) Summary {
	p := s.UserPlan(ctx)
	out := Summary{
		Plan:   p,
		Limits: make(map[plan.Resource]int, len(plan.FreeLimits)),
		Usage:  make(map[plan.Resource]plan.Usage, len(plan.FreeLimits)),
	}
	for r, l := range plan.FreeLimits {
		out.Limits[r] = l
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for r := range plan.FreeLimits {
		g.Go(func() error {
			u, err := s.checkFor(gctx, p, r)
			if err != nil {
				return err
			}
			mu.Lock()
			out.Usage[r] = u
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "plan summary failed", "error", err)
	}
	return out
}

func (s *PlanLimitsService) check(ctx context.Context, p plan.Plan, r plan.Resource, table string, filters ...ports.Filter) plan.Usage {
	if p == plan.Premium {
		return plan.UnlimitedUsage(r)
	}
	limit, ok := plan.FreeLimits[r]
	if !ok {
		return plan.UnlimitedUsage(r)
	}
	return plan.NewUsage(r, s.count(ctx, table, filters...), limit)
}

func (s *PlanLimitsService) count(ctx context.Context, table string, filters ...ports.Filter) int {
	if s.records == nil {
		return 0
	}
	n, err := s.records.Count(ctx, table, filters...)
	if err != nil {
		s.logger.WarnContext(ctx, "count failed", "table", table, "error", err)
		return 0
	}
	return n
}

// MonthRange returns the first instant and the last second of t's month.
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := time.Date(t.Year(), t.Month()+1, 0, 23, 59, 59, 0, t.Location())
	return start, end
}
