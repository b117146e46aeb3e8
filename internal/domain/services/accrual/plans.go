package accrual

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	domainerrors "github.com/chainvest-service/chainvest_service/internal/domain/errors"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/config"
)

// Catalog holds the configured investment plans, keyed by name
type Catalog struct {
	plans map[string]entities.InvestmentPlan
}

// NewCatalog builds the plan catalog from configuration
func NewCatalog(cfg config.PlansConfig) *Catalog {
	plans := make(map[string]entities.InvestmentPlan, len(cfg.Catalog))
	for _, p := range cfg.Catalog {
		plans[p.Name] = entities.InvestmentPlan{
			Name:         p.Name,
			ROI:          decimal.NewFromFloat(p.ROIPercent).Div(decimal.NewFromInt(100)),
			DurationDays: p.DurationDays,
			MinAmountUSD: decimal.NewFromFloat(p.MinAmountUSD),
			MaxAmountUSD: decimal.NewFromFloat(p.MaxAmountUSD),
		}
	}
	return &Catalog{plans: plans}
}

// Lookup returns the plan with the given name
func (c *Catalog) Lookup(name string) (entities.InvestmentPlan, error) {
	plan, ok := c.plans[name]
	if !ok {
		return entities.InvestmentPlan{}, domainerrors.InvalidPlanError(name)
	}
	return plan, nil
}

// List returns all plans sorted by minimum amount
func (c *Catalog) List() []entities.InvestmentPlan {
	plans := make([]entities.InvestmentPlan, 0, len(c.plans))
	for _, plan := range c.plans {
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].MinAmountUSD.LessThan(plans[j].MinAmountUSD)
	})
	return plans
}
