/*
cost.go - Read-time cost projection

PURPOSE:
  Derives an estimated monetary cost for assignments from their duration and
  the resource's rates. Costs are never written back; they are recomputed
  every time they are requested.

RULES:
  days      = max(1, inclusive day count of the window)
  employee  = days * hoursPerDay * hourlyRate
  equipment = days * dailyRate

  The per-kind formulas live in the crew and fleet packages and are looked
  up through the kind registry.

NULL SAFETY:
  A missing (or negative) rate yields Amount 0 with CostKnown false. Missing
  optional inputs never produce an error, so callers can always tell
  "zero cost" from "cost unknown".

SEE ALSO:
  - registry.go: KindProfile.Cost
  - crew/profile.go, fleet/profile.go: The formulas
*/
package planning

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// CostEstimate is a projected cost. Amount is never negative.
type CostEstimate struct {
	Days      int
	Amount    decimal.Decimal
	CostKnown bool
}

// EstimateCost projects the cost of a on resource r.
func EstimateCost(a Assignment, r Resource) CostEstimate {
	days := a.Window.DayCount()
	unknown := CostEstimate{Days: days, Amount: decimal.Zero}

	profile := LookupKind(r.Kind)
	if profile == nil {
		return unknown
	}
	amount, known := profile.Cost(a, r, days)
	if !known || amount.IsNegative() {
		return unknown
	}
	return CostEstimate{Days: days, Amount: amount, CostKnown: true}
}

// =============================================================================
// SITE COSTS
// =============================================================================

// CostLine is the estimate of one assignment within a site summary.
type CostLine struct {
	Assignment Assignment
	Estimate   CostEstimate
}

// SiteCostSummary aggregates the non-cancelled assignments of a site.
type SiteCostSummary struct {
	SiteID       SiteID
	Employees    decimal.Decimal
	Equipment    decimal.Decimal
	Total        decimal.Decimal
	UnknownCount int
	Lines        []CostLine
}

// CostProjector computes cost reports across assignments.
type CostProjector struct {
	Store     AssignmentStore
	Directory Directory
}

func NewCostProjector(store AssignmentStore, dir Directory) *CostProjector {
	return &CostProjector{Store: store, Directory: dir}
}

// Estimate loads the resource of a and projects its cost.
func (p *CostProjector) Estimate(ctx context.Context, a Assignment) (CostEstimate, error) {
	res, err := p.Directory.GetResource(ctx, a.ResourceID)
	if err != nil {
		return CostEstimate{}, fmt.Errorf("load resource: %w", err)
	}
	if res == nil {
		return CostEstimate{}, &NotFoundError{Entity: "resource", ID: string(a.ResourceID)}
	}
	return EstimateCost(a, *res), nil
}

// SiteCosts sums the estimates of the site's non-cancelled assignments.
func (p *CostProjector) SiteCosts(ctx context.Context, siteID SiteID) (SiteCostSummary, error) {
	site, err := p.Directory.GetSite(ctx, siteID)
	if err != nil {
		return SiteCostSummary{}, fmt.Errorf("load site: %w", err)
	}
	if site == nil {
		return SiteCostSummary{}, &NotFoundError{Entity: "site", ID: string(siteID)}
	}

	assignments, err := p.Store.ListBySite(ctx, siteID, ListQuery{})
	if err != nil {
		return SiteCostSummary{}, fmt.Errorf("list assignments: %w", err)
	}

	summary := SiteCostSummary{
		SiteID:    siteID,
		Employees: decimal.Zero,
		Equipment: decimal.Zero,
		Total:     decimal.Zero,
		Lines:     make([]CostLine, 0, len(assignments)),
	}
	resources := make(map[ResourceID]*Resource)
	for _, a := range assignments {
		res, ok := resources[a.ResourceID]
		if !ok {
			res, err = p.Directory.GetResource(ctx, a.ResourceID)
			if err != nil {
				return SiteCostSummary{}, fmt.Errorf("load resource: %w", err)
			}
			resources[a.ResourceID] = res
		}

		est := CostEstimate{Days: a.Window.DayCount(), Amount: decimal.Zero}
		if res != nil {
			est = EstimateCost(a, *res)
		}
		if !est.CostKnown {
			summary.UnknownCount++
		}
		// Bucket by the kind EstimateCost priced the line with.
		kind := a.ResourceKind
		if res != nil {
			kind = res.Kind
		}
		switch kind {
		case KindEmployee:
			summary.Employees = summary.Employees.Add(est.Amount)
		case KindEquipment:
			summary.Equipment = summary.Equipment.Add(est.Amount)
		}
		summary.Total = summary.Total.Add(est.Amount)
		summary.Lines = append(summary.Lines, CostLine{Assignment: a, Estimate: est})
	}
	return summary, nil
}
