/*
registry.go - Resource kind registration and lookup

PURPOSE:
  Provides a registry for domain packages to register the rules that
  differ between resource kinds: how daily hours are normalized and how
  an assignment's cost is derived from the resource's rates.

HOW IT WORKS:
  1. Domain packages (crew, fleet) implement KindProfile
  2. They register it from init()
  3. AssignmentService and EstimateCost look the profile up by kind

USAGE:
  // In crew/profile.go
  func init() {
      planning.RegisterKind(Profile{})
  }

  p := planning.LookupKind(planning.KindEmployee)

WHY A REGISTRY:
  - The planning package stays free of per-kind pricing rules
  - Domains own their own defaults and validation

SEE ALSO:
  - crew/profile.go: Employee profile
  - fleet/profile.go: Equipment profile
*/
package planning

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// KindProfile holds the kind-specific rules.
type KindProfile interface {
	// Kind returns the resource kind this profile applies to.
	Kind() ResourceKind

	// NormalizeHours validates the daily hours of an assignment and applies
	// defaults. Kinds that do not use hours return nil.
	NormalizeHours(hours *decimal.Decimal) (*decimal.Decimal, error)

	// Cost derives the amount for days calendar days. known is false when a
	// required rate is missing.
	Cost(a Assignment, r Resource, days int) (amount decimal.Decimal, known bool)
}

// =============================================================================
// KIND REGISTRY
// =============================================================================

var (
	kindRegistry = make(map[ResourceKind]KindProfile)
	registryMu   sync.RWMutex
)

// RegisterKind adds a profile to the global registry, replacing any
// previous profile for the same kind.
func RegisterKind(p KindProfile) {
	registryMu.Lock()
	defer registryMu.Unlock()
	kindRegistry[p.Kind()] = p
}

// LookupKind finds a registered profile. Returns nil if not found.
func LookupKind(kind ResourceKind) KindProfile {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return kindRegistry[kind]
}

// ListKinds returns the registered kinds in name order.
func ListKinds() []ResourceKind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]ResourceKind, 0, len(kindRegistry))
	for k := range kindRegistry {
		result = append(result, k)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
