package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/site-planner/planning"
)

// =============================================================================
// DIRECTORY (planning.Directory interface + collaborator writes)
// =============================================================================

// equipmentRecord is the JSON column layout of planning.EquipmentProfile.
type equipmentRecord struct {
	FuelLitresPerHour     *decimal.Decimal `json:"fuel_litres_per_hour,omitempty"`
	FuelPricePerLitre     *decimal.Decimal `json:"fuel_price_per_litre,omitempty"`
	AnnualMaintenanceCost *decimal.Decimal `json:"annual_maintenance_cost,omitempty"`
	AnnualWorkingHours    *int             `json:"annual_working_hours,omitempty"`
	AmortizationTotal     *decimal.Decimal `json:"amortization_total,omitempty"`
	OperatorHourlyRate    *decimal.Decimal `json:"operator_hourly_rate,omitempty"`
}

// SaveResource creates or updates a resource.
func (s *Store) SaveResource(ctx context.Context, r planning.Resource) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var equipment sql.NullString
	if r.Equipment != nil {
		data, err := json.Marshal(equipmentRecord(*r.Equipment))
		if err != nil {
			return fmt.Errorf("failed to encode equipment profile: %w", err)
		}
		equipment = sql.NullString{String: string(data), Valid: true}
	}

	now := formatTime(time.Now())
	query := `
		INSERT INTO resources (id, kind, display_name, hourly_rate, daily_rate, active, equipment_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			display_name = excluded.display_name,
			hourly_rate = excluded.hourly_rate,
			daily_rate = excluded.daily_rate,
			active = excluded.active,
			equipment_json = excluded.equipment_json,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Kind, r.DisplayName,
		nullDecimal(r.HourlyRate), nullDecimal(r.DailyRate),
		r.Active, equipment, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save resource: %w", err)
	}
	return nil
}

// GetResource retrieves a resource by ID. Returns nil if it does not exist.
func (s *Store) GetResource(ctx context.Context, id planning.ResourceID) (*planning.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, err := s.queryResources(ctx,
		"SELECT id, kind, display_name, hourly_rate, daily_rate, active, equipment_json FROM resources WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// ListResources returns resources ordered by id. An empty kind lists all.
func (s *Store) ListResources(ctx context.Context, kind planning.ResourceKind) ([]planning.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, kind, display_name, hourly_rate, daily_rate, active, equipment_json FROM resources"
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	return s.queryResources(ctx, query+" ORDER BY id", args...)
}

func (s *Store) queryResources(ctx context.Context, query string, args ...any) ([]planning.Resource, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	resources := []planning.Resource{}
	for rows.Next() {
		var (
			r          planning.Resource
			hourlyRate sql.NullString
			dailyRate  sql.NullString
			equipment  sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Kind, &r.DisplayName, &hourlyRate, &dailyRate, &r.Active, &equipment); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		if r.HourlyRate, err = parseNullDecimal(hourlyRate); err != nil {
			return nil, fmt.Errorf("resource %s: %w", r.ID, err)
		}
		if r.DailyRate, err = parseNullDecimal(dailyRate); err != nil {
			return nil, fmt.Errorf("resource %s: %w", r.ID, err)
		}
		if equipment.Valid && equipment.String != "" {
			var rec equipmentRecord
			if err := json.Unmarshal([]byte(equipment.String), &rec); err != nil {
				return nil, fmt.Errorf("resource %s: invalid equipment profile: %w", r.ID, err)
			}
			profile := planning.EquipmentProfile(rec)
			r.Equipment = &profile
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

// SaveSite creates or updates a site.
func (s *Store) SaveSite(ctx context.Context, site planning.Site) error {
	if site.ID == "" {
		return &planning.ValidationError{Field: "id", Message: "site id is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO sites (id, name, status, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status
	`
	_, err := s.db.ExecContext(ctx, query, site.ID, site.Name, nullString(site.Status), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save site: %w", err)
	}
	return nil
}

// GetSite retrieves a site by ID. Returns nil if it does not exist.
func (s *Store) GetSite(ctx context.Context, id planning.SiteID) (*planning.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var site planning.Site
	var status sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, status FROM sites WHERE id = ?", id,
	).Scan(&site.ID, &site.Name, &status)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load site: %w", err)
	}
	site.Status = status.String
	return &site, nil
}

// ListSites returns all sites ordered by id.
func (s *Store) ListSites(ctx context.Context) ([]planning.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, status FROM sites ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	sites := []planning.Site{}
	for rows.Next() {
		var site planning.Site
		var status sql.NullString
		if err := rows.Scan(&site.ID, &site.Name, &status); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		site.Status = status.String
		sites = append(sites, site)
	}
	return sites, rows.Err()
}
