package factory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/warp/site-planner/crew"
	"github.com/warp/site-planner/factory"
	_ "github.com/warp/site-planner/fleet"
	"github.com/warp/site-planner/planning"
	"github.com/warp/site-planner/planning/store"
)

const sampleCatalog = `{
  "resources": [
    {"id": "emp-1", "kind": "employee", "display_name": "Ana Pop", "hourly_rate": "20.00"},
    {"id": "exc-1", "kind": "Equipment", "display_name": "Excavator", "daily_rate": 350,
     "equipment": {"fuel_litres_per_hour": 12, "fuel_price_per_litre": "1.75", "annual_working_hours": 1600}},
    {"id": "emp-9", "kind": "employee", "display_name": "Retired", "active": false}
  ],
  "sites": [{"id": "site-a", "name": "Riverside"}],
  "assignments": [
    {"resource_id": "emp-1", "site_id": "site-a", "start": "2025-01-01", "end": "2025-01-05",
     "percent_of_capacity": 60, "hours_per_day": 8},
    {"resource_id": "exc-1", "site_id": "site-a", "start": "2025-01-02", "end": "2025-01-03",
     "percent_of_capacity": 100}
  ]
}`

func TestParseCatalog(t *testing.T) {
	cat, err := factory.ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)

	require.Len(t, cat.Resources, 3)
	emp := cat.Resources[0]
	assert.Equal(t, planning.KindEmployee, emp.Kind)
	assert.True(t, emp.Active, "active defaults to true")
	assert.True(t, emp.HourlyRate.Equal(decimal.NewFromInt(20)))

	exc := cat.Resources[1]
	assert.Equal(t, planning.KindEquipment, exc.Kind, "kind is case-insensitive")
	assert.True(t, exc.DailyRate.Equal(decimal.NewFromInt(350)))
	require.NotNil(t, exc.Equipment)
	assert.Equal(t, 1600, *exc.Equipment.AnnualWorkingHours)
	assert.False(t, cat.Resources[2].Active)

	require.Len(t, cat.Sites, 1)
	assert.Equal(t, "active", cat.Sites[0].Status)

	require.Len(t, cat.Assignments, 2)
	first := cat.Assignments[0]
	assert.Equal(t, planning.MustParseDay("2025-01-01"), first.Window.Start)
	assert.Equal(t, 5, first.Window.DayCount())
	assert.Equal(t, 60, first.PercentOfCapacity)
}

func TestParseCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"resources": [`},
		{"unknown field", `{"resorces": []}`},
		{"bad kind", `{"resources": [{"id": "x", "kind": "robot"}]}`},
		{"missing id", `{"resources": [{"kind": "employee"}]}`},
		{"negative rate", `{"resources": [{"id": "x", "kind": "employee", "hourly_rate": -1}]}`},
		{"daily rate on employee", `{"resources": [{"id": "x", "kind": "employee", "daily_rate": 10}]}`},
		{"equipment profile on employee", `{"resources": [{"id": "x", "kind": "employee", "equipment": {}}]}`},
		{"negative working hours", `{"resources": [{"id": "x", "kind": "equipment", "equipment": {"annual_working_hours": -5}}]}`},
		{"duplicate resource", `{"resources": [{"id": "x", "kind": "employee"}, {"id": "x", "kind": "employee"}]}`},
		{"site without id", `{"sites": [{"name": "Nowhere"}]}`},
		{"duplicate site", `{"sites": [{"id": "s"}, {"id": "s"}]}`},
		{"bad date", `{"assignments": [{"resource_id": "r", "site_id": "s", "start": "01/02/2025", "end": "2025-01-03"}]}`},
		{"missing end", `{"assignments": [{"resource_id": "r", "site_id": "s", "start": "2025-01-02"}]}`},
		{"backwards window", `{"assignments": [{"resource_id": "r", "site_id": "s", "start": "2025-01-05", "end": "2025-01-03"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.ParseCatalog([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestParseCatalog_ValidationErrorsAreClientErrors(t *testing.T) {
	_, err := factory.ParseCatalog([]byte(`{"resources": [{"id": "x", "kind": "robot"}]}`))
	assert.ErrorIs(t, err, planning.ErrValidation)
	assert.ErrorContains(t, err, "resources[0]")
}

func TestApply(t *testing.T) {
	// GIVEN: an empty store and planner
	ctx := context.Background()
	mem := store.NewMemory()
	planner := planning.NewPlanner(planning.NewAssignmentService(mem, mem), planning.NewAvailabilityEngine(mem))
	cat, err := factory.ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)

	// WHEN
	created, err := factory.Apply(ctx, cat, mem, planner)

	// THEN
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, planning.StatusPlanned, created[0].Status)
	assert.True(t, created[0].HoursPerDay.Equal(decimal.NewFromInt(8)))
	assert.Nil(t, created[1].HoursPerDay, "equipment assignments carry no hours")

	resources, err := mem.ListResources(ctx, "")
	require.NoError(t, err)
	assert.Len(t, resources, 3)
}

func TestApply_StopsAtFirstRejection(t *testing.T) {
	// GIVEN: two proposals that together exceed the 200% ceiling
	ctx := context.Background()
	mem := store.NewMemory()
	planner := planning.NewPlanner(planning.NewAssignmentService(mem, mem), planning.NewAvailabilityEngine(mem))
	cat, err := factory.ParseCatalog([]byte(`{
	  "resources": [{"id": "emp-1", "kind": "employee"}],
	  "sites": [{"id": "s"}],
	  "assignments": [
	    {"resource_id": "emp-1", "site_id": "s", "start": "2025-01-01", "end": "2025-01-02", "percent_of_capacity": 150},
	    {"resource_id": "emp-1", "site_id": "s", "start": "2025-01-02", "end": "2025-01-03", "percent_of_capacity": 100}
	  ]}`))
	require.NoError(t, err)

	// WHEN
	created, err := factory.Apply(ctx, cat, mem, planner)

	// THEN
	assert.ErrorIs(t, err, planning.ErrOvercommit)
	assert.Len(t, created, 1)
}
