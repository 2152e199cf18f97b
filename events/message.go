package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/site-planner/planning"
)

// Message is the JSON body of a published event.
type Message struct {
	Type           planning.EventType `json:"type"`
	At             time.Time          `json:"at"`
	AssignmentID   string             `json:"assignment_id"`
	ResourceID     string             `json:"resource_id"`
	ResourceKind   string             `json:"resource_kind"`
	SiteID         string             `json:"site_id"`
	Title          string             `json:"title,omitempty"`
	Start          planning.Day       `json:"start"`
	End            planning.Day       `json:"end"`
	Percent        int                `json:"percent_of_capacity"`
	HoursPerDay    *decimal.Decimal   `json:"hours_per_day,omitempty"`
	Status         planning.Status    `json:"status"`
	PreviousStatus planning.Status    `json:"previous_status,omitempty"`
	Overcommitted  bool               `json:"overcommitted"`
}

func NewMessage(e planning.Event) Message {
	a := e.Assignment
	return Message{
		Type:           e.Type,
		At:             e.At.UTC(),
		AssignmentID:   string(a.ID),
		ResourceID:     string(a.ResourceID),
		ResourceKind:   string(a.ResourceKind),
		SiteID:         string(a.SiteID),
		Title:          a.Title,
		Start:          a.Window.Start,
		End:            a.Window.End,
		Percent:        a.PercentOfCapacity,
		HoursPerDay:    a.HoursPerDay,
		Status:         a.Status,
		PreviousStatus: e.Previous,
		Overcommitted:  e.Overcommitted,
	}
}
