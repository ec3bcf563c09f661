package harvest

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// UserAssignment links a user to a project within a time entry.
type UserAssignment struct {
	ID               int64   `json:"id"`
	IsProjectManager bool    `json:"is_project_manager"`
	IsActive         bool    `json:"is_active"`
	Budget           float64 `json:"budget"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
	HourlyRate       float64 `json:"hourly_rate"`
}

// TimeEntry is the Harvest time entry payload.
type TimeEntry struct {
	ID                int64          `json:"id"`
	SpentDate         string         `json:"spent_date"`
	User              User           `json:"user"`
	Client            ClientInfo     `json:"client"`
	Project           Project        `json:"project"`
	Task              Task           `json:"task"`
	UserAssignment    UserAssignment `json:"user_assignment"`
	TaskAssignment    TaskAssignment `json:"task_assignment"`
	Hours             float64        `json:"hours"`
	RoundedHours      float64        `json:"rounded_hours"`
	Notes             string         `json:"notes"`
	CreatedAt         string         `json:"created_at"`
	UpdatedAt         string         `json:"updated_at"`
	IsLocked          bool           `json:"is_locked"`
	LockedReason      string         `json:"locked_reason"`
	IsClosed          bool           `json:"is_closed"`
	IsBilled          bool           `json:"is_billed"`
	TimerStartedAt    string         `json:"timer_started_at"`
	StartedTime       string         `json:"started_time"`
	EndedTime         string         `json:"ended_time"`
	IsRunning         bool           `json:"is_running"`
	Billable          bool           `json:"billable"`
	Budgeted          bool           `json:"budgeted"`
	BillableRate      float64        `json:"billable_rate"`
	CostRate          float64        `json:"cost_rate"`
	ExternalReference any            `json:"external_reference"`
}

// CreateTimeEntryInput creates a time entry against a project and task.
// Without Hours the entry starts a running timer.
type CreateTimeEntryInput struct {
	ProjectID int64    `json:"project_id"`
	TaskID    int64    `json:"task_id"`
	SpentDate string   `json:"spent_date,omitempty"`
	Hours     *float64 `json:"hours,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// UpdateTimeEntryInput updates a time entry by id. Nil fields are left
// unchanged.
type UpdateTimeEntryInput struct {
	ID        int64    `json:"-"`
	ProjectID *int64   `json:"project_id,omitempty"`
	TaskID    *int64   `json:"task_id,omitempty"`
	SpentDate *string  `json:"spent_date,omitempty"`
	Hours     *float64 `json:"hours,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
}

// CreateTimeEntry creates a time entry. SpentDate defaults to now.
func (c *Client) CreateTimeEntry(ctx context.Context, input CreateTimeEntryInput) (*TimeEntry, error) {
	if input.SpentDate == "" {
		input.SpentDate = time.Now().Format(time.RFC3339)
	}

	var entry TimeEntry
	if err := c.Do(ctx, http.MethodPost, "/time_entries", input, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateTimeEntry applies a partial update to a time entry.
func (c *Client) UpdateTimeEntry(ctx context.Context, input UpdateTimeEntryInput) (*TimeEntry, error) {
	var entry TimeEntry
	path := fmt.Sprintf("/time_entries/%d", input.ID)
	if err := c.Do(ctx, http.MethodPatch, path, input, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteTimeEntry deletes a time entry by id.
func (c *Client) DeleteTimeEntry(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/time_entries/%d", id)
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}
