package harvest

import (
	"context"
	"net/http"
)

// Project identifies a Harvest project within an assignment.
type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// ClientInfo identifies the client a project belongs to.
type ClientInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Task identifies a task within a task assignment.
type Task struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TaskAssignment links a task to a project with billing settings.
type TaskAssignment struct {
	ID         int64   `json:"id"`
	Billable   bool    `json:"billable"`
	IsActive   bool    `json:"is_active"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
	HourlyRate float64 `json:"hourly_rate"`
	Budget     float64 `json:"budget"`
	Task       Task    `json:"task"`
}

// ProjectAssignment is one project the current user can log time against,
// with its available tasks.
type ProjectAssignment struct {
	ID               int64            `json:"id"`
	IsProjectManager bool             `json:"is_project_manager"`
	IsActive         bool             `json:"is_active"`
	UseDefaultRates  bool             `json:"use_default_rates"`
	Budget           float64          `json:"budget"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
	HourlyRate       float64          `json:"hourly_rate"`
	Project          Project          `json:"project"`
	Client           ClientInfo       `json:"client"`
	TaskAssignments  []TaskAssignment `json:"task_assignments"`
}

// ProjectAssignmentsResponse is the response of the project assignments
// listing.
type ProjectAssignmentsResponse struct {
	ProjectAssignments []ProjectAssignment `json:"project_assignments"`
}

// GetProjectAssignments fetches the current user's project assignments.
func (c *Client) GetProjectAssignments(ctx context.Context) (*ProjectAssignmentsResponse, error) {
	var assignments ProjectAssignmentsResponse
	if err := c.Do(ctx, http.MethodGet, "/users/me/project_assignments", nil, &assignments); err != nil {
		return nil, err
	}
	return &assignments, nil
}
