package harvest

import (
	"context"
	"net/http"
)

// User is the Harvest user payload.
type User struct {
	ID                         int64    `json:"id"`
	FirstName                  string   `json:"first_name"`
	LastName                   string   `json:"last_name"`
	Email                      string   `json:"email"`
	Telephone                  string   `json:"telephone"`
	Timezone                   string   `json:"timezone"`
	WeeklyCapacity             float64  `json:"weekly_capacity"`
	HasAccessToFutureProjects  bool     `json:"has_access_to_all_future_projects"`
	IsContractor               bool     `json:"is_contractor"`
	IsActive                   bool     `json:"is_active"`
	CalendarIntegrationEnabled bool     `json:"calendar_integration_enabled"`
	CalendarIntegrationSource  string   `json:"calendar_integration_source"`
	CreatedAt                  string   `json:"created_at"`
	UpdatedAt                  string   `json:"updated_at"`
	CanCreateProjects          bool     `json:"can_create_projects"`
	Roles                      []string `json:"roles"`
	AccessRoles                []string `json:"access_roles"`
	PermissionsClaims          []string `json:"permissions_claims"`
	AvatarURL                  string   `json:"avatar_url"`
}

// GetCurrentUser fetches the authenticated user.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.Do(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
