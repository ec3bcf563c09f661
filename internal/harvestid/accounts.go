package harvestid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Account is a single entry in the Harvest ID accounts listing.
type Account struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Product string `json:"product"`
}

// AccountsResponse is the response of the accounts endpoint.
type AccountsResponse struct {
	User struct {
		ID        int64  `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	} `json:"user"`
	Accounts []Account `json:"accounts"`
}

// HarvestAccounts returns the accounts with the Harvest product, in
// provider order.
func (r *AccountsResponse) HarvestAccounts() []Account {
	var matches []Account
	for _, acc := range r.Accounts {
		if acc.Product == ProductHarvest {
			matches = append(matches, acc)
		}
	}
	return matches
}

// fetchAccounts lists the accounts reachable with the given access token.
func fetchAccounts(ctx context.Context, client *http.Client, accountsURL, accessToken string) (*AccountsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, accountsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building accounts request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching accounts: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("failed to fetch accounts: %d %s", resp.StatusCode, string(body))
	}

	var accounts AccountsResponse
	if err := json.NewDecoder(resp.Body).Decode(&accounts); err != nil {
		return nil, fmt.Errorf("decoding accounts response: %w", err)
	}
	return &accounts, nil
}
