// Package harvest is the request gateway for the Harvest v2 REST API.
//
// Every call runs the token authority first (advisory refresh), resolves
// effective credentials with the HARVEST_API_KEY/HARVEST_ACCOUNT_ID
// environment pair taking precedence over the persisted record, and maps
// all failures to *APIError with an error-kind tag and HTTP status.
package harvest
