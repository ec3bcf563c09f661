// Package harvestid talks to the Harvest ID identity service.
//
// It covers the two auth concerns of the server:
//   - Authority: transparent access-token refresh in front of every API
//     call, with an advisory (never blocking) result
//   - Flow: the one-shot interactive authorization-code exchange, driven
//     through a short-lived local callback listener
//
// Harvest's OAuth2 endpoints are standard form-encoded with client
// credentials in the request body, so both paths ride on golang.org/x/oauth2
// with a User-Agent-stamping transport.
package harvestid
