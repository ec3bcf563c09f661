// Package credentials provides persistent storage for the Harvest
// authentication record (account id, OAuth tokens, client credentials).
//
// Two backends are supported:
//   - File: JSON document in the per-user config directory, atomic writes
//     and secure permissions
//   - Keyring: OS-native credential storage (macOS Keychain, Windows
//     Credential Manager, etc.)
//
// Both backends degrade rather than fail: unreadable state loads as an
// empty record and failed writes are logged and dropped, so the serving
// process never crashes over credential persistence.
package credentials
