// Package commands defines the settleup CLI.
//
// Commands
//
//   - serve      Run the Connect API server
//   - balances   Print a group's balances from the SQLite database
//   - plan       Print the transfers that would settle a group, without saving them
//   - token      Issue a member token signed with the configured secret
//
// Every command loads configuration first (defaults, --config YAML, .env,
// environment) and then applies flag overrides. balances and plan refuse the
// memory backend, which has nothing to read outside a running server.
package commands
