// Package cmd implements the command-line interface of tKV. It provides a
// hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Command for starting and configuring the tKV server
//   - table: Commands for table operations (has, create, get, set, add, del, clear, list, count, size, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set as environment variables with the TKV_ prefix
// (e.g. TKV_TRANSPORT_ENDPOINTS), .env and .env.local are loaded on start.
//
// See tkv -help for a list of all commands.
package cmd
