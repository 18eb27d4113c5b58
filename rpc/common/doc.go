// Package common provides the data structures shared by the RPC client, server
// and transports of tKV. It defines the wire message, the configuration structures
// and the logger setup.
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication. Which fields are used
//     depends on the MessageType. Records and query results travel as JSON in Value,
//     queries as JSON in Query, counts and sizes in Number. Errors carry their table
//     return code (ErrCode) and the code of a wrapped cause (CauseCode), so that
//     Message.ToError rebuilds an error that matches the table sentinels with errors.Is.
//
//   - MessageType: Enumeration of the table provider and table operations plus the
//     general success and error types.
//
//   - ServerConfig: Shards (ID and engine), data dir, layout file, timeouts and
//     transport settings of a server.
//
//   - ClientConfig: Endpoints, timeouts, retries and connections of a client.
//
//   - Logger: A dragonboat logger.Factory that writes "LEVEL | package | message" lines.
//     InitLoggers installs it and sets the level of all tKV package loggers.
package common
