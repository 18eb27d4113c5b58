package common

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ShardEngine is the storage engine of a shard
type ShardEngine string

const (
	EngineMaple ShardEngine = "maple" // in-memory
	EngineBolt  ShardEngine = "bolt"  // persistent, one file per shard in the data dir
)

// ParseShardEngine converts a string into a ShardEngine
func ParseShardEngine(s string) (ShardEngine, error) {
	switch ShardEngine(strings.ToLower(strings.TrimSpace(s))) {
	case EngineMaple:
		return EngineMaple, nil
	case EngineBolt:
		return EngineBolt, nil
	default:
		return "", fmt.Errorf("invalid shard engine: %s (expected one of: maple, bolt)", s)
	}
}

type ServerShard struct {
	// ShardID is the ID of the shard
	ShardID uint64
	// Engine is the storage engine of the shard database
	Engine ShardEngine
}

// ServerTransportConfig holds the settings of the server transport layer
type ServerTransportConfig struct {
	// Endpoint is the address the server listens on (host:port or socket path)
	Endpoint string

	// Socket transports (tcp, unix)
	WorkersPerConn int // max concurrent requests per connection
	BufferSize     int // size of the pooled read buffers

	// TCP only
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int // < 0 = os default
	WriteBufferSize int // 0 = os default
	ReadBufferSize  int // 0 = os default
}

// ServerConfig holds all configuration parameters of the RPC server.
type ServerConfig struct {
	// Shards served by this server, each shard is one database
	Shards []ServerShard

	// Storage
	DataDir     string
	Compression bool

	// LayoutFile is an optional JSON/YAML file with the table layout applied to every shard
	LayoutFile string

	// Request timeout
	TimeoutSecond int64

	Transport ServerTransportConfig

	// Logging configuration
	LogLevel string
}

// ShardPath returns the database file of a persistent shard
func (c *ServerConfig) ShardPath(shardId uint64) string {
	return filepath.Join(c.DataDir, fmt.Sprintf("shard-%d.db", shardId))
}

// HasPersistentShard checks if the configuration contains any shard that stores data in the data dir
func (c *ServerConfig) HasPersistentShard() bool {
	for _, shard := range c.Shards {
		if shard.Engine == EngineBolt {
			return true
		}
	}
	return false
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.Transport.WorkersPerConn))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Shards
	addSection("Shards")
	for _, shard := range c.Shards {
		addField(strconv.FormatUint(shard.ShardID, 10), string(shard.Engine))
	}

	// Storage
	addSection("Storage")
	if c.HasPersistentShard() {
		addField("Data Directory", c.DataDir)
	}
	addField("Compression", strconv.FormatBool(c.Compression))
	if c.LayoutFile != "" {
		addField("Layout File", c.LayoutFile)
	} else {
		addField("Layout File", "(none)")
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the settings of the client transport layer
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int

	// TCP only
	TCPNoDelay      bool
	TCPKeepAliveSec int
}

type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.Transport.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
