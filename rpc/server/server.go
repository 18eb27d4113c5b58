package server

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/db/engines/bolt"
	"github.com/ValentinKolb/tKV/lib/db/engines/maple"
	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/ValentinKolb/tKV/lib/table/ltable"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/serializer"
	"github.com/ValentinKolb/tKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// serverShard is a struct that represents a shard in the RPC server
// It contains the connector of the shard database and the adapter
// that handles requests for it
type serverShard struct {
	Conn    table.IConnector
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) IRPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return &rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]

	closeOnce sync.Once
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(shardId uint64, req []byte) []byte {
		start := time.Now()
		var msg common.Message
		var respMsg *common.Message

		// Decode the request
		if err := s.serializer.Deserialize(req, &msg); err != nil {
			respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
		} else if shard, ok := s.shards.Load(shardId); !ok {
			respMsg = common.NewErrorResponse(fmt.Sprintf("shard %d not found", shardId))
		} else {
			// Let the adapter handle the request
			respMsg = shard.Adapter.Handle(&msg, shard.Conn)
			observe(shardId, &msg, respMsg, start)
		}

		val, err := s.serializer.Serialize(*respMsg)
		if err != nil {
			Logger.Errorf("failed to serialize response: %v", err)
			val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
		}
		return val
	})
}

// engineFactory returns the factory for the database of a shard
func (s *rpcServer) engineFactory(shard common.ServerShard) (db.EngineFactory, error) {
	switch shard.Engine {
	case common.EngineMaple:
		return func() (db.Engine, error) {
			return maple.NewMapleDB(&maple.DBOptions{Compression: s.config.Compression})
		}, nil
	case common.EngineBolt:
		path := s.config.ShardPath(shard.ShardID)
		return func() (db.Engine, error) {
			opts := bolt.DefaultOptions()
			opts.Compression = s.config.Compression
			return bolt.NewBoltDB(path, opts)
		}, nil
	default:
		return nil, fmt.Errorf("invalid shard engine: %s", shard.Engine)
	}
}

func (s *rpcServer) init() error {
	// Load the table layout shared by all shards
	layout, err := LoadLayout(s.config.LayoutFile)
	if err != nil {
		return err
	}

	if s.config.HasPersistentShard() {
		if err := os.MkdirAll(s.config.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	// CREATE SHARDS

	/*
		Note: A single RPC Server can have any number of shards. Each shard is
		one database with the same layout, opened (and migrated) before the
		transport starts.
	*/

	for _, shardConfig := range s.config.Shards {
		if _, ok := s.shards.Load(shardConfig.ShardID); ok {
			return fmt.Errorf("shard %d is configured twice", shardConfig.ShardID)
		}

		factory, err := s.engineFactory(shardConfig)
		if err != nil {
			return err
		}

		conn := ltable.NewLocalConnector(factory, layout)
		if err := conn.Open(nil); err != nil {
			return fmt.Errorf("failed to open shard %d: %w", shardConfig.ShardID, err)
		}

		s.shards.Store(shardConfig.ShardID, serverShard{
			Conn:    conn,
			Adapter: NewTableServerAdapter(),
		})
		Logger.Infof("opened %s database for shard %d (layout version %d)", shardConfig.Engine, shardConfig.ShardID, layout.Version)
	}

	Logger.Infof("tKV setup completed successfully")

	// Configure the transport layer
	s.registerTransportHandler()

	return nil
}

// Serve starts the RPC server
// This function will also initialize the shards and start the transport layer
func (s *rpcServer) Serve() error {
	if err := s.init(); err != nil {
		_ = s.closeShards()
		return err
	}
	return s.transport.Listen(s.config)
}

// Close stops the transport and closes all shard databases
func (s *rpcServer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = errors.Join(s.transport.Close(), s.closeShards())
	})
	return err
}

func (s *rpcServer) closeShards() error {
	var errs []error
	s.shards.Range(func(id uint64, shard serverShard) bool {
		if err := shard.Conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("shard %d: %w", id, err))
		}
		s.shards.Delete(id)
		return true
	})
	return errors.Join(errs...)
}
