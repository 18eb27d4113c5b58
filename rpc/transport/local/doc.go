// Package local implements an in-process transport for the tKV RPC system.
//
// A local server transport registers itself under its endpoint name while it
// listens. Local client transports of the same process look the endpoint up and
// call the request handler directly, requests are still serialized so the
// full message path is exercised without any network.
//
// The transport is used to embed a tKV server into another program and in tests:
//
//	srv := server.NewRPCServer(serverConfig, local.NewLocalServerTransport(), serializer.NewBinarySerializer())
//	go srv.Serve()
//	conn, err := client.NewRPCConnector(1, clientConfig, local.NewLocalClientTransport(), serializer.NewBinarySerializer())
package local
