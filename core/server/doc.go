// Package server wraps http.Server with graceful shutdown and
// errgroup-friendly lifecycle management for the chat service's HTTP
// surface (the WebSocket endpoint and health probes).
//
// Usage:
//
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(log))
//	if err != nil {
//		return err
//	}
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, mux))
//
// Run starts the listener and shuts it down gracefully, within the
// configured timeout, when the context is cancelled.
package server
