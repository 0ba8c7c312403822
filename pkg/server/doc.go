// Package server runs the key-value service over TCP.
//
// Each accepted connection is served by its own goroutine and goes through
// three phases:
//
//   - Authentication: the client is prompted for a username and password and
//     may register an unknown name.
//   - Admission: the session queues on an Admitter until a slot is free. The
//     client is told its position while it waits, and a queued client that
//     disconnects gives up its place.
//   - Commands: put, get, multiPut, multiGet and logout against a Store.
//
// The slot is released when the connection ends for any reason.
//
// # Shutdown
//
// Shutdown (or cancelling Run's context) stops accepting connections and
// closes the Admitter, so queued clients receive a Closing message. Admitted
// sessions get the shutdown timeout to log out before their connections are
// closed.
//
// # Usage
//
//	gate := admission.New[uuid.UUID](cfg.Capacity)
//	srv := server.NewFromConfig(cfg.Server, kvstore.New(), gate, auth.NewRegistry(),
//		server.WithLogger(log),
//	)
//	if err := srv.Run(ctx); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
package server
