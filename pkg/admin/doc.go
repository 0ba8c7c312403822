// Package admin exposes an operator HTTP surface for kvserver: health probes,
// counters and the list of live sessions.
//
// Router builds the chi routes from a set of Sources; Server runs them on
// their own listener with graceful shutdown.
//
//	srv := admin.NewFromConfig(cfg.Admin, admin.WithLogger(log))
//	err := srv.Run(ctx, admin.Router(admin.Sources{
//		Admission: gate,
//		Store:     store,
//		Users:     creds,
//		Sessions:  sessions,
//	}, log))
//
// Every response carries an X-Request-ID header; an incoming well-formed id
// is reused.
package admin
