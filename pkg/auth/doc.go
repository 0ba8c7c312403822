// Package auth keeps the service's user credentials.
//
// Registry maps normalised usernames to bcrypt hashes in memory; nothing is
// written to disk, so registrations disappear on restart.
//
//	creds := auth.NewRegistry(auth.WithBcryptCost(12))
//	if err := creds.Register(ctx, "alice", "s3cret"); errors.Is(err, auth.ErrDuplicateRegistration) {
//	    // name taken
//	}
//	err := creds.Authenticate(ctx, "alice", "s3cret")
package auth
