// Package client is the Go client for kvserver.
//
//	c, err := client.Dial(ctx, "localhost:12345", client.WithRegister(true))
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	if err := c.Login(ctx, "alice", "s3cret"); err != nil {
//	    return err
//	}
//	_ = c.Put(ctx, "greeting", []byte("hello"))
//	v, ok, err := c.Get(ctx, "greeting")
//	_ = c.Logout(ctx)
//
// Login returns only once the server has admitted the session, which may
// take a while when all slots are taken.
package client
