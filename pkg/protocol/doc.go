// Package protocol implements the binary framing spoken between kvserver and
// its clients.
//
// All integers are big-endian. Strings carry a uint16 byte length followed by
// modified UTF-8 (the encoding of java.io.DataOutput.writeUTF), blobs carry an
// int32 length followed by raw bytes, and every server message starts with a
// Status byte followed by a string.
//
// Session flow, from the server's side:
//
//	Prompt "username"           <- string
//	Prompt "password"           <- string
//	OK | Error | RegisterPrompt <- "yes"/"no" after RegisterPrompt
//	Waiting "..."*, then Admitted | Closing
//
// After admission the client sends commands as strings:
//
//	put      key value        -> OK
//	get      key              -> OK value | NotFound
//	multiPut n (key value)*n  -> OK | Error
//	multiGet n key*n          -> OK m (key value)*m | Error
//	logout                    -> OK
//
// Reader and Writer are buffered and not safe for concurrent use; callers
// must Flush a Writer to put a reply on the wire.
package protocol
