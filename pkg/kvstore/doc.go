// Package kvstore provides the shared in-memory key-value store.
//
// Keys are strings, values are byte slices of any length, including zero.
// Get reports absence with a boolean rather than an empty value, and MultiGet
// omits absent keys from its result:
//
//	st := kvstore.New()
//	st.MultiPut(map[string][]byte{"x": {9}, "y": {8}})
//	got := st.MultiGet([]string{"x", "y", "z"}) // {"x": {9}, "y": {8}}
//
// Nothing is persisted; the store lives as long as the process.
package kvstore
