// Package sync decides, at session start, which stored copy of the board is
// authoritative and brings the other copies in line.
//
// # Overview
//
// A board may exist in three places: the local cache, the self-hosted
// document server and a cloud document store. At most one remote-class
// backend takes part in a session. A configured cloud always wins over the
// server, whether or not it is reachable.
//
//	Local cache (project-board-v3, -v2, -v1)     Remote (cloud | server)
//	                 \                              /
//	                  +---------- Reconciler -----+
//	                               |
//	                        adopted Document
//
// # Policy
//
// The rules are evaluated in order and the first match wins:
//
//  1. The remote answered with a real board: adopt it, overwrite the cache.
//  2. The remote answered with nothing real but the cached board is real:
//     adopt the cache and push it to the remote once.
//  3. The cache holds a current board that is not the untouched sample:
//     adopt it, no transport.
//  4. Migrate the V2 board, then the V1 board.
//  5. Use the compiled-in sample.
//
// A remote that could not be reached, or whose answer did not parse, has not
// "answered": rule 2 is never applied against a server that may simply be
// down. Realness is decided by schema.IsReal for both sides.
//
// Decide holds the policy as a pure function over Facts so it can be tested
// without any I/O.
//
// # Usage
//
//	local, err := cache.Open(".flowboard/cache.db")
//	if err != nil {
//	    return err
//	}
//	defer local.Close()
//
//	r := sync.New(local, remoteBackend, nil)
//	out, err := r.Reconcile(ctx)
//	if err != nil {
//	    return err
//	}
//	b := board.New(out.Document, local, out.Remote, nil)
package sync
