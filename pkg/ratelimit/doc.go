// Package ratelimit provides the permit pool that bounds concurrent upstream requests.
//
// Every HTTP request made against pixiv, whether an API call issued during
// discovery or an asset transfer, holds one Permit from the same PermitPool
// for its whole duration (request, response body fully consumed). The pool
// size is therefore the total number of in-flight requests of a run.
//
//	pool := ratelimit.NewPermitPool(50)
//	permit, err := pool.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer permit.Release()
package ratelimit
