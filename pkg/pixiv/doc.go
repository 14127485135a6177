// Package pixiv is a client for the pixiv AJAX API.
//
// Every response is wrapped in an envelope of the form
//
//	{"error": false, "message": "", "body": ...}
//
// and is decoded in a fixed order: empty bodies, malformed envelopes,
// application errors (error == true), unexpected status codes and finally
// malformed bodies each map to a distinct pixivdl/pkg/errors type.
//
// All requests, including file downloads, draw from one ratelimit.Limiter so a
// single pool bounds the in-flight requests of a whole run.
package pixiv
