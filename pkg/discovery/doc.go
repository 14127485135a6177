// Package discovery turns a Source into a stream of work items.
//
// There is one strategy per source kind. Individual sources need no API call.
// User posts come from a single profile call, or from an offset/limit tag
// listing. Series are walked page by page until the advertised total is
// reached. Bookmarks learn their total from the first page and fetch the
// remaining pages in parallel.
//
// When an index of existing files is supplied, works already present are
// dropped. With fast incremental enabled, newest-first listings (tags and
// bookmarks) stop at the first work already present.
package discovery
