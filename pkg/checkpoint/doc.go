// Package checkpoint stores the update descriptor (.pixiv_update) that lets a
// download directory be refreshed later with only new works.
//
// The descriptor is written into the output directory after a successful
// full run of a series, user posts or bookmarks source. The update command
// loads it back and replays the same source incrementally.
package checkpoint
