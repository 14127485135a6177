package pixiv

import (
	"fmt"
	"net/url"
	"strconv"

	"pixivdl/pkg/models"
)

const (
	// BaseURL is the base URL for pixiv
	BaseURL = "https://www.pixiv.net"

	// PageLimit is the page size used for offset/limit listings
	PageLimit = 100

	// Lang is sent with every API call so titles and messages come back in English
	Lang = "en"
)

func buildURL(base, path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("lang", Lang)
	return fmt.Sprintf("%s%s?%s", base, path, params.Encode())
}

// IllustPagesURL constructs the URL listing the files of a work
func IllustPagesURL(base string, illustID uint64) string {
	return buildURL(base, fmt.Sprintf("/ajax/illust/%d/pages", illustID), nil)
}

// IllustURL constructs the URL for a work's metadata
func IllustURL(base string, illustID uint64) string {
	return buildURL(base, fmt.Sprintf("/ajax/illust/%d", illustID), nil)
}

// UgoiraMetaURL constructs the URL for an animation's archive metadata
func UgoiraMetaURL(base string, illustID uint64) string {
	return buildURL(base, fmt.Sprintf("/ajax/illust/%d/ugoira_meta", illustID), nil)
}

// UserProfileURL constructs the URL listing every work id of a user
func UserProfileURL(base string, userID uint64) string {
	return buildURL(base, fmt.Sprintf("/ajax/user/%d/profile/all", userID), nil)
}

// UserBookmarksURL constructs one page of a user's bookmarks
func UserBookmarksURL(base string, userID uint64, offset, limit int, rest string) string {
	params := url.Values{}
	params.Set("tag", "")
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("rest", rest)
	return buildURL(base, fmt.Sprintf("/ajax/user/%d/illusts/bookmarks", userID), params)
}

// SeriesURL constructs one page of a series; page is 1-indexed
func SeriesURL(base string, seriesID uint64, page int) string {
	params := url.Values{}
	params.Set("p", strconv.Itoa(page))
	return buildURL(base, fmt.Sprintf("/ajax/series/%d", seriesID), params)
}

// UserTaggedWorksURL constructs one page of a user's works carrying tag
func UserTaggedWorksURL(base string, userID uint64, tag string, offset, limit int) string {
	params := url.Values{}
	params.Set("tag", tag)
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))
	return buildURL(base, fmt.Sprintf("/ajax/user/%d/illustmanga/tag", userID), params)
}

// NovelURL constructs the URL for a novel's text and metadata
func NovelURL(base string, novelID uint64) string {
	return buildURL(base, fmt.Sprintf("/ajax/novel/%d", novelID), nil)
}

// ArtworkURL returns the public page of a work
func ArtworkURL(illustID uint64) string {
	return fmt.Sprintf("%s/artworks/%d", BaseURL, illustID)
}

// RestParam maps a single bookmark visibility to the rest query value
func RestParam(v models.Visibility) string {
	if v == models.VisibilityPrivate {
		return "hide"
	}
	return "show"
}
