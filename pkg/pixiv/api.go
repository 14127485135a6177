package pixiv

import (
	"context"
	"fmt"

	"pixivdl/pkg/models"
)

// IllustPages lists the files of a work
func (c *Client) IllustPages(ctx context.Context, illustID uint64) ([]Page, error) {
	var pages []Page
	if err := c.getJSON(ctx, IllustPagesURL(c.baseURL, illustID), &pages); err != nil {
		return nil, fmt.Errorf("fetch pages of %d: %w", illustID, err)
	}
	return pages, nil
}

// IllustInfo fetches the metadata of a work
func (c *Client) IllustInfo(ctx context.Context, illustID uint64) (*IllustInfo, error) {
	var info IllustInfo
	if err := c.getJSON(ctx, IllustURL(c.baseURL, illustID), &info); err != nil {
		return nil, fmt.Errorf("fetch info of %d: %w", illustID, err)
	}
	return &info, nil
}

// UgoiraMeta fetches the archive location of an animated work
func (c *Client) UgoiraMeta(ctx context.Context, illustID uint64) (*UgoiraMeta, error) {
	var meta UgoiraMeta
	if err := c.getJSON(ctx, UgoiraMetaURL(c.baseURL, illustID), &meta); err != nil {
		return nil, fmt.Errorf("fetch ugoira meta of %d: %w", illustID, err)
	}
	return &meta, nil
}

// UserProfile lists every work id of a user
func (c *Client) UserProfile(ctx context.Context, userID uint64) (*UserProfile, error) {
	var profile UserProfile
	if err := c.getJSON(ctx, UserProfileURL(c.baseURL, userID), &profile); err != nil {
		return nil, fmt.Errorf("fetch profile of user %d: %w", userID, err)
	}
	return &profile, nil
}

// UserBookmarks fetches one page of bookmarks. visibility must be public or private.
func (c *Client) UserBookmarks(ctx context.Context, userID uint64, offset, limit int, visibility models.Visibility) (*WorkList, error) {
	var list WorkList
	rawURL := UserBookmarksURL(c.baseURL, userID, offset, limit, RestParam(visibility))
	if err := c.getJSON(ctx, rawURL, &list); err != nil {
		return nil, fmt.Errorf("fetch %s bookmarks of user %d at offset %d: %w", visibility, userID, offset, err)
	}
	return &list, nil
}

// SeriesPage fetches one page of a series; page is 1-indexed
func (c *Client) SeriesPage(ctx context.Context, seriesID uint64, page int) (*SeriesPage, error) {
	var sp SeriesPage
	if err := c.getJSON(ctx, SeriesURL(c.baseURL, seriesID, page), &sp); err != nil {
		return nil, fmt.Errorf("fetch page %d of series %d: %w", page, seriesID, err)
	}
	return &sp, nil
}

// UserTaggedWorks fetches one page of a user's works carrying tag
func (c *Client) UserTaggedWorks(ctx context.Context, userID uint64, tag string, offset, limit int) (*WorkList, error) {
	var list WorkList
	if err := c.getJSON(ctx, UserTaggedWorksURL(c.baseURL, userID, tag, offset, limit), &list); err != nil {
		return nil, fmt.Errorf("fetch works of user %d tagged %q at offset %d: %w", userID, tag, offset, err)
	}
	return &list, nil
}

// Novel fetches a novel's text and metadata
func (c *Client) Novel(ctx context.Context, novelID uint64) (*Novel, error) {
	var novel Novel
	if err := c.getJSON(ctx, NovelURL(c.baseURL, novelID), &novel); err != nil {
		return nil, fmt.Errorf("fetch novel %d: %w", novelID, err)
	}
	return &novel, nil
}
