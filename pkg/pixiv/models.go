package pixiv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Illust types reported by the work metadata endpoint
const (
	IllustTypeIllust = 0
	IllustTypeManga  = 1
	IllustTypeUgoira = 2
)

// ID is a work id that the API sends either as a JSON string or a number
type ID uint64

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(v)
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(id), 10))), nil
}

// IDSet is a collection keyed by work id. The API sends an empty array
// instead of an empty object, so both forms are accepted. Ids are kept sorted
// in descending order, which is newest first.
type IDSet []uint64

func (s *IDSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '[' || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ids := make([]uint64, 0, len(raw))
	for key := range raw {
		v, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id key %q: %w", key, err)
		}
		ids = append(ids, v)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	*s = ids
	return nil
}

// PageURLs holds the renditions of one page of a work
type PageURLs struct {
	ThumbMini string `json:"thumb_mini"`
	Small     string `json:"small"`
	Regular   string `json:"regular"`
	Original  string `json:"original"`
}

// Page is one file of a work
type Page struct {
	URLs   PageURLs `json:"urls"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
}

// Tag is a work tag with its optional translation
type Tag struct {
	Tag         string            `json:"tag"`
	Translation map[string]string `json:"translation,omitempty"`
}

// IllustInfo is the metadata of a work
type IllustInfo struct {
	ID            ID     `json:"illustId"`
	Title         string `json:"illustTitle"`
	Description   string `json:"illustComment"`
	IllustType    int    `json:"illustType"`
	UserID        ID     `json:"userId"`
	UserName      string `json:"userName"`
	PageCount     int    `json:"pageCount"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	CreateDate    string `json:"createDate"`
	UploadDate    string `json:"uploadDate"`
	BookmarkCount int    `json:"bookmarkCount"`
	Tags          struct {
		Tags []Tag `json:"tags"`
	} `json:"tags"`
}

// TagNames returns the plain tag strings
func (i *IllustInfo) TagNames() []string {
	names := make([]string, 0, len(i.Tags.Tags))
	for _, t := range i.Tags.Tags {
		names = append(names, t.Tag)
	}
	return names
}

// UserProfile lists every work id of a user
type UserProfile struct {
	Illusts IDSet `json:"illusts"`
	Manga   IDSet `json:"manga"`
	Novels  IDSet `json:"novels"`
}

// ListedWork is an entry of a bookmark or tag listing
type ListedWork struct {
	ID       ID   `json:"id"`
	IsMasked bool `json:"isMasked"`
}

// WorkList is one page of an offset/limit listing
type WorkList struct {
	Works []ListedWork `json:"works"`
	Total int          `json:"total"`
}

// SeriesEntry is a work's position inside a series
type SeriesEntry struct {
	WorkID ID  `json:"workId"`
	Order  int `json:"order"`
}

// SeriesInfo describes a series
type SeriesInfo struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

// SeriesPage is one page of a series listing
type SeriesPage struct {
	Page struct {
		Series []SeriesEntry `json:"series"`
		Total  int           `json:"total"`
	} `json:"page"`
	IllustSeries []SeriesInfo `json:"illustSeries"`
}

// Title returns the first non-empty series title on the page
func (p *SeriesPage) Title() string {
	for _, s := range p.IllustSeries {
		if s.Title != "" {
			return s.Title
		}
	}
	return ""
}

// UgoiraFrame is one frame of an animation archive
type UgoiraFrame struct {
	File  string `json:"file"`
	Delay int    `json:"delay"`
}

// UgoiraMeta points at the zip archive holding an animation's frames
type UgoiraMeta struct {
	Src         string        `json:"src"`
	OriginalSrc string        `json:"originalSrc"`
	MimeType    string        `json:"mime_type"`
	Frames      []UgoiraFrame `json:"frames"`
}

// EmbeddedImage is an image referenced from novel text
type EmbeddedImage struct {
	NovelImageID string            `json:"novelImageId"`
	URLs         map[string]string `json:"urls"`
}

// EmbeddedImages is keyed by image id; an empty array is treated as empty
type EmbeddedImages map[string]EmbeddedImage

func (m *EmbeddedImages) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '[' || bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}
	var raw map[string]EmbeddedImage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = raw
	return nil
}

// Novel is a novel's text and metadata
type Novel struct {
	ID                 ID             `json:"id"`
	Title              string         `json:"title"`
	Content            string         `json:"content"`
	Description        string         `json:"description"`
	CreateDate         string         `json:"createDate"`
	UploadDate         string         `json:"uploadDate"`
	UserID             ID             `json:"userId"`
	UserName           string         `json:"userName"`
	TextEmbeddedImages EmbeddedImages `json:"textEmbeddedImages"`
}
