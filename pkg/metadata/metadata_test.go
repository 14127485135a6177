package metadata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixivdl/pkg/models"
	"pixivdl/pkg/pixiv"
)

func sampleInfo(t *testing.T) *pixiv.IllustInfo {
	t.Helper()
	var info pixiv.IllustInfo
	raw := `{
		"illustId": "123",
		"illustTitle": "Sunset",
		"illustComment": "evening sky",
		"illustType": 0,
		"userId": "9",
		"userName": "painter",
		"pageCount": 2,
		"bookmarkCount": 40,
		"createDate": "2024-01-02T03:04:05+00:00",
		"uploadDate": "2024-01-02T03:04:05+00:00",
		"tags": {"tags": [{"tag": "風景", "translation": {"en": "scenery"}}, {"tag": "sky"}]}
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &info))
	return &info
}

func TestFromIllust(t *testing.T) {
	assets := []models.Asset{
		{URL: "https://i.pximg.net/img-original/img/123_p0.png", Width: 1600, Height: 900},
		{URL: "https://i.pximg.net/img-original/img/123_p1.png", Width: 800, Height: 800},
	}

	meta := FromIllust(sampleInfo(t), assets, nil)

	assert.Equal(t, uint64(123), meta.ID)
	assert.Equal(t, "Sunset", meta.Title)
	assert.Equal(t, "illust", meta.Type)
	assert.Equal(t, "https://www.pixiv.net/artworks/123", meta.URL)
	assert.Equal(t, Owner{ID: 9, Name: "painter"}, meta.Owner)
	assert.Equal(t, []Tag{{Name: "風景", Translation: "scenery"}, {Name: "sky"}}, meta.Tags)
	require.Len(t, meta.Files, 2)
	assert.Equal(t, "123_p1.png", meta.Files[1].Name)
	assert.Equal(t, "16:9", meta.GetAspectRatio())
	assert.False(t, meta.DownloadedAt.IsZero())
}

func TestFromIllustUgoira(t *testing.T) {
	info := sampleInfo(t)
	info.IllustType = pixiv.IllustTypeUgoira
	ugoira := &pixiv.UgoiraMeta{Frames: []pixiv.UgoiraFrame{{File: "000000.jpg", Delay: 80}}}

	meta := FromIllust(info, nil, ugoira)
	assert.Equal(t, "ugoira", meta.Type)
	assert.Equal(t, []UgoiraFrame{{File: "000000.jpg", Delay: 80}}, meta.Frames)
	assert.Equal(t, "unknown", meta.GetAspectRatio())
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	meta := FromIllust(sampleInfo(t), nil, nil)

	assert.False(t, Exists(dir, 123))
	require.NoError(t, meta.Save(dir))
	assert.True(t, Exists(dir, 123))

	loaded, err := Load(dir, 123)
	require.NoError(t, err)
	assert.Equal(t, meta.Title, loaded.Title)
	assert.Equal(t, meta.Tags, loaded.Tags)
	assert.True(t, meta.DownloadedAt.Equal(loaded.DownloadedAt))

	_, err = Load(dir, 999)
	assert.Error(t, err)
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "manga", TypeName(pixiv.IllustTypeManga))
	assert.Equal(t, "unknown", TypeName(7))
}
