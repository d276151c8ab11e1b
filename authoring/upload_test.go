package authoring

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadAssets(t *testing.T) {
	b, fake := newTestBuilder(t)
	fake.PutNode("/content/dam/mava/india", map[string]any{"jcr:primaryType": "sling:OrderedFolder"})

	outcome, err := b.UploadAssets(context.Background(), "mava/india", AnyUpload, []Upload{
		{Name: "logo.png", ContentType: "image/png", Body: strings.NewReader("png bytes")},
		{Name: "notes.txt", ContentType: "text/plain", Body: strings.NewReader("nope")},
		{Name: `C:\docs\brochure.pdf`, ContentType: "application/octet-stream", Body: strings.NewReader("%PDF")},
	})
	require.NoError(t, err)

	assert.Equal(t, Summary{Total: 3, Successful: 2, Failed: 1}, outcome.Summary)

	assert.Equal(t, TargetResult{Name: "logo.png", Path: "/content/dam/mava/india/logo.png", Success: true}, outcome.Results[0])
	assert.False(t, outcome.Results[1].Success)
	assert.Contains(t, outcome.Results[1].Error, "not an image or PDF")
	assert.Equal(t, "/content/dam/mava/india/brochure.pdf", outcome.Results[2].Path)

	assert.Equal(t, "png bytes", string(fake.Asset("/content/dam/mava/india/logo.png")))
	assert.Equal(t, "%PDF", string(fake.Asset("/content/dam/mava/india/brochure.pdf")))
	assert.Nil(t, fake.Asset("/content/dam/mava/india/notes.txt"))
}

func TestUploadAssetsMissingFolder(t *testing.T) {
	b, _ := newTestBuilder(t)

	outcome, err := b.UploadAssets(context.Background(), "/content/dam/nowhere", AnyUpload, []Upload{
		{Name: "a.jpg", Body: strings.NewReader("a")},
		{Name: "b.jpg", Body: strings.NewReader("b")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Failed to process all 2 files", outcome.Message)
	for _, r := range outcome.Results {
		assert.Equal(t, http.StatusNotFound, r.StatusCode)
	}
}

func TestUploadAssetsValidation(t *testing.T) {
	b, fake := newTestBuilder(t)
	ctx := context.Background()
	one := []Upload{{Name: "a.png", Body: strings.NewReader("a")}}

	_, err := b.UploadAssets(ctx, " ", AnyUpload, one)
	requireValidation(t, err, "folder")

	_, err = b.UploadAssets(ctx, "/content/dam/../etc", AnyUpload, one)
	requireValidation(t, err, "folder")

	_, err = b.UploadAssets(ctx, "/content/dam/mava", AnyUpload, nil)
	requireValidation(t, err, "files")

	_, err = b.UploadAssets(ctx, "/content/dam/mava", UploadKind("video"), one)
	requireValidation(t, err, "file_type")

	assert.Empty(t, fake.Requests())
}

func TestUploadType(t *testing.T) {
	for _, tc := range []struct {
		name, declared, want string
	}{
		{"a.PNG", "", "image/png"},
		{"a.jpeg", "application/octet-stream", "image/jpeg"},
		{"a.pdf", "application/pdf; charset=binary", "application/pdf"},
		{"a.svg", "not a media type;;", "image/svg+xml"},
	} {
		got, err := uploadType(tc.name, tc.declared, AnyUpload)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}

	_, err := uploadType("setup.exe", "image/png", AnyUpload)
	assert.Error(t, err)
	_, err = uploadType("README", "", AnyUpload)
	assert.Error(t, err)
}

func TestUploadKindNarrowsTypes(t *testing.T) {
	got, err := uploadType("logo.png", "", ImageUpload)
	require.NoError(t, err)
	assert.Equal(t, "image/png", got)

	_, err = uploadType("brochure.pdf", "", ImageUpload)
	assert.ErrorContains(t, err, "is not an image")

	got, err = uploadType("brochure.pdf", "", PDFUpload)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", got)

	_, err = uploadType("logo.png", "", PDFUpload)
	assert.ErrorContains(t, err, "is not a PDF")
}

func TestParseUploadKind(t *testing.T) {
	for in, want := range map[string]UploadKind{"": AnyUpload, "image": ImageUpload, " PDF ": PDFUpload} {
		got, err := ParseUploadKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseUploadKind("video")
	requireValidation(t, err, "file_type")
}

func TestUploadAssetsOfOneKind(t *testing.T) {
	b, fake := newTestBuilder(t)
	fake.PutNode("/content/dam/mava/india", map[string]any{"jcr:primaryType": "sling:OrderedFolder"})

	outcome, err := b.UploadAssets(context.Background(), "/content/dam/mava/india", PDFUpload, []Upload{
		{Name: "brochure.pdf", Body: strings.NewReader("%PDF")},
		{Name: "logo.png", Body: strings.NewReader("png")},
	})
	require.NoError(t, err)

	assert.Equal(t, Summary{Total: 2, Successful: 1, Failed: 1}, outcome.Summary)
	assert.Contains(t, outcome.Results[1].Error, "is not a PDF")
	assert.Nil(t, fake.Asset("/content/dam/mava/india/logo.png"))
}
