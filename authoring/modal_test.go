package authoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toothbrush/webverse-authoring/aem"
)

func TestCreateHCPModalPopup(t *testing.T) {
	b, fake := newTestBuilder(t)
	fake.PutAsset("/content/dam/templates/popup.html", `<div class="modal">Are you a healthcare professional in {{market_title}}?</div>`)

	p, err := b.CreateHCPModalPopup(context.Background(), HCPModalPopupRequest{
		SitePath:          testSite + "/",
		Market:            "india",
		TemplateAssetPath: "/content/dam/templates/popup.html",
	})
	require.NoError(t, err)
	assert.Equal(t, testSite+"/hcp-modal-popup", p)

	assert.Equal(t, "HCP Modal Popup India", fake.Node(p+"/jcr:content")["jcr:title"])
	assert.Equal(t,
		`<div class="modal">Are you a healthcare professional in India?</div>`,
		fake.Node(p+"/jcr:content/root/text")["text"])
}

func TestCreateHCPModalPopupMissingTemplate(t *testing.T) {
	b, fake := newTestBuilder(t)

	_, err := b.CreateHCPModalPopup(context.Background(), HCPModalPopupRequest{
		SitePath:          testSite,
		TemplateAssetPath: "/content/dam/templates/popup.html",
	})
	assert.ErrorIs(t, err, aem.ErrNotFound)
	assert.False(t, fake.Exists(testSite+"/hcp-modal-popup"))
}

func TestCreateHCPModalPopupValidation(t *testing.T) {
	b, fake := newTestBuilder(t)

	_, err := b.CreateHCPModalPopup(context.Background(), HCPModalPopupRequest{SitePath: testSite})
	requireValidation(t, err, "template_asset_path")

	_, err = b.CreateHCPModalPopup(context.Background(), HCPModalPopupRequest{SitePath: "/content/mava", TemplateAssetPath: "x"})
	requireValidation(t, err, "site_path")

	assert.Empty(t, fake.Requests())
}
