package authoring

import (
	"context"
	"io"
	"net/url"

	"go.uber.org/zap"

	"github.com/toothbrush/webverse-authoring/aem"
)

// CMS is the part of *aem.API the builders need.
type CMS interface {
	GetAsset(ctx context.Context, p string) ([]byte, error)
	GetNode(ctx context.Context, p string, depth int) (aem.Node, error)
	NodeExists(ctx context.Context, p string) (bool, error)
	CreateNode(ctx context.Context, p string, props aem.Properties) error
	UpdateNode(ctx context.Context, p string, props aem.Properties) error
	Copy(ctx context.Context, src, dest string) error
	CreateFolder(ctx context.Context, p, title string) error
	UploadAsset(ctx context.Context, folder, name, contentType string, r io.Reader) (string, error)
}

// Paths are the fixed locations in the repository that requests don't name themselves.
type Paths struct {
	// Duplicated templates land underneath here, as hcp-{market}[-{drug}].
	DuplicateParent string
	// Experience fragments are created in {ExperienceFragments}/{market}.
	ExperienceFragments string
	// DAM folder holding the experience fragment templates.
	FragmentTemplates string
	// sling:resourceType of created pages.
	PageResourceType string
	// sling:resourceType of the component holding template markup.
	TextResourceType string
}

func DefaultPaths() Paths {
	return Paths{
		DuplicateParent:     "/content/buildeasy/mava",
		ExperienceFragments: "/content/experience-fragments",
		FragmentTemplates:   "/content/dam/commercial/mava-international/templates",
		PageResourceType:    "mava/components/page",
		TextResourceType:    "core/wcm/components/text/v2/text",
	}
}

// Builder turns authoring requests into sequences of CMS calls.  It holds no state between
// requests, and calls within one request are made one after the other.
type Builder struct {
	CMS     CMS
	Markets Markets
	Paths   Paths
	Logger  *zap.Logger

	// Only used to make links absolute in previews.
	BaseURI *url.URL
}

func NewBuilder(cms CMS, markets Markets) *Builder {
	if len(markets) == 0 {
		markets = DefaultMarkets()
	}
	return &Builder{
		CMS:     cms,
		Markets: markets,
		Paths:   DefaultPaths(),
		Logger:  zap.NewNop(),
	}
}

// page returns the properties of a cq:Page whose root container holds one text component.
func (b *Builder) page(title, html string, extra aem.Properties) aem.Properties {
	content := aem.Properties{
		"jcr:primaryType":    "cq:PageContent",
		"jcr:title":          title,
		"sling:resourceType": b.Paths.PageResourceType,
		"root": aem.Properties{
			"jcr:primaryType":    "nt:unstructured",
			"sling:resourceType": "wcm/foundation/components/responsivegrid",
			"text":               b.text(html, ""),
		},
	}
	for k, v := range extra {
		content[k] = v
	}
	return aem.Properties{
		"jcr:primaryType": "cq:Page",
		"jcr:content":     content,
	}
}

func (b *Builder) text(html, resourceType string) aem.Properties {
	if resourceType == "" {
		resourceType = b.Paths.TextResourceType
	}
	return aem.Properties{
		"jcr:primaryType":    "nt:unstructured",
		"sling:resourceType": resourceType,
		"text":               html,
		"textIsRich":         true,
	}
}

// template fetches a DAM template and fills in the placeholders.
func (b *Builder) template(ctx context.Context, assetPath string, vars Vars) (string, error) {
	raw, err := b.CMS.GetAsset(ctx, assetPath)
	if err != nil {
		return "", err
	}
	return Render(string(raw), vars)
}

// ensureFolder creates the folder at p unless something is already there, and reports whether
// it created it.
func (b *Builder) ensureFolder(ctx context.Context, p, title string) (bool, error) {
	exists, err := b.CMS.NodeExists(ctx, p)
	if err != nil {
		return false, err
	}
	if exists {
		b.Logger.Debug("folder already exists", zap.String("path", p))
		return false, nil
	}
	if err := b.CMS.CreateFolder(ctx, p, title); err != nil {
		return false, err
	}
	b.Logger.Info("created folder", zap.String("path", p))
	return true, nil
}
