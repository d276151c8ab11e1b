package authoring

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/toothbrush/webverse-authoring/aem"
)

type fragment struct {
	name     string
	title    string
	template string
}

// Every market gets the same five experience fragments, each built from its own template.
var fragments = []fragment{
	{name: "header", title: "Header", template: "header.html"},
	{name: "footer", title: "Footer", template: "footer.html"},
	{name: "login-footer", title: "Login Footer", template: "loginfooter.html"},
	{name: "popup", title: "Popup", template: "popup.html"},
	{name: "profile", title: "Profile", template: "profile.html"},
}

type ExperienceFragmentsRequest struct {
	Market   string `json:"market"`
	BasePath string `json:"base_path,omitempty"`
}

func (r *ExperienceFragmentsRequest) Validate(markets Markets) error {
	if r.Market == "" {
		return invalid("market", "is required")
	}
	if !markets.Has(r.Market) {
		return invalid("market", "%s is not one of %s", quote(r.Market), markets)
	}
	if r.BasePath != "" {
		return requirePath("base_path", r.BasePath)
	}
	return nil
}

// CreateExperienceFragments creates the header, footer, login footer, popup and profile
// fragments of a market in {base}/{market}.
func (b *Builder) CreateExperienceFragments(ctx context.Context, req ExperienceFragmentsRequest) (*Outcome, error) {
	if err := req.Validate(b.Markets); err != nil {
		return nil, err
	}
	market := strings.ToLower(req.Market)
	base := req.BasePath
	if base == "" {
		base = b.Paths.ExperienceFragments
	}
	folder := strings.TrimRight(base, "/") + "/" + market

	if _, err := b.ensureFolder(ctx, folder, MarketTitle(market)); err != nil {
		return nil, fmt.Errorf("authoring: couldn't create fragment folder %s: %w", folder, err)
	}

	results := make([]TargetResult, 0, len(fragments))
	for _, f := range fragments {
		p := folder + "/" + f.name
		if err := b.createFragment(ctx, p, market, f); err != nil {
			b.Logger.Warn("experience fragment failed", zap.String("path", p), zap.Error(err))
			results = append(results, failed(f.name, p, err))
			continue
		}
		b.Logger.Info("created experience fragment", zap.String("path", p))
		results = append(results, succeeded(f.name, p))
	}

	return newOutcome("experience fragments", results), nil
}

func (b *Builder) createFragment(ctx context.Context, p, market string, f fragment) error {
	asset := strings.TrimRight(b.Paths.FragmentTemplates, "/") + "/" + f.template
	html, err := b.template(ctx, asset, Vars{Market: market, PageName: f.name})
	if err != nil {
		return fmt.Errorf("authoring: couldn't prepare template %s: %w", asset, err)
	}

	title := fmt.Sprintf("%s %s", MarketTitle(market), f.title)
	return b.CMS.CreateNode(ctx, p, aem.Properties{
		"jcr:primaryType": "cq:Page",
		"jcr:content": aem.Properties{
			"jcr:primaryType":        "cq:PageContent",
			"jcr:title":              title,
			"sling:resourceType":     "cq/experience-fragments/editor/components/experiencefragment",
			"cq:template":            "/conf/global/settings/wcm/templates/experience-fragment-web-variation",
			"cq:cloudserviceconfigs": []string{"/etc/cloudservices/contexthub"},
			"data": aem.Properties{
				"jcr:primaryType": "nt:unstructured",
				"master": aem.Properties{
					"jcr:primaryType":    "nt:unstructured",
					"jcr:title":          title + " Master",
					"sling:resourceType": "cq/experience-fragments/editor/components/experiencefragment/master",
					"root": aem.Properties{
						"jcr:primaryType":    "nt:unstructured",
						"sling:resourceType": "wcm/foundation/components/responsivegrid",
						f.name:               b.text(html, ""),
					},
				},
			},
		},
	})
}
