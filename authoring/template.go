package authoring

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Vars are the values substituted into templates.
type Vars struct {
	Market   string
	Drug     string
	SitePath string
	PageName string
}

var (
	documentPattern = regexp.MustCompile(`(?i)<(html|body)[\s>]`)
	strictPolicy    = bluemonday.StrictPolicy()
)

// Render replaces the {{placeholders}} in tmpl.  This is literal substitution and nothing more:
// values are stripped of markup first, and a template that is a whole HTML document is cut down
// to the content of its <body>, since it ends up inside a text component.
func Render(tmpl string, vars Vars) (string, error) {
	body, err := bodyHTML(tmpl)
	if err != nil {
		return "", err
	}

	clean := strictPolicy.Sanitize
	replacer := strings.NewReplacer(
		"{{market}}", clean(vars.Market),
		"{{MARKET}}", clean(strings.ToUpper(vars.Market)),
		"{{market_title}}", clean(MarketTitle(vars.Market)),
		"{{drug}}", clean(vars.Drug),
		"{{site_path}}", clean(vars.SitePath),
		"{{page_name}}", clean(vars.PageName),
	)
	return replacer.Replace(body), nil
}

func bodyHTML(tmpl string) (string, error) {
	if !documentPattern.MatchString(tmpl) {
		return strings.TrimSpace(tmpl), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tmpl))
	if err != nil {
		return "", fmt.Errorf("authoring: couldn't parse template: %w", err)
	}
	body, err := doc.Find("body").First().Html()
	if err != nil {
		return "", fmt.Errorf("authoring: couldn't extract template body: %w", err)
	}
	return strings.TrimSpace(body), nil
}
