package authoring

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	mdplugin "github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"
)

type PreviewHeader struct {
	Title        string   `yaml:"title"`
	Path         string   `yaml:"path"`
	Market       string   `yaml:"market,omitempty"`
	Template     string   `yaml:"template,omitempty"`
	ResourceType string   `yaml:"resource_type,omitempty"`
	Protected    bool     `yaml:"protected,omitempty"`
	LastModified string   `yaml:"last_modified,omitempty"`
	Components   []string `yaml:"components,omitempty"`
}

// Preview renders the text components of a page as Markdown, below a YAML header describing the
// page.  Meant for eyeballing what a builder produced without opening the AEM editor.
func (b *Builder) Preview(ctx context.Context, q PageQuery) (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}

	node, err := b.CMS.GetNode(ctx, q.PagePath, -1)
	if err != nil {
		return "", fmt.Errorf("authoring: couldn't fetch %s: %w", q.PagePath, err)
	}

	header := PreviewHeader{
		Title: node.Title(),
		Path:  q.PagePath,
	}
	if market, err := b.Markets.FromSitePath(q.PagePath); err == nil {
		header.Market = market
	}
	content, _ := node["jcr:content"].(map[string]any)
	if content == nil {
		content = node
	}
	header.Template, _ = content["cq:template"].(string)
	header.ResourceType, _ = content["sling:resourceType"].(string)
	header.Protected, _ = content["cq:authenticationRequired"].(bool)
	header.LastModified, _ = content["cq:lastModified"].(string)

	var sections []string
	converter := b.markdownConverter()
	for _, c := range textComponents("", content) {
		markdown, err := converter.ConvertString(c.html)
		if err != nil {
			return "", fmt.Errorf("authoring: failed to convert %s to Markdown: %w", c.path, err)
		}
		header.Components = append(header.Components, c.path)
		sections = append(sections, strings.TrimSpace(markdown))
	}

	yamlHeader, err := yaml.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("authoring: couldn't marshal header YAML: %w", err)
	}

	return fmt.Sprintf(`---
%s
---
%s
`,
		strings.TrimSpace(string(yamlHeader)),
		strings.Join(sections, "\n\n")), nil
}

// markdownConverter resolves relative links against the AEM host, if we know it.
func (b *Builder) markdownConverter() *md.Converter {
	domain := ""
	if b.BaseURI != nil {
		domain = b.BaseURI.Host
	}

	opt := &md.Options{
		GetAbsoluteURL: func(selec *goquery.Selection, rawURL string, domain string) string {
			if domain == "" {
				return rawURL
			}
			u, err := url.Parse(rawURL)
			if err != nil || u.Scheme == "data" {
				return rawURL
			}
			if u.Scheme == "" {
				u.Scheme = b.BaseURI.Scheme
			}
			if u.Host == "" {
				u.Host = domain
			}
			return u.String()
		},
	}

	converter := md.NewConverter(domain, true, opt)
	converter.Use(mdplugin.GitHubFlavored())
	return converter
}

type textComponent struct {
	path string
	html string
}

// textComponents walks a content tree, in name order, collecting rich text.
func textComponents(prefix string, node map[string]any) []textComponent {
	var out []textComponent
	if html, ok := node["text"].(string); ok {
		rich := node["textIsRich"] == true || node["textIsRich"] == "true"
		resourceType, _ := node["sling:resourceType"].(string)
		if rich || strings.HasSuffix(resourceType, "/text") {
			out = append(out, textComponent{path: prefix, html: html})
		}
	}

	names := make([]string, 0, len(node))
	for name, v := range node {
		if _, ok := v.(map[string]any); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		child := name
		if prefix != "" {
			child = prefix + "/" + name
		}
		out = append(out, textComponents(child, node[name].(map[string]any))...)
	}
	return out
}
