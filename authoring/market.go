package authoring

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/toothbrush/webverse-authoring/aem"
)

// Markets is the set of market codes this deployment serves.
type Markets map[string]struct{}

func DefaultMarkets() Markets {
	return NewMarkets("india", "germany", "usa", "uk", "france")
}

func NewMarkets(codes ...string) Markets {
	m := Markets{}
	for _, c := range codes {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			m[c] = struct{}{}
		}
	}
	return m
}

// ParseMarkets reads a comma separated list, e.g. from MARKETS.
func ParseMarkets(s string) (Markets, error) {
	m := NewMarkets(strings.Split(s, ",")...)
	if len(m) == 0 {
		return nil, fmt.Errorf("authoring: no markets in %q", s)
	}
	for code := range m {
		if Sanitize(code) != code || strings.Contains(code, "-") {
			return nil, fmt.Errorf("authoring: market code %q must be lower case letters and digits only", code)
		}
	}
	return m, nil
}

func (m Markets) Has(code string) bool {
	_, ok := m[strings.ToLower(code)]
	return ok
}

// List returns the market codes in alphabetical order.
func (m Markets) List() []string {
	codes := maps.Keys(m)
	sort.Strings(codes)
	return codes
}

func (m Markets) String() string {
	return strings.Join(m.List(), ",")
}

const marketPrefix = "hcp-"

// FromSitePath finds the market of a site: the first segment "hcp-{market}" naming a configured
// market, up to the next "-".  So /content/x/hcp-india and /content/hcp-portal/hcp-india-drugx/en
// are both india.
func (m Markets) FromSitePath(sitePath string) (string, error) {
	if err := aem.ValidatePath(sitePath); err != nil {
		return "", invalid("site_path", "%s is not an absolute repository path", quote(sitePath))
	}

	unsupported := ""
	for _, segment := range strings.Split(strings.Trim(sitePath, "/"), "/") {
		if !strings.HasPrefix(segment, marketPrefix) {
			continue
		}
		market, _, _ := strings.Cut(strings.TrimPrefix(segment, marketPrefix), "-")
		market = strings.ToLower(market)
		if m.Has(market) {
			return market, nil
		}
		if unsupported == "" {
			unsupported = market
		}
	}

	if unsupported != "" {
		return "", invalid("site_path", "market %s is not one of %s", quote(unsupported), m)
	}
	return "", invalid("site_path", "%s has no hcp-{market} segment", quote(sitePath))
}

// marketFor resolves the market of a request that carries both a site path and, optionally, an
// explicit market.  The two have to agree.
func (m Markets) marketFor(sitePath, market string) (string, error) {
	fromPath, err := m.FromSitePath(sitePath)
	if err != nil {
		return "", err
	}
	if market != "" && !strings.EqualFold(market, fromPath) {
		return "", invalid("market", "%s does not match the market %s of site_path", quote(market), quote(fromPath))
	}
	return fromPath, nil
}

// Sanitize turns free text into a path segment: lower case, and every run of anything other
// than a-z or 0-9 becomes a single "-".  Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// SegmentFor names the page a template is duplicated to: hcp-{region} or hcp-{region}-{drug}.
func SegmentFor(region, drug string) (string, error) {
	r := Sanitize(region)
	if r == "" {
		return "", invalid("market_region", "%s has no letters or digits", quote(region))
	}
	segment := marketPrefix + r
	if d := Sanitize(drug); d != "" {
		segment += "-" + d
	}
	return segment, nil
}

// MarketTitle is how a market code reads in a title: "uk" is "UK", "india" is "India".
func MarketTitle(code string) string {
	if code == "" {
		return ""
	}
	if len(code) <= 3 {
		return strings.ToUpper(code)
	}
	return strings.ToUpper(code[:1]) + code[1:]
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}
