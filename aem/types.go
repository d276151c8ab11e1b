package aem

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
)

// Node is a JCR node as rendered by the Sling JSON servlet, e.g. GET /content/site.infinity.json.
type Node map[string]any

// Title digs out the page title from either a page node or its jcr:content.
func (n Node) Title() string {
	if t, ok := n["jcr:title"].(string); ok {
		return t
	}
	if content, ok := n["jcr:content"].(map[string]any); ok {
		if t, ok := content["jcr:title"].(string); ok {
			return t
		}
	}
	return ""
}

// Properties are written to a node with the Sling POST servlet.  Nested maps address child nodes,
// so {"jcr:content": {"jcr:title": "x"}} becomes the form field "jcr:content/jcr:title=x", and
// Sling creates intermediate nodes as needed.  A nil value deletes the property.
type Properties map[string]any

// Form flattens the properties into Sling POST form fields.  Non-string scalars get an @TypeHint
// so they land in the JCR as Boolean/Long/Double rather than String.
func (p Properties) Form() (url.Values, error) {
	out := url.Values{}
	if err := flatten(out, "", p); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(out url.Values, prefix string, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if k == "" {
			return fmt.Errorf("aem: empty property name under %q", prefix)
		}
		name := k
		if prefix != "" {
			name = prefix + "/" + k
		}

		switch val := m[k].(type) {
		case nil:
			out.Set(name+"@Delete", "")
		case map[string]any:
			if err := flatten(out, name, val); err != nil {
				return err
			}
		case Properties:
			if err := flatten(out, name, val); err != nil {
				return err
			}
		case Node:
			if err := flatten(out, name, val); err != nil {
				return err
			}
		case []string:
			for _, s := range val {
				out.Add(name, s)
			}
			out.Set(name+"@TypeHint", "String[]")
		case []any:
			hint := "String[]"
			for i, item := range val {
				s, h, err := scalar(item)
				if err != nil {
					return fmt.Errorf("aem: property %s[%d]: %w", name, i, err)
				}
				if i == 0 && h != "" {
					hint = h + "[]"
				}
				out.Add(name, s)
			}
			out.Set(name+"@TypeHint", hint)
		default:
			s, hint, err := scalar(val)
			if err != nil {
				return fmt.Errorf("aem: property %s: %w", name, err)
			}
			out.Set(name, s)
			if hint != "" {
				out.Set(name+"@TypeHint", hint)
			}
		}
	}
	return nil
}

func scalar(v any) (string, string, error) {
	switch val := v.(type) {
	case string:
		return val, "", nil
	case bool:
		return strconv.FormatBool(val), "Boolean", nil
	case int:
		return strconv.Itoa(val), "Long", nil
	case int64:
		return strconv.FormatInt(val, 10), "Long", nil
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) && math.Abs(val) < 1<<53 {
			return strconv.FormatInt(int64(val), 10), "Long", nil
		}
		return strconv.FormatFloat(val, 'f', -1, 64), "Double", nil
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return val.String(), "Long", nil
		}
		return val.String(), "Double", nil
	}
	return "", "", fmt.Errorf("unsupported value of type %T", v)
}

// User is the response of /libs/granite/security/currentuser.json.
type User struct {
	AuthorizableID string `json:"authorizableId"`
	Home           string `json:"home"`
	Name           string `json:"name"`
}

func (u User) Anonymous() bool {
	return u.AuthorizableID == "" || u.AuthorizableID == "anonymous"
}

type csrfResponse struct {
	Token string `json:"token"`
}

// Connectivity and authentication are reported separately: AEM can be up while rejecting us.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	Connected    = "connected"
	Disconnected = "disconnected"

	AuthAuthenticated = "authenticated"
	AuthRejected      = "rejected"
	AuthUnavailable   = "unavailable"
	AuthUnknown       = "unknown"
)

type Health struct {
	Status         string     `json:"status"`
	AEM            string     `json:"aem"`
	Host           string     `json:"host"`
	Authentication AuthStatus `json:"authentication"`
	Error          string     `json:"error,omitempty"`
}

type AuthStatus struct {
	Method      AuthMethod `json:"method"`
	Status      string     `json:"status"`
	Username    string     `json:"username,omitempty"`
	ServiceUser string     `json:"service_user,omitempty"`
}
