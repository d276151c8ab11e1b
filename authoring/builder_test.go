package authoring

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/toothbrush/webverse-authoring/aem"
	"github.com/toothbrush/webverse-authoring/internal/aemtest"
)

const testSite = "/content/mava/hcp-india"

func newTestBuilder(t *testing.T) (*Builder, *aemtest.Server) {
	t.Helper()

	fake := aemtest.New(t)
	api, err := aem.NewAPI(fake.URL, &aem.BasicAuth{Username: aemtest.Username, Password: aemtest.Password})
	require.NoError(t, err)
	api.Logger = zaptest.NewLogger(t)

	b := NewBuilder(api, nil)
	b.Logger = zaptest.NewLogger(t)
	b.BaseURI = api.BaseURI
	return b, fake
}

// unwritable cannot be flattened into Sling form fields.
var unwritable = aem.Properties{"jcr:content": map[string]any{"items": []any{map[string]any{"a": "b"}}}}

// requireValidation asserts err is a validation error about field.
func requireValidation(t *testing.T, err error, field string) {
	t.Helper()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, field, verr.Field, verr.Error())
}
