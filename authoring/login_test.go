package authoring

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLoginPage(t *testing.T) {
	b, fake := newTestBuilder(t)
	fake.PutAsset("/content/dam/templates/login-form.html", `<form>{{market}}</form>`)
	fake.PutAsset("/content/dam/templates/login-footer.html", `<footer>{{site_path}}</footer>`)

	outcome, err := b.CreateLoginPage(context.Background(), LoginPageRequest{
		SitePath: testSite,
		Market:   "india",
		LoginComponentsConfig: []LoginComponentConfig{
			{Name: "form", TemplateAssetPath: "templates/login-form.html", ResourceType: "mava/components/loginform"},
			{Name: "help", TemplateAssetPath: "templates/missing.html"},
			{Name: "footer", TemplateAssetPath: "templates/login-footer.html"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, Summary{Total: 3, Successful: 2, Failed: 1}, outcome.Summary)
	assert.False(t, outcome.Results[1].Success)
	assert.Equal(t, http.StatusNotFound, outcome.Results[1].StatusCode)

	login := testSite + "/login"
	assert.Equal(t, "Login India", fake.Node(login+"/jcr:content")["jcr:title"])

	form := fake.Node(login + "/jcr:content/root/form")
	assert.Equal(t, "<form>india</form>", form["text"])
	assert.Equal(t, "mava/components/loginform", form["sling:resourceType"])

	footer := fake.Node(login + "/jcr:content/root/footer")
	assert.Equal(t, "<footer>"+testSite+"</footer>", footer["text"])
	assert.Equal(t, "core/wcm/components/text/v2/text", footer["sling:resourceType"])
}

func TestCreateLoginPageKeepsExistingPage(t *testing.T) {
	b, fake := newTestBuilder(t)
	fake.PutNode(testSite+"/login/jcr:content", map[string]any{"jcr:title": "Sign in"})
	fake.PutAsset("/content/dam/templates/login-form.html", `<form></form>`)

	_, err := b.CreateLoginPage(context.Background(), LoginPageRequest{
		SitePath:              testSite,
		LoginComponentsConfig: []LoginComponentConfig{{Name: "form", TemplateAssetPath: "templates/login-form.html"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Sign in", fake.Node(testSite+"/login/jcr:content")["jcr:title"])
	assert.Equal(t, 1, fake.Count(http.MethodPost, testSite+"/login"), "only the component is written")
}

func TestCreateLoginPageFailsWithoutLoginPage(t *testing.T) {
	b, fake := newTestBuilder(t)
	fake.FailWith(testSite+"/login", http.StatusInternalServerError)

	_, err := b.CreateLoginPage(context.Background(), LoginPageRequest{
		SitePath:              testSite,
		LoginComponentsConfig: []LoginComponentConfig{{Name: "form", TemplateAssetPath: "x"}},
	})
	assert.Error(t, err)
}

func TestCreateLoginPageValidation(t *testing.T) {
	b, fake := newTestBuilder(t)
	ctx := context.Background()

	_, err := b.CreateLoginPage(ctx, LoginPageRequest{SitePath: testSite})
	requireValidation(t, err, "login_components_config")

	_, err = b.CreateLoginPage(ctx, LoginPageRequest{SitePath: testSite, LoginComponentsConfig: []LoginComponentConfig{{Name: "form"}}})
	requireValidation(t, err, "login_components_config[0].template_asset_path")

	_, err = b.CreateLoginPage(ctx, LoginPageRequest{SitePath: testSite, LoginComponentsConfig: []LoginComponentConfig{
		{Name: "form", TemplateAssetPath: "x"}, {Name: "form", TemplateAssetPath: "y"},
	}})
	requireValidation(t, err, "login_components_config[1].name")

	assert.Empty(t, fake.Requests())
}
