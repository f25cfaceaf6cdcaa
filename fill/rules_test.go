package fill

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opptym/quill/project"
)

// firstMatch runs a field name through the rule table the way the
// heuristic phase does and returns the name of the winning rule.
func firstMatch(t *testing.T, fieldName string) string {
	t.Helper()
	for _, rule := range Rules() {
		re := regexp.MustCompile(`(?i)` + rule.Pattern)
		if re.MatchString(fieldName) {
			return rule.Name
		}
	}
	return ""
}

func TestRules_AllPatternsCompile(t *testing.T) {
	for _, rule := range Rules() {
		_, err := regexp.Compile(`(?i)` + rule.Pattern)
		require.NoError(t, err, "rule %s", rule.Name)
	}
}

func TestRules_MetaTitleBeforeTitle(t *testing.T) {
	assert.Equal(t, "meta-title", firstMatch(t, "meta_title"))
	assert.Equal(t, "meta-title", firstMatch(t, "meta-title"))
	assert.Equal(t, "meta-title", firstMatch(t, "metatitle"))
	assert.Equal(t, "meta-title", firstMatch(t, "Meta Title"))

	assert.Equal(t, "title", firstMatch(t, "page_title"))
	assert.Equal(t, "title", firstMatch(t, "headline"))
}

func TestRules_MetaDescriptionBeforeDescription(t *testing.T) {
	assert.Equal(t, "meta-description", firstMatch(t, "meta_description"))
	assert.Equal(t, "meta-description", firstMatch(t, "meta-desc"))

	assert.Equal(t, "description", firstMatch(t, "description"))
	assert.Equal(t, "description", firstMatch(t, "about_us"))
	assert.Equal(t, "description", firstMatch(t, "summary"))
}

func TestRules_CaseInsensitive(t *testing.T) {
	assert.Equal(t, "email", firstMatch(t, "EMAIL"))
	assert.Equal(t, "email", firstMatch(t, "E-Mail"))
	assert.Equal(t, "url", firstMatch(t, "WebSite"))
}

func TestRules_CommonFieldNames(t *testing.T) {
	cases := map[string]string{
		"business_name":  "name",
		"website":        "url",
		"web_address":    "url",
		"domain":         "url",
		"email_address":  "email",
		"company":        "company",
		"organization":   "company",
		"organisation":   "company",
		"phone_number":   "phone",
		"mobile":         "phone",
		"tel":            "phone",
		"whatsapp":       "whatsapp",
		"whats_app":      "whatsapp",
		"category":       "category",
		"industry":       "category",
		"keywords":       "keywords",
		"tag":            "keywords",
		"street_address": "address",
		"city":           "city",
		"town":           "city",
		"state":          "state",
		"province":       "state",
		"country":        "country",
		"zip_code":       "postal-code",
		"postcode":       "postal-code",
		"fb_page":        "facebook",
		"twitter_handle": "twitter",
		"instagram":      "instagram",
		"linkedin":       "linkedin",
		"youtube":        "youtube",
		"author":         "author",
		"price":          "price",
		"condition":      "condition",
		"opening_hours":  "business-hours",
		"founded":        "established-year",
		"logo":           "logo",
	}

	for field, want := range cases {
		assert.Equal(t, want, firstMatch(t, field), "field %q", field)
	}
}

func TestRules_BusinessHoursNotSwallowedByCompany(t *testing.T) {
	// "business_hours" must reach the hours rule; the company rule does
	// not claim bare "business".
	assert.Equal(t, "business-hours", firstMatch(t, "business_hours"))
}

func TestRules_NameClaimsGenericNameFields(t *testing.T) {
	// Generic "name" fields match the name rule; "company_name" is
	// claimed by name because it appears earlier than company. That is
	// acceptable: resolveName and resolveCompany agree when Company is
	// empty, and a business directory's "company_name" wants the
	// business name either way.
	assert.Equal(t, "name", firstMatch(t, "name"))
	assert.Equal(t, "name", firstMatch(t, "your_name"))
}

func TestRules_NoMatch(t *testing.T) {
	assert.Equal(t, "", firstMatch(t, "captcha"))
	assert.Equal(t, "", firstMatch(t, "csrf"))
	assert.Equal(t, "", firstMatch(t, "q"))
}

func TestRules_PatternsAvoidGoOnlySyntax(t *testing.T) {
	// The table is evaluated by browser RegExp too, so RE2-only and
	// lookaround constructs must never appear.
	forbidden := regexp.MustCompile(`\(\?[^i:]|\\p\{|\\P\{`)
	for _, rule := range Rules() {
		assert.False(t, forbidden.MatchString(rule.Pattern),
			"rule %s uses syntax unavailable in browser RegExp: %s", rule.Name, rule.Pattern)
	}
}

func TestRules_ResolveWiring(t *testing.T) {
	snap := sampleSnapshot()
	snap.SEO = &project.SEOMeta{MetaTitle: "SEO Title", MetaDescription: "SEO desc"}

	byName := make(map[string]Rule)
	for _, rule := range Rules() {
		byName[rule.Name] = rule
	}

	assert.Equal(t, "SEO Title", byName["meta-title"].Resolve(snap))
	assert.Equal(t, "SEO desc", byName["meta-description"].Resolve(snap))
	assert.Equal(t, "Acme Web Studio", byName["name"].Resolve(snap))
	assert.Equal(t, "https://acme-web.example.com", byName["url"].Resolve(snap))
	assert.Equal(t, "hello@acme-web.example.com", byName["email"].Resolve(snap))
	assert.Equal(t, "62701", byName["postal-code"].Resolve(snap))
}
