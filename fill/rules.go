package fill

import "github.com/opptym/quill/project"

// Rule pairs a field-name pattern with a snapshot resolver. Patterns
// are case-insensitive regular expressions tested against a candidate
// control's name, id, and placeholder. They are restricted to syntax
// shared by Go's regexp and browser RegExp, because the same table is
// evaluated server-side in Apply and client-side in the generated
// script.
type Rule struct {
	Name    string
	Pattern string
	resolve func(*project.Snapshot) string
}

// Resolve derives the rule's value from a snapshot.
func (r Rule) Resolve(s *project.Snapshot) string {
	return r.resolve(s)
}

// Rules returns the heuristic match table. The order is first-match-
// wins and load-bearing: the specific meta rules sit ahead of the
// generic title/description rules so a "meta_title" control never
// receives the plain title value. Reordering entries changes observable
// fill behavior.
func Rules() []Rule {
	return []Rule{
		{Name: "meta-title", Pattern: `meta[-_ ]?title`, resolve: resolveMetaTitle},
		{Name: "meta-description", Pattern: `meta[-_ ]?desc`, resolve: resolveMetaDescription},
		{Name: "title", Pattern: `title|headline`, resolve: resolveTitle},
		{Name: "name", Pattern: `name`, resolve: resolveName},
		{Name: "url", Pattern: `url|website|web[-_ ]?address|domain`, resolve: resolveURL},
		{Name: "email", Pattern: `e[-_]?mail`, resolve: resolveEmail},
		{Name: "company", Pattern: `company|organization|organisation`, resolve: resolveCompany},
		{Name: "phone", Pattern: `phone|mobile|telephone|tel\b`, resolve: resolvePhone},
		{Name: "whatsapp", Pattern: `whats[-_ ]?app`, resolve: resolveWhatsapp},
		{Name: "description", Pattern: `desc|about|summary|overview`, resolve: resolveDescription},
		{Name: "category", Pattern: `category|categories|industry|niche`, resolve: resolveCategory},
		{Name: "keywords", Pattern: `keyword|tags?\b`, resolve: resolveKeywords},
		{Name: "address", Pattern: `address|street`, resolve: resolveAddress},
		{Name: "city", Pattern: `city|town`, resolve: resolveCity},
		{Name: "state", Pattern: `state|province|region`, resolve: resolveState},
		{Name: "country", Pattern: `country`, resolve: resolveCountry},
		{Name: "postal-code", Pattern: `zip|postal|postcode`, resolve: resolvePostalCode},
		{Name: "facebook", Pattern: `facebook|fb[-_ ]?page`, resolve: resolveFacebook},
		{Name: "twitter", Pattern: `twitter`, resolve: resolveTwitter},
		{Name: "instagram", Pattern: `insta`, resolve: resolveInstagram},
		{Name: "linkedin", Pattern: `linkedin`, resolve: resolveLinkedIn},
		{Name: "youtube", Pattern: `youtube`, resolve: resolveYouTube},
		{Name: "article", Pattern: `article|content|body`, resolve: resolveArticleContent},
		{Name: "author", Pattern: `author`, resolve: resolveArticleAuthor},
		{Name: "price", Pattern: `price|cost|amount`, resolve: resolvePrice},
		{Name: "condition", Pattern: `condition`, resolve: resolveCondition},
		{Name: "business-hours", Pattern: `hours|opening|schedule`, resolve: resolveBusinessHours},
		{Name: "established-year", Pattern: `established|founded|year\b`, resolve: resolveEstablishedYear},
		{Name: "logo", Pattern: `logo`, resolve: resolveLogo},
	}
}
