package fill

import (
	"strings"

	"github.com/opptym/quill/project"
)

// Value resolution. Each resolver is a pure function of the snapshot
// with fixed fallbacks. A resolver returning "" makes its rule
// non-matching, so the next rule in priority order gets a chance.

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func resolveMetaTitle(s *project.Snapshot) string {
	if s.SEO == nil {
		return ""
	}
	return firstNonEmpty(s.SEO.MetaTitle)
}

func resolveMetaDescription(s *project.Snapshot) string {
	if s.SEO == nil {
		return ""
	}
	return firstNonEmpty(s.SEO.MetaDescription)
}

func resolveTitle(s *project.Snapshot) string {
	if s.SEO != nil && s.SEO.MetaTitle != "" {
		return s.SEO.MetaTitle
	}
	return firstNonEmpty(s.Title, s.Name)
}

func resolveName(s *project.Snapshot) string {
	return firstNonEmpty(s.Name)
}

func resolveURL(s *project.Snapshot) string {
	return firstNonEmpty(s.URL)
}

func resolveEmail(s *project.Snapshot) string {
	return firstNonEmpty(s.Email)
}

func resolveCompany(s *project.Snapshot) string {
	return firstNonEmpty(s.Company, s.Name)
}

func resolvePhone(s *project.Snapshot) string {
	return firstNonEmpty(s.Phone)
}

func resolveWhatsapp(s *project.Snapshot) string {
	return firstNonEmpty(s.Whatsapp, s.Phone)
}

func resolveDescription(s *project.Snapshot) string {
	if s.SEO != nil && s.SEO.MetaDescription != "" {
		return s.SEO.MetaDescription
	}
	return firstNonEmpty(s.Description)
}

func resolveCategory(s *project.Snapshot) string {
	return firstNonEmpty(s.Category)
}

// resolveKeywords concatenates meta keywords, target keywords, and the
// project keyword list in that order, joined by ", ". Duplicates across
// the three sources are kept; the upstream data model treats repeats as
// intentional weighting.
func resolveKeywords(s *project.Snapshot) string {
	var parts []string
	if s.SEO != nil {
		parts = append(parts, s.SEO.MetaKeywords...)
		parts = append(parts, s.SEO.TargetKeywords...)
	}
	parts = append(parts, s.Keywords...)

	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, ", ")
}

// resolveAddress joins the non-empty coarse address parts.
func resolveAddress(s *project.Snapshot) string {
	var parts []string
	for _, p := range []string{s.Address.Line1, s.Address.City, s.Address.State, s.Address.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

func resolveCity(s *project.Snapshot) string {
	return firstNonEmpty(s.Address.City)
}

func resolveState(s *project.Snapshot) string {
	return firstNonEmpty(s.Address.State)
}

func resolveCountry(s *project.Snapshot) string {
	return firstNonEmpty(s.Address.Country)
}

func resolvePostalCode(s *project.Snapshot) string {
	return firstNonEmpty(s.Address.PostalCode)
}

func resolveFacebook(s *project.Snapshot) string {
	if s.Social == nil {
		return ""
	}
	return firstNonEmpty(s.Social.Facebook)
}

func resolveTwitter(s *project.Snapshot) string {
	if s.Social == nil {
		return ""
	}
	return firstNonEmpty(s.Social.Twitter)
}

func resolveInstagram(s *project.Snapshot) string {
	if s.Social == nil {
		return ""
	}
	return firstNonEmpty(s.Social.Instagram)
}

func resolveLinkedIn(s *project.Snapshot) string {
	if s.Social == nil {
		return ""
	}
	return firstNonEmpty(s.Social.LinkedIn)
}

func resolveYouTube(s *project.Snapshot) string {
	if s.Social == nil {
		return ""
	}
	return firstNonEmpty(s.Social.YouTube)
}

func resolveArticleContent(s *project.Snapshot) string {
	if s.Article != nil && s.Article.Content != "" {
		return s.Article.Content
	}
	return resolveDescription(s)
}

func resolveArticleAuthor(s *project.Snapshot) string {
	if s.Article == nil {
		return ""
	}
	return firstNonEmpty(s.Article.Author)
}

func resolvePrice(s *project.Snapshot) string {
	if s.Classified == nil {
		return ""
	}
	return firstNonEmpty(s.Classified.Price)
}

func resolveCondition(s *project.Snapshot) string {
	if s.Classified == nil {
		return ""
	}
	return firstNonEmpty(s.Classified.Condition)
}

func resolveBusinessHours(s *project.Snapshot) string {
	return firstNonEmpty(s.BusinessHours)
}

func resolveEstablishedYear(s *project.Snapshot) string {
	return firstNonEmpty(s.EstablishedYear)
}

func resolveLogo(s *project.Snapshot) string {
	return firstNonEmpty(s.LogoURL)
}
