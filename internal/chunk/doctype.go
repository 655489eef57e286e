package chunk

import "strings"

// Document type categories assigned by keyword heuristics.
const (
	DocTypeSportsbookRules = "sportsbook_rules"
	DocTypeBonusRules      = "bonus_rules"
	DocTypePrivacyPolicy   = "privacy_policy"
	DocTypeAMLPolicy       = "aml_policy"
	DocTypeTerms           = "terms"
	DocTypeGeneral         = "general"
)

// docTypeRules is a priority-ordered keyword list; the first rule whose
// keywords match wins, so a terms document that also mentions "bonus" is
// classified by whichever rule comes first.
var docTypeRules = []struct {
	docType  string
	keywords []string
}{
	{DocTypeSportsbookRules, []string{"sportsbook", "betting"}},
	{DocTypeBonusRules, []string{"bonus", "promotion"}},
	{DocTypePrivacyPolicy, []string{"privacy", "data"}},
	{DocTypeAMLPolicy, []string{"aml", "money laundering"}},
	{DocTypeTerms, []string{"terms", "conditions"}},
}

// DetectDocumentType classifies a whole document by case-insensitive
// substring search. It is intentionally a cheap heuristic: the corpus is a
// small, curated set of policy files, not arbitrary text.
func DetectDocumentType(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range docTypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.docType
			}
		}
	}
	return DocTypeGeneral
}
