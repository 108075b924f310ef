package processors

import "strings"

// ProviderRegistry is the curated provider-name table the classifier and the
// bill-cycle estimator match descriptions against. It is injected rather than
// a package-level constant so tests can swap it and other markets can supply
// their own lists.
type ProviderRegistry struct {
	Energy    []string
	Water     []string
	Telecom   []string
	Waste     []string
	Streaming []string

	// Supporters are the household member names whose transfers the
	// family-transfer predicate recognizes in free text.
	Supporters []string
}

// DefaultProviderRegistry returns the Italian-market provider table.
func DefaultProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		Energy: []string{
			"enel", "eni", "plenitude", "edison", "a2a", "acea energia",
			"iren", "hera", "sorgenia", "octopus", "engie",
		},
		Water: []string{
			"acquedotto", "smat", "abc napoli", "acea ato", "gruppo cap",
			"publiacqua",
		},
		Telecom: []string{
			"tim", "telecom italia", "vodafone", "windtre", "wind tre",
			"iliad", "fastweb", "tiscali", "ho mobile", "very mobile",
		},
		Waste: []string{
			"tari", "amiu", "ama roma", "alia servizi", "asia napoli",
		},
		Streaming: []string{
			"netflix", "spotify", "disney", "prime video", "dazn",
			"now tv", "apple tv", "youtube premium", "paramount", "infinity",
		},
	}
}

// MatchesUtility reports whether the text mentions a known energy, water,
// telecom or waste provider. Streaming providers are deliberately excluded:
// those classify as subscriptions, not utility bills.
func (r *ProviderRegistry) MatchesUtility(text string) bool {
	lowered := strings.ToLower(text)
	for _, group := range [][]string{r.Energy, r.Water, r.Telecom, r.Waste} {
		for _, name := range group {
			if containsWord(lowered, name) {
				return true
			}
		}
	}
	return false
}

// MatchesStreaming reports whether the text mentions a known streaming provider.
func (r *ProviderRegistry) MatchesStreaming(text string) bool {
	lowered := strings.ToLower(text)
	for _, name := range r.Streaming {
		if strings.Contains(lowered, name) {
			return true
		}
	}
	return false
}

// MatchesSupporter reports whether the text mentions a configured household
// supporter name.
func (r *ProviderRegistry) MatchesSupporter(text string) bool {
	lowered := strings.ToLower(text)
	for _, name := range r.Supporters {
		if name != "" && strings.Contains(lowered, strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// containsWord matches name as a token inside text, so short provider names
// like "tim" do not fire inside unrelated words ("ultimo", "sentimento").
func containsWord(text, name string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], name)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(name)
		beforeOK := start == 0 || !isAlnum(text[start-1])
		afterOK := end == len(text) || !isAlnum(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
		if idx >= len(text) {
			return false
		}
	}
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
