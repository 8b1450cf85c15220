package classify

import (
	"fmt"
	"strings"

	"github.com/sells-group/gfscout/internal/llm"
	"github.com/sells-group/gfscout/internal/model"
)

const systemPrompt = `You are a meticulous gluten-free dining investigator. You classify establishments found by a "gluten-free" keyword search and you answer with JSON only.`

const rubric = `Gluten-free status tiers:
1. "Dedicated GF": the NAME contains "gluten-free" or a regional equivalent (glutenfrei, glutenfreie, sans gluten, sin gluten, senza glutine), or another strong signal of a fully gluten-free kitchen ("celiac safe", "100% gluten-free", "Zöliakie sicher"), or it is a brand you know to be exclusively gluten-free.
2. "Offers GF": an ordinary restaurant, pizzeria, cafe or bakery that does not claim to be fully gluten-free but whose name or Google types suggest gluten-free options or a separate menu. The search already used a gluten-free keyword, so prefer this tier unless the place is clearly dedicated or clearly unclear.
3. "Status Unclear": name and types give too little to go on, or the place is a kind of business where gluten is everywhere and cross-contamination is likely without stated protocols (many ordinary bakeries, some pizzerias). When in doubt, use this tier.`

var typeRules = map[model.SearchType]string{
	model.SearchTypeRestaurants: `Type rules for "restaurants":
- Google types include "restaurant"; other tags like "cafe", "bar" or "food" alongside it are fine.
- "bakery" without "restaurant" is probably not a restaurant.
- Without the "restaurant" tag, include it only if the name clearly means a full-service restaurant (Diner, Steakhouse, Gasthaus, Wirtshaus, Trattoria, Pizzeria).
- Places that are only a bakery or only a cafe are not restaurants.`,
	model.SearchTypeCafes: `Type rules for "cafes":
- Google types include "cafe"; other tags like "restaurant", "bakery" or "food" alongside it are fine.
- A "bakery" whose name suggests seating and coffee (e.g. "Bakery & Cafe", Konditorei, Kaffeehaus) counts.
- Tags like "coffee_shop" or "tea_room" count when "cafe" is missing.
- Formal restaurants without a cafe side and bakeries with no cafe service are not cafes.`,
	model.SearchTypeBakery: `Type rules for "bakery":
- Google types include "bakery"; tags like "cafe", "store" or "food" alongside it are common and fine.
- Regional names (Bäckerei, Boulangerie, Panadería) are positive signals.
- Without the "bakery" tag, include it only if the name leaves no doubt that it is a bakery.`,
}

const answerFormat = `Answer with ONLY a JSON array, one object per establishment listed, using the place_id exactly as given:
[{"place_id": "<place_id>", "gf_status": "Dedicated GF" | "Offers GF" | "Status Unclear"}]
No prose, no markdown.`

// systemFor holds everything that depends only on the search type, so the
// system prompt is identical across requests of one type.
func systemFor(typ model.SearchType) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	b.WriteString(rubric)
	b.WriteString("\n\n")
	if rules, ok := typeRules[typ]; ok {
		b.WriteString(rules)
		b.WriteString("\nAn establishment that does not match the requested type gets \"Status Unclear\".\n\n")
	}
	b.WriteString(answerFormat)
	return b.String()
}

// BuildPrompt renders the single batch prompt for a list of establishments.
func BuildPrompt(places []model.Establishment, q model.SearchQuery) llm.Prompt {
	var b strings.Builder

	where := "near the given coordinates"
	if q.City != "" {
		where = "in " + q.Location()
	}
	fmt.Fprintf(&b, "A user is looking for gluten-free %s %s.\n\n", q.Type, where)

	b.WriteString("Establishments (place_id | name | google types | address):\n")
	for _, p := range places {
		fmt.Fprintf(&b, "- %s | %s | %s | %s\n",
			p.PlaceID, oneLine(p.Name), strings.Join(p.Types, ", "), oneLine(p.Address))
	}

	return llm.Prompt{System: systemFor(q.Type), User: b.String()}
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "/")
}
