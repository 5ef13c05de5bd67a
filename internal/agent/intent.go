package agent

import "strings"

// intentKeywords maps each routable agent type to the phrases that select
// it. Matching is case-insensitive substring search over the task text,
// checked in Types() priority order. Polish first, English as fallback;
// the assistant's audience is Polish-speaking but mixed input happens.
var intentKeywords = map[Type][]string{
	TypeWeather: {
		"pogoda", "pogodę", "pogodzie", "temperatura", "prognoza",
		"deszcz", "śnieg", "wiatr",
		"weather", "forecast", "temperature",
	},
	TypeSearch: {
		"wyszukaj", "szukaj", "znajdź w internecie", "sprawdź w sieci",
		"search", "look up", "find online",
	},
	TypeCooking: {
		"przepis", "ugotuj", "ugotować", "obiad", "kolacja", "śniadanie",
		"upiec", "składniki",
		"recipe", "cook", "dinner", "ingredients",
	},
	TypeShopping: {
		"zakupy", "lista zakupów", "kup", "promocja", "promocje",
		"shopping", "buy", "groceries",
	},
	TypeReceipt: {
		"paragon", "paragonu", "rachunek",
		"receipt",
	},
}

// DetectIntent picks the agent type for a task. Capabilities disabled in
// states fall through to the general conversation agent.
func DetectIntent(task string, states States) Type {
	lower := strings.ToLower(task)
	for _, t := range Types() {
		if t == TypeGeneral {
			break
		}
		if !states.allows(t) {
			continue
		}
		for _, kw := range intentKeywords[t] {
			if strings.Contains(lower, kw) {
				return t
			}
		}
	}
	return TypeGeneral
}

// allows reports whether the capability behind t is active.
// Receipt analysis rides on the shopping capability.
func (s States) allows(t Type) bool {
	switch t {
	case TypeWeather:
		return s.Weather
	case TypeSearch:
		return s.Search
	case TypeCooking:
		return s.Cooking
	case TypeShopping, TypeReceipt:
		return s.Shopping
	default:
		return true
	}
}
