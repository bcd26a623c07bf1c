// Query categorization.
//
// DetectCategory assigns every query exactly one coarse subject category used
// to select its TTL. Matching is an ordered keyword-rule list; the first rule
// containing any matching keyword wins, so overlapping queries ("visa price")
// resolve by list position, not by scoring. The precedence below is the
// documented contract and is pinned by tests.
package cache

import "strings"

// Cache categories, in match precedence order. CategoryGeneral is the
// fallback for queries matching no rule.
const (
	CategoryWeather    = "weather"
	CategoryVisa       = "visa"
	CategoryCurrency   = "currency"
	CategoryTransport  = "transport"
	CategoryPrice      = "price"
	CategoryFood       = "food"
	CategoryAttraction = "attraction"
	CategoryTimezone   = "timezone"
	CategoryBestSeason = "bestSeason"
	CategoryTips       = "tips"
	CategoryGeneral    = "general"
)

type categoryRule struct {
	category string
	keywords []string
}

// categoryRules is evaluated top to bottom; order is the tie-break policy.
var categoryRules = []categoryRule{
	{CategoryWeather, []string{"날씨", "기온", "우기", "weather", "temperature", "rain"}},
	{CategoryVisa, []string{"비자", "visa", "입국", "여권", "passport"}},
	{CategoryCurrency, []string{"환율", "환전", "currency", "exchange rate"}},
	{CategoryTransport, []string{"교통", "지하철", "버스", "기차", "transport", "metro", "train", "bus"}},
	{CategoryPrice, []string{"물가", "가격", "비용", "price", "cost", "budget"}},
	{CategoryFood, []string{"맛집", "음식", "식당", "food", "restaurant", "eat"}},
	{CategoryAttraction, []string{"명소", "관광", "볼거리", "attraction", "sight", "museum"}},
	{CategoryTimezone, []string{"시차", "timezone", "time zone"}},
	{CategoryBestSeason, []string{"성수기", "여행 시기", "best season", "best time to visit"}},
	{CategoryTips, []string{"팁", "주의", "꿀팁", "tip", "advice", "etiquette"}},
}

// DetectCategory maps a query to its cache category. The function is total:
// every string maps to exactly one category, defaulting to CategoryGeneral.
func DetectCategory(query string) string {
	q := strings.ToLower(query)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				return rule.category
			}
		}
	}
	return CategoryGeneral
}
