// Package classify decides what kind of reply a user message needs and how
// large the model's output budget should be. Classification is a pure, total
// function: every input maps to exactly one category, resolved by a fixed
// rule order with no scoring.
//
// Rule precedence:
//  1. An explicit request type always wins.
//  2. The presence of the existing-itinerary context marker means the user
//     is editing a plan the client sent along -> modify.
//  3. A short message with no travel keyword is ordinary chat.
//  4. Everything else is a generation request.
package classify

import "strings"

// Request categories.
const (
	CategoryChat     = "chat"
	CategoryGenerate = "generate"
	CategoryModify   = "modify"
)

// Output-size budgets per category, in tokens. Chat replies are cheap;
// full itinerary generation needs the most headroom.
const (
	BudgetChat     = 1024
	BudgetModify   = 4096
	BudgetGenerate = 8192
)

// ItineraryContextMarker is prepended by the client when it sends the
// current itinerary along for modification. Its presence alone classifies
// the request as modify.
const ItineraryContextMarker = "[현재 일정]"

// chatMaxRunes is the length under which a keyword-free message is treated
// as small talk rather than an implicit travel request.
const chatMaxRunes = 20

// travelKeywords flag a message as travel-related regardless of length.
var travelKeywords = []string{
	"여행", "일정", "여정", "코스", "계획",
	"관광", "숙소", "호텔", "항공", "맛집",
	"trip", "travel", "itinerary", "plan", "tour",
	"hotel", "flight", "visit",
}

// Result is the classification outcome for one request.
type Result struct {
	Category    string
	TokenBudget int
}

// Classify maps (message, explicit override, conversation length) to a
// category and token budget. contextLen is the number of prior turns; it is
// accepted for symmetry with the request contract but does not currently
// alter the outcome.
func Classify(message, explicitType string, contextLen int) Result {
	switch explicitType {
	case CategoryChat, CategoryGenerate, CategoryModify:
		return withBudget(explicitType)
	}

	if strings.Contains(message, ItineraryContextMarker) {
		return withBudget(CategoryModify)
	}

	if !containsTravelKeyword(message) && len([]rune(strings.TrimSpace(message))) < chatMaxRunes {
		return withBudget(CategoryChat)
	}

	return withBudget(CategoryGenerate)
}

func withBudget(category string) Result {
	switch category {
	case CategoryChat:
		return Result{Category: CategoryChat, TokenBudget: BudgetChat}
	case CategoryModify:
		return Result{Category: CategoryModify, TokenBudget: BudgetModify}
	default:
		return Result{Category: CategoryGenerate, TokenBudget: BudgetGenerate}
	}
}

func containsTravelKeyword(message string) bool {
	m := strings.ToLower(message)
	for _, kw := range travelKeywords {
		if strings.Contains(m, kw) {
			return true
		}
	}
	return false
}
