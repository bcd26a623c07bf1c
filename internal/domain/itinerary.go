// Itinerary types.
//
// These structures describe the structured travel plan the assistant embeds
// in its replies. They are transient: the response pipeline constructs them
// from recovered model output and hands them to callers; persistence (trip
// storage, pricing jobs) happens in external collaborators.
package domain

import "encoding/json"

// Activity categories accepted inside a day plan.
const (
	CategoryTransport  = "transport"
	CategoryRestaurant = "restaurant"
	CategoryAttraction = "attraction"
	CategoryShopping   = "shopping"
	CategoryActivity   = "activity"
	CategoryRest       = "rest"
)

// ValidActivityCategory reports whether c is one of the known activity
// categories.
func ValidActivityCategory(c string) bool {
	switch c {
	case CategoryTransport, CategoryRestaurant, CategoryAttraction,
		CategoryShopping, CategoryActivity, CategoryRest:
		return true
	}
	return false
}

// Activity is a single scheduled item within a day. Geo coordinates are
// optional and independent of each other.
type Activity struct {
	Time        string   `json:"time,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Cost        string   `json:"cost,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
}

// Day is one day of the plan. Day numbers need not be contiguous but must
// be >= 1; activities keep the order the model produced them in.
type Day struct {
	Day           int        `json:"day"`
	Date          string     `json:"date,omitempty"`
	Theme         string     `json:"theme,omitempty"`
	Activities    []Activity `json:"activities"`
	Accommodation string     `json:"accommodation,omitempty"`
}

// Itinerary is the structured multi-day travel plan recovered from model
// output. Days are ordered by ascending day number.
//
// Partial is set when truncation repair had to cut the model output back to
// its last complete object, meaning a trailing day or activity may have been
// dropped. It is never serialized; re-parsing a serialized itinerary yields
// an equivalent record with Partial unset.
type Itinerary struct {
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	Destination string `json:"destination,omitempty"`
	Period      string `json:"period,omitempty"`
	TotalBudget string `json:"totalBudget,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Days        []Day  `json:"days"`

	Partial bool `json:"-"`
}

// Marshal serializes the itinerary to compact JSON.
func (it *Itinerary) Marshal() ([]byte, error) {
	return json.Marshal(it)
}
