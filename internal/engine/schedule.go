package engine

import "fmt"

// SlotChoice is a time slot before a venue has been attached
type SlotChoice struct {
	Label     string
	Activity  string
	Category  PlaceCategory
	Rationale string
}

// Slot labels in the order they appear in a day
const (
	SlotMorning   = "Morning"
	SlotLunch     = "Lunch"
	SlotAfternoon = "Afternoon"
	SlotEvening   = "Evening"
)

// ScheduleDay picks a category for every slot of the day from the weather.
// aqi is the air quality index for the itinerary, 0 when unknown.
func ScheduleDay(s DailySummary, tags Suitability, aqi int) []SlotChoice {
	return []SlotChoice{
		morningSlot(s, tags, aqi),
		lunchSlot(s),
		afternoonSlot(s, tags),
		eveningSlot(),
	}
}

func morningSlot(s DailySummary, tags Suitability, aqi int) SlotChoice {
	slot := SlotChoice{Label: SlotMorning}

	switch {
	case tags.Rainy:
		slot.Category = CategoryMuseum
		slot.Activity = "Explore a museum"
		slot.Rationale = fmt.Sprintf("Rain is expected (%.1f mm), so start the day indoors with some culture.", s.TotalRainMM)
	case tags.Cold:
		slot.Category = CategoryMuseum
		slot.Activity = "Explore a museum"
		slot.Rationale = fmt.Sprintf("It will be cold (%.1f°C average), so start the day somewhere warm.", s.AvgTempC)
	case aqi >= PoorAirAQI:
		slot.Category = CategoryMuseum
		slot.Activity = "Explore a museum"
		slot.Rationale = "Air quality is poor, so keep the morning indoors."
	default:
		slot.Category = CategoryPark
		slot.Activity = "Morning walk in the park"
		slot.Rationale = fmt.Sprintf("Dry with %s, a good morning to be outside.", s.Condition)
	}

	return slot
}

func lunchSlot(s DailySummary) SlotChoice {
	return SlotChoice{
		Label:     SlotLunch,
		Activity:  "Lunch at a local restaurant",
		Category:  CategoryRestaurant,
		Rationale: fmt.Sprintf("A sit-down lunch works whatever the weather (%s).", s.Condition),
	}
}

func afternoonSlot(s DailySummary, tags Suitability) SlotChoice {
	slot := SlotChoice{Label: SlotAfternoon}

	switch {
	case tags.Rainy:
		slot.Category = CategoryShopping
		slot.Activity = "Browse an indoor shopping centre"
		slot.Rationale = "Wet afternoon, so stay under cover."
	case tags.Windy:
		slot.Category = CategoryShopping
		slot.Activity = "Browse an indoor shopping centre"
		slot.Rationale = fmt.Sprintf("Winds around %.0f km/h make indoors more comfortable.", s.AvgWindKmh)
	case tags.Hot:
		slot.Category = CategoryCafe
		slot.Activity = "Cool off at a cafe"
		slot.Rationale = fmt.Sprintf("Temperatures near %.0f°C call for a cold drink in the shade.", s.MaxTempC)
	default:
		slot.Category = CategoryAttraction
		slot.Activity = "Visit a local landmark"
		slot.Rationale = "Mild conditions suit an afternoon of sightseeing."
	}

	return slot
}

func eveningSlot() SlotChoice {
	return SlotChoice{
		Label:     SlotEvening,
		Activity:  "Drinks and nightlife",
		Category:  CategoryNightlife,
		Rationale: "Evenings are planned indoors regardless of the forecast.",
	}
}
