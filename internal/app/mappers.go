package app

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"travel_booking/internal/domain"
)

/********** alias registries (single source of truth) **********/

var productAliases = map[string][]string{
	"id":          {"id", "product_id", "cruise_id", "hotel_id"},
	"kind":        {"kind", "type", "product_type"},
	"name":        {"name", "title", "hotel_name", "cruise_name"},
	"description": {"description", "summary", "details"},
	"location":    {"location", "address.city", "city", "from", "departure_port"},
	"currency":    {"currency", "currency_code"},
	"image":       {"image", "image_url", "photo"},
}

// legacy feeds price in major units under product-specific keys
var legacyPriceKeys = []string{"pricePerNight", "price_per_night", "pricePerPerson", "price_per_person"}

var legacyAttrs = map[string][]string{
	"cruise_line": {"cruiseLine", "cruise_line"},
	"ship_type":   {"shipType", "ship_type"},
	"hotel_chain": {"hotelChain", "hotel_chain", "chain"},
	"hotel_type":  {"hotelType", "hotel_type"},
}

// Price tables for feeds that only list option labels. Keyed by slug so a
// relabelled option keeps its price as long as its slug is stable.
var roomFactors = map[string]float64{
	"interior":           1.0,
	"ocean-view":         1.3,
	"balcony":            1.6,
	"suite":              2.2,
	"penthouse":          3.0,
	"standard-room":      1.0,
	"deluxe-room":        1.3,
	"premium-room":       1.4,
	"executive-room":     1.5,
	"club-room":          1.6,
	"regency-suite":      1.7,
	"executive-suite":    1.8,
	"luxury-suite":       2.0,
	"royal-suite":        2.2,
	"presidential-suite": 2.5,
	"palace-room":        2.8,
	"grand-royal-suite":  3.0,
}

var mealSurcharges = map[string]int64{ // major units
	"room-only":          0,
	"breakfast-included": 1500,
	"basic-plus":         1500,
	"half-board":         3000,
	"premium-plus":       3000,
	"full-board":         4500,
	"all-inclusive":      5000,
}

const minorPerMajor = 100

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstAlias: first non-empty string for a named alias set.
func firstAlias(m map[string]any, key string) string {
	for _, p := range productAliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstSliceStrings: accept []any with either strings or {name/label}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		if raw, ok := lookupAny(m, k).([]any); ok {
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if t != "" {
						out = append(out, t)
					}
				case map[string]any:
					if n, ok := t["name"].(string); ok && n != "" {
						out = append(out, n)
						continue
					}
					if n, ok := t["label"].(string); ok && n != "" {
						out = append(out, n)
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// slug turns a display label into a stable identifier: "Ocean View" -> "ocean-view".
func slug(s string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// decodeInto re-marshals a loosely typed payload fragment into a typed value.
func decodeInto(v any, dst any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

/********** product mapper **********/

// mapProduct converts a feed payload into a Product. It understands the native
// shape (options/slots/capacity objects) and the legacy storefront shape
// (pricePerNight, roomTypes, mealPlans, departureDates).
func mapProduct(p map[string]any) (domain.Product, error) {
	out := domain.Product{
		ID:          firstAlias(p, "id"),
		Name:        firstAlias(p, "name"),
		Description: firstAlias(p, "description"),
		Location:    firstAlias(p, "location"),
		Currency:    strings.ToUpper(firstAlias(p, "currency")),
		Image:       firstAlias(p, "image"),
		Amenities:   firstSliceStrings(p, "amenities", "facilities"),
		Attributes:  map[string][]string{},
	}
	if out.ID == "" {
		// numeric ids come through as float64
		if f := getFloatFlexible(p, productAliases["id"]...); f != nil {
			out.ID = strconv.FormatInt(int64(*f), 10)
		}
	}
	if out.Currency == "" {
		out.Currency = "INR"
	}
	if f := getFloatFlexible(p, "rating", "starRating", "star_rating", "stars"); f != nil {
		out.Rating = *f
	}

	out.Kind = domain.Kind(strings.ToLower(firstAlias(p, "kind")))
	if out.Kind != domain.KindCruise && out.Kind != domain.KindHotel {
		if lookupAny(p, "departureDates") != nil || lookupAny(p, "pricePerPerson") != nil {
			out.Kind = domain.KindCruise
		} else {
			out.Kind = domain.KindHotel
		}
	}

	if f := getFloatFlexible(p, "base_unit_price"); f != nil {
		out.BaseUnitPrice = int64(math.Round(*f))
	} else if f := getFloatFlexible(p, legacyPriceKeys...); f != nil {
		out.BaseUnitPrice = int64(math.Round(*f * minorPerMajor))
	}

	if err := mapSchedule(p, &out); err != nil {
		return domain.Product{}, err
	}
	mapCapacity(p, &out)
	if err := mapOptions(p, &out); err != nil {
		return domain.Product{}, err
	}
	mapAttributes(p, &out)

	return out, nil
}

func mapSchedule(p map[string]any, out *domain.Product) error {
	if n := getFloatFlexible(p, "fixed_nights", "duration", "nights"); n != nil {
		out.FixedNights = int(*n)
	}
	if raw := lookupAny(p, "slots"); raw != nil {
		if err := decodeInto(raw, &out.Slots); err != nil {
			return fmt.Errorf("product %s: slots: %w", out.ID, err)
		}
	} else {
		for _, d := range firstSliceStrings(p, "departureDates", "departure_dates") {
			t, err := time.Parse("2006-01-02", d)
			if err != nil {
				log.Warn().Str("product", out.ID).Str("date", d).Msg("skipping unparseable departure date")
				continue
			}
			out.Slots = append(out.Slots, domain.Slot{ID: d, Date: t})
		}
	}

	switch s := domain.ScheduleModel(lookupStr(p, "schedule")); {
	case s != "":
		out.Schedule = s
	case out.Kind == domain.KindCruise:
		out.Schedule = domain.ScheduleSlot
	default:
		out.Schedule = domain.ScheduleRange
	}
	return nil
}

func mapCapacity(p map[string]any, out *domain.Product) {
	// storefront guest selector offered 1..6
	out.Capacity = domain.Capacity{Min: 1, Max: 6}
	if f := getFloatFlexible(p, "capacity.min", "min_party", "minGuests"); f != nil {
		out.Capacity.Min = int(*f)
	}
	if f := getFloatFlexible(p, "capacity.max", "max_party", "maxGuests"); f != nil {
		out.Capacity.Max = int(*f)
	}
	if f := getFloatFlexible(p, "default_party_size"); f != nil {
		out.DefaultPartySize = int(*f)
	}
}

func mapOptions(p map[string]any, out *domain.Product) error {
	if raw := lookupAny(p, "options"); raw != nil {
		if err := decodeInto(raw, &out.Options); err != nil {
			return fmt.Errorf("product %s: options: %w", out.ID, err)
		}
		return nil
	}

	if rooms := firstSliceStrings(p, "roomTypes", "availableRoomTypes", "room_types"); len(rooms) > 0 {
		label := "Room Type"
		if out.Kind == domain.KindCruise {
			label = "Cabin Type"
		}
		c := domain.OptionCategory{ID: "room", Label: label, Mode: domain.Multiplicative}
		for _, l := range rooms {
			f, ok := roomFactors[slug(l)]
			if !ok {
				log.Warn().Str("product", out.ID).Str("room", l).Msg("no factor for room type, using 1.0")
				f = 1.0
			}
			c.Choices = append(c.Choices, domain.Choice{ID: slug(l), Label: l, Factor: f})
		}
		out.Options = append(out.Options, c)
	}

	if meals := firstSliceStrings(p, "mealPlans", "meal_plans"); len(meals) > 0 {
		c := domain.OptionCategory{
			ID:    "meal-plan",
			Label: "Meal Plan",
			Mode:  domain.Additive,
			// hotel meal plans are charged per night
			PerDurationUnit: out.Schedule == domain.ScheduleRange,
		}
		for _, l := range meals {
			s, ok := mealSurcharges[slug(l)]
			if !ok {
				log.Warn().Str("product", out.ID).Str("meal_plan", l).Msg("no surcharge for meal plan, using 0")
			}
			c.Choices = append(c.Choices, domain.Choice{ID: slug(l), Label: l, Surcharge: s * minorPerMajor})
		}
		out.Options = append(out.Options, c)
	}
	return nil
}

func mapAttributes(p map[string]any, out *domain.Product) {
	if raw, ok := lookupAny(p, "attributes").(map[string]any); ok {
		for k, v := range raw {
			switch t := v.(type) {
			case string:
				out.Attributes[k] = []string{t}
			case []any:
				out.Attributes[k] = firstSliceStrings(map[string]any{"v": t}, "v")
			}
		}
	}
	for attr, keys := range legacyAttrs {
		for _, k := range keys {
			if s := strings.TrimSpace(lookupStr(p, k)); s != "" {
				out.Attributes[attr] = []string{s}
				break
			}
		}
	}
	// a cruise is findable by either end of the voyage
	var ports []string
	for _, k := range []string{"from", "to"} {
		if s := strings.TrimSpace(lookupStr(p, k)); s != "" {
			ports = append(ports, s)
		}
	}
	if len(ports) > 0 {
		out.Attributes["destination"] = ports
	}
	if len(out.Attributes) == 0 {
		out.Attributes = nil
	}
}
