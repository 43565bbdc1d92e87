package analysis

import (
	"regexp"
	"strings"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// titleVenue matches "... at Lambeau Field", "... in Miami" or "@ Wembley".
var titleVenue = regexp.MustCompile(`(?:\b(?:at|in)|@)\s+([A-Z][\w'.&-]*(?:\s+[A-Z][\w'.&-]*)*)`)

// homeVenues maps a lower-cased team name to its home ground. The first team
// of a context is treated as the home side.
var homeVenues = map[string]string{
	"green bay packers":     "Lambeau Field, Green Bay",
	"packers":               "Lambeau Field, Green Bay",
	"kansas city chiefs":    "Arrowhead Stadium, Kansas City",
	"chiefs":                "Arrowhead Stadium, Kansas City",
	"buffalo bills":         "Highmark Stadium, Orchard Park",
	"bills":                 "Highmark Stadium, Orchard Park",
	"chicago bears":         "Soldier Field, Chicago",
	"bears":                 "Soldier Field, Chicago",
	"new england patriots":  "Gillette Stadium, Foxborough",
	"patriots":              "Gillette Stadium, Foxborough",
	"denver broncos":        "Empower Field, Denver",
	"broncos":               "Empower Field, Denver",
	"boston red sox":        "Fenway Park, Boston",
	"chicago cubs":          "Wrigley Field, Chicago",
	"new york yankees":      "Yankee Stadium, New York",
	"los angeles dodgers":   "Dodger Stadium, Los Angeles",
	"manchester united":     "Old Trafford, Manchester",
	"liverpool":             "Anfield, Liverpool",
	"arsenal":               "Emirates Stadium, London",
	"real madrid":           "Santiago Bernabeu, Madrid",
	"barcelona":             "Camp Nou, Barcelona",
	"golden state warriors": "Chase Center, San Francisco",
	"los angeles lakers":    "Crypto.com Arena, Los Angeles",
	"boston celtics":        "TD Garden, Boston",
}

// ResolveVenue derives where an event takes place: the explicit location or
// venue, then a venue named in the title, then the home ground of the first
// known team. ok is false when nothing can be derived.
func ResolveVenue(c domain.Context) (string, bool) {
	if p := strings.TrimSpace(c.Place()); p != "" {
		return p, true
	}
	if v := VenueFromTitle(c.Title); v != "" {
		return v, true
	}
	for _, team := range c.Teams {
		if v, ok := homeVenues[strings.ToLower(strings.TrimSpace(team))]; ok {
			return v, true
		}
	}
	return "", false
}

// notPlaces are capitalised words that follow "in" or "at" in titles without
// naming a place: dates and competition stages.
var notPlaces = map[string]bool{
	"january": true, "february": true, "march": true, "april": true,
	"may": true, "june": true, "july": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true, "jul": true,
	"aug": true, "sep": true, "sept": true, "oct": true, "nov": true, "dec": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
	"week": true, "round": true, "game": true, "match": true, "matchday": true,
	"gameweek": true, "season": true, "q": true, "overtime": true, "halftime": true,
}

// VenueFromTitle extracts a capitalised place name following "at", "in" or
// "@" in a market title. Candidates that start with a month, weekday or
// stage word are skipped.
func VenueFromTitle(title string) string {
	for _, m := range titleVenue.FindAllStringSubmatch(title, -1) {
		v := strings.TrimRight(m[1], ".?!")
		first, _, _ := strings.Cut(v, " ")
		if notPlaces[strings.ToLower(strings.TrimRight(first, ".,"))] {
			continue
		}
		return v
	}
	return ""
}
