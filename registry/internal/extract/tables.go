// CLAUDE:SUMMARY Static agency-to-sectors and role-to-priority lookup tables.
package extract

import "strings"

// agencySectors maps an agency to its CISA critical-infrastructure sectors.
// Unknown agencies default to Government Facilities.
var agencySectors = map[string][]string{
	"CISA":  {"Government Facilities", "Communications", "Information Technology"},
	"FBI":   {"Government Facilities", "Emergency Services"},
	"FEMA":  {"Emergency Services", "Government Facilities"},
	"EPA":   {"Water and Wastewater Systems", "Chemical"},
	"DOE":   {"Energy", "Nuclear Reactors, Materials, and Waste"},
	"TSA":   {"Transportation Systems"},
	"USCG":  {"Transportation Systems"},
	"HHS":   {"Healthcare and Public Health"},
	"USDA":  {"Food and Agriculture"},
	"USACE": {"Dams", "Water and Wastewater Systems"},
	"NRC":   {"Nuclear Reactors, Materials, and Waste"},
}

var defaultSectors = []string{"Government Facilities"}

func sectorsForAgency(agency string) []string {
	if s, ok := agencySectors[strings.ToUpper(strings.TrimSpace(agency))]; ok {
		out := make([]string, len(s))
		copy(out, s)
		return out
	}
	out := make([]string, len(defaultSectors))
	copy(out, defaultSectors)
	return out
}

// rolePriority maps role classification to default priority
// (lower = more important). Unknown roles default to 5.
var rolePriority = map[string]int{
	"regional": 2,
	"field":    3,
	"sector":   3,
	"resident": 4,
	"lab":      4,
}

func priorityForRole(role string) int {
	if p, ok := rolePriority[strings.ToLower(strings.TrimSpace(role))]; ok {
		return p
	}
	return 5
}

// inferRole classifies an office by keywords in its name.
func inferRole(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "region"):
		return "regional"
	case strings.Contains(n, "field"):
		return "field"
	case strings.Contains(n, "resident"):
		return "resident"
	case strings.Contains(n, "sector"):
		return "sector"
	case strings.Contains(n, "lab"):
		return "lab"
	default:
		return "field"
	}
}
