package recommend

// Rule describes how candidates are selected for a service type.
type Rule struct {
	// Keywords match category names case-insensitively. Empty means no category filter.
	Keywords []string
	// Limit caps the number of results.
	Limit int
	// RequiresVehicle yields no results unless a vehicle model is supplied.
	RequiresVehicle bool
}

// DefaultRule applies to service types without an entry in the table.
var DefaultRule = Rule{Limit: 10, RequiresVehicle: true}

// Rules maps service type slugs to their selection rule.
type Rules map[string]Rule

// DefaultRules is the built-in rule table.
func DefaultRules() Rules {
	tires := Rule{Keywords: []string{"Tire", "Tyre"}, Limit: 10}
	batteries := Rule{Keywords: []string{"Battery", "Batteries"}, Limit: 5}

	return Rules{
		"tire-change":         tires,
		"fast-tire-change":    tires,
		"battery-replacement": batteries,
		"battery-jump-start":  batteries,
		"oil-change":          {Keywords: []string{"Oil", "Filter"}, Limit: 8},
		"brake-service":       {Keywords: []string{"Brake"}, Limit: 8},
	}
}

// For returns the rule for slug, falling back to DefaultRule.
func (r Rules) For(slug string) Rule {
	if rule, ok := r[slug]; ok {
		return rule
	}
	return DefaultRule
}
