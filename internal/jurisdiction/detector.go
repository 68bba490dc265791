// Package jurisdiction classifies a query into the regulatory region it
// concerns, so retrieval can be scoped to sources from that region.
package jurisdiction

import "strings"

// Rule names a jurisdiction and the query keywords that select it.
type Rule struct {
	Name     string
	Keywords []string
}

// DefaultRules is checked in order. Suburban and out-of-state regions come
// before the city default: a question naming Yonkers must not be classified
// as NYC just because it also mentions a borough agency.
var DefaultRules = []Rule{
	{
		Name: "Westchester",
		Keywords: []string{
			"westchester", "yonkers", "new rochelle", "white plains", "mount vernon",
		},
	},
	{
		Name: "Long Island",
		Keywords: []string{
			"long island", "nassau", "suffolk", "hempstead", "islip",
		},
	},
	{
		Name: "New Jersey",
		Keywords: []string{
			"new jersey", "jersey city", "hoboken", "newark",
		},
	},
	{
		Name: "NYC",
		Keywords: []string{
			"nyc", "new york city", "manhattan", "brooklyn", "queens",
			"bronx", "staten island", "borough",
		},
	},
}

// Detector matches queries against an ordered rule table.
type Detector struct {
	rules []Rule
}

// New creates a Detector. Nil or empty rules fall back to DefaultRules.
func New(rules []Rule) *Detector {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Detector{rules: rules}
}

// Detect returns the first jurisdiction with a case-insensitive keyword
// match in the query. ok is false when nothing matches, which callers
// treat as "search unscoped".
func (d *Detector) Detect(query string) (name string, ok bool) {
	q := strings.ToLower(query)
	for _, r := range d.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(q, kw) {
				return r.Name, true
			}
		}
	}
	return "", false
}

var defaultDetector = New(nil)

// Detect matches against DefaultRules.
func Detect(query string) (name string, ok bool) {
	return defaultDetector.Detect(query)
}
