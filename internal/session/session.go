// Package session carries the persisted state surrounding a wizard run
// (current user, saved parcels) as an explicit injected context object
// rather than ambient globals, so the pipeline can be tested with fixture
// users.
package session

import "strings"

// Parcel is a saved field the user can prefill step 1 from.
type Parcel struct {
	Name             string  `json:"name"`
	Location         string  `json:"location"`
	AreaSquareMeters float64 `json:"areaSquareMeters"`
}

// Context identifies the caller and their saved parcels for one wizard.
type Context struct {
	UserID  string   `json:"userId"`
	Parcels []Parcel `json:"parcels,omitempty"`
}

// Parcel returns the saved parcel with the given name.
func (c *Context) Parcel(name string) (Parcel, bool) {
	if c == nil {
		return Parcel{}, false
	}
	for _, p := range c.Parcels {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Parcel{}, false
}
