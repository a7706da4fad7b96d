// Package guard decides when navigation must be redirected between the
// signed-out and signed-in areas.
package guard

import (
	"fmt"

	"github.com/julianstephens/habitual/internal/constants"
)

// Location is where the user currently is.
type Location struct {
	Area constants.Area
	Tab  constants.Tab
}

func (l Location) String() string {
	if l.Area == constants.AreaTabs {
		return fmt.Sprintf("%s/%s", l.Area, l.Tab)
	}
	return l.Area.String()
}

// Home is where signed-in users land.
var Home = Location{Area: constants.AreaTabs, Tab: constants.TabToday}

// SignInScreen is where signed-out users land.
var SignInScreen = Location{Area: constants.AreaAuth}

// State is the input to Decide.
type State struct {
	HasIdentity bool
	Location    Location
	Loading     bool
}

// Redirect is the outcome of Decide. When Needed is false the user stays put.
type Redirect struct {
	Needed bool
	To     Location
}

// Decide applies the routing table. Nothing moves while the identity is
// still loading.
//
//	no identity, outside auth area -> sign-in screen
//	identity, inside auth area     -> home
//	anything else                  -> stay
func Decide(s State) Redirect {
	if s.Loading {
		return Redirect{}
	}
	inAuth := s.Location.Area == constants.AreaAuth
	switch {
	case !s.HasIdentity && !inAuth:
		return Redirect{Needed: true, To: SignInScreen}
	case s.HasIdentity && inAuth:
		return Redirect{Needed: true, To: Home}
	default:
		return Redirect{}
	}
}

// Resolve returns where the user ends up after applying Decide.
func Resolve(s State) Location {
	if r := Decide(s); r.Needed {
		return r.To
	}
	return s.Location
}
