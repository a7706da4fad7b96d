package guard

import (
	"testing"

	"github.com/julianstephens/habitual/internal/constants"
)

func TestDecide(t *testing.T) {
	streaks := Location{Area: constants.AreaTabs, Tab: constants.TabStreaks}

	tests := []struct {
		name  string
		state State
		want  Redirect
	}{
		{
			name:  "signed out in tabs goes to sign in",
			state: State{HasIdentity: false, Location: streaks},
			want:  Redirect{Needed: true, To: SignInScreen},
		},
		{
			name:  "signed in on auth goes home",
			state: State{HasIdentity: true, Location: SignInScreen},
			want:  Redirect{Needed: true, To: Home},
		},
		{
			name:  "signed out on auth stays",
			state: State{HasIdentity: false, Location: SignInScreen},
			want:  Redirect{},
		},
		{
			name:  "signed in in tabs stays",
			state: State{HasIdentity: true, Location: streaks},
			want:  Redirect{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.state); got != tt.want {
				t.Errorf("Decide(%+v) = %+v, want %+v", tt.state, got, tt.want)
			}
		})
	}
}

func TestDecideWhileLoading(t *testing.T) {
	locations := []Location{
		SignInScreen,
		Home,
		{Area: constants.AreaTabs, Tab: constants.TabAddHabit},
	}
	for _, loc := range locations {
		for _, has := range []bool{true, false} {
			s := State{HasIdentity: has, Location: loc, Loading: true}
			if got := Decide(s); got.Needed {
				t.Errorf("Decide(%+v) redirected to %v while loading", s, got.To)
			}
		}
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve(State{HasIdentity: true, Location: SignInScreen}); got != Home {
		t.Errorf("Resolve() = %v, want %v", got, Home)
	}
	addHabit := Location{Area: constants.AreaTabs, Tab: constants.TabAddHabit}
	if got := Resolve(State{HasIdentity: true, Location: addHabit}); got != addHabit {
		t.Errorf("Resolve() = %v, want %v", got, addHabit)
	}
}

func TestLocationString(t *testing.T) {
	if got := Home.String(); got != "tabs/Today's Habits" {
		t.Errorf("Home.String() = %q", got)
	}
	if got := SignInScreen.String(); got != "auth" {
		t.Errorf("SignInScreen.String() = %q", got)
	}
}
