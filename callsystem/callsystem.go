// Package callsystem classifies each floor as Traditional or one of the
// DCS variants and answers capability queries (does this floor have
// direction buttons? a destination panel? do cars have car buttons at
// all?) that the rest of the core consults before registering a call.
package callsystem

// Type names a call-system regime.
type Type int

const (
	// Traditional is the classic up/down hall button + car button regime.
	Traditional Type = iota
	// FullDCS means every floor uses a destination-entry panel; there are
	// no hall direction buttons anywhere, and no car buttons (the door
	// auto-registers the car call from the passenger's declared
	// destination).
	FullDCS
	// LobbyDCS means only the configured lobby floor uses a destination
	// panel; every other floor is Traditional. This models buildings where
	// only the main entrance gets destination dispatch.
	LobbyDCS
	// ZonedDCS is FullDCS further restricted by a per-floor service-floor
	// allow-list: a DCS floor may only dispatch to floors in its zone.
	ZonedDCS
)

func (t Type) String() string {
	switch t {
	case Traditional:
		return "TRADITIONAL"
	case FullDCS:
		return "FULL_DCS"
	case LobbyDCS:
		return "LOBBY_DCS"
	case ZonedDCS:
		return "ZONED_DCS"
	default:
		return "UNKNOWN"
	}
}

// CallSystem answers, for a given control floor, whether it is governed by
// DCS and what capabilities its landing hardware exposes.
type CallSystem struct {
	typ        Type
	lobbyFloor int
	dcsFloors  map[int]bool
	zones      map[int][]int // dcs floor -> allowed destination floors, ZonedDCS only
}

// New constructs a CallSystem. zones is only consulted for ZonedDCS;
// LobbyDCS treats lobbyFloor as its one DCS floor. dcsFloors is stored but
// no method reads it. Pass nil for both under Traditional/FullDCS.
func New(typ Type, lobbyFloor int, dcsFloors []int, zones map[int][]int) *CallSystem {
	set := make(map[int]bool, len(dcsFloors))
	for _, f := range dcsFloors {
		set[f] = true
	}
	return &CallSystem{typ: typ, lobbyFloor: lobbyFloor, dcsFloors: set, zones: zones}
}

// Type returns the configured call-system regime.
func (c *CallSystem) Type() Type { return c.typ }

// IsDCSFloor reports whether floor uses a destination-entry panel instead
// of up/down hall buttons.
func (c *CallSystem) IsDCSFloor(floor int) bool {
	switch c.typ {
	case FullDCS, ZonedDCS:
		return true
	case LobbyDCS:
		return floor == c.lobbyFloor
	default:
		return false
	}
}

// HasDirectionButtons reports whether floor exposes up/down hall buttons.
// DCS floors have neither. The ground-floor-UP-only / top-floor-DOWN-only
// rule is not checked here; hallbutton.Panel.Allowed enforces it.
func (c *CallSystem) HasDirectionButtons(floor int) bool {
	return !c.IsDCSFloor(floor)
}

// HasDestinationPanel reports whether floor exposes a destination-entry
// panel.
func (c *CallSystem) HasDestinationPanel(floor int) bool {
	return c.IsDCSFloor(floor)
}

// HasCarButtons reports whether cars in this installation have an
// in-car destination panel at all. Pure DCS installations (FullDCS,
// ZonedDCS) never do: the door auto-registers the car call instead.
// LobbyDCS and Traditional installations keep car buttons since non-DCS
// floors still need a passenger-declared destination once aboard.
func (c *CallSystem) HasCarButtons() bool {
	return c.typ == Traditional || c.typ == LobbyDCS
}

// AllowedDestinations returns the destination floors permitted from a
// ZonedDCS origin floor. For every other regime it returns nil, meaning
// "unrestricted".
func (c *CallSystem) AllowedDestinations(originFloor int) []int {
	if c.typ != ZonedDCS {
		return nil
	}
	return c.zones[originFloor]
}

// ValidateDestination reports whether destination is reachable from
// originFloor under the configured zoning, if any.
func (c *CallSystem) ValidateDestination(originFloor, destination int) bool {
	allowed := c.AllowedDestinations(originFloor)
	if allowed == nil {
		return true
	}
	for _, f := range allowed {
		if f == destination {
			return true
		}
	}
	return false
}
