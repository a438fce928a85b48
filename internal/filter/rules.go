package filter

import (
	"main/internal/schema"
	"regexp"
)

// carrierPattern matches fleet-carrier callsigns such as J1X-7QP. Carrier
// markets move with their owner, so their inventories never describe a fixed
// station.
var carrierPattern = regexp.MustCompile(`^[a-zA-Z0-9]{3}-[a-zA-Z0-9]{3}$`)

// IsCarrier reports whether a station name is a fleet-carrier callsign.
func IsCarrier(stationName string) bool {
	return carrierPattern.MatchString(stationName)
}

// AcceptCommodity keeps market updates from fixed stations only.
func AcceptCommodity(m *schema.CommodityUpdate) bool {
	return m != nil && !IsCarrier(m.StationName)
}

// AcceptSystemEvent keeps jump events that matter for powerplay: a populated
// system that either has a controlling power or is explicitly unoccupied.
func AcceptSystemEvent(m *schema.SystemEvent) bool {
	if m == nil || m.Population <= 0 {
		return false
	}

	return m.ControllingPower != "" || m.PowerplayState == "Unoccupied"
}
