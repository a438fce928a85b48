package schema

// MessageKind selects the envelope variant carried by a feed payload.
type MessageKind uint8

const (
	KindUnknown MessageKind = iota
	KindCommodity
	KindSystemEvent
)

func (k MessageKind) String() string {
	switch k {
	case KindCommodity:
		return "commodity"
	case KindSystemEvent:
		return "system-event"
	default:
		return "unknown"
	}
}

// Header carries uploader provenance. It is reported, never persisted.
type Header struct {
	UploaderID       string `json:"uploaderID"`
	SoftwareName     string `json:"softwareName"`
	SoftwareVersion  string `json:"softwareVersion"`
	GameVersion      string `json:"gameVersion,omitempty"`
	GameBuild        string `json:"gameBuild,omitempty"`
	GatewayTimestamp string `json:"gatewayTimestamp,omitempty"`
}

// Commodity is one market entry inside a station update. Prices are integer
// credits on the wire.
type Commodity struct {
	Name        string   `json:"name"`
	MeanPrice   int64    `json:"meanPrice"`
	BuyPrice    int64    `json:"buyPrice"`
	Stock       int64    `json:"stock"`
	SellPrice   int64    `json:"sellPrice"`
	Demand      int64    `json:"demand"`
	StatusFlags []string `json:"statusFlags,omitempty"`
}

// Economy is a station economy share.
type Economy struct {
	Name       string  `json:"name"`
	Proportion float64 `json:"proportion"`
}

// CommodityUpdate is the full market snapshot for one station.
type CommodityUpdate struct {
	SystemName           string      `json:"systemName"`
	StationName          string      `json:"stationName"`
	MarketID             int64       `json:"marketId"`
	Timestamp            string      `json:"timestamp"`
	Commodities          []Commodity `json:"commodities"`
	StationType          string      `json:"stationType,omitempty"`
	CarrierDockingAccess string      `json:"carrierDockingAccess,omitempty"`
	Horizons             *bool       `json:"horizons,omitempty"`
	Odyssey              *bool       `json:"odyssey,omitempty"`
	Economies            []Economy   `json:"economies,omitempty"`
	Prohibited           []string    `json:"prohibited,omitempty"`
}

// SystemEvent is a journal FSDJump record. Field casing follows the journal
// schema, not the commodity one.
type SystemEvent struct {
	StarSystem       string    `json:"StarSystem"`
	Event            string    `json:"event,omitempty"`
	Timestamp        string    `json:"timestamp,omitempty"`
	StarPos          []float64 `json:"StarPos,omitempty"`
	SystemAddress    int64     `json:"SystemAddress,omitempty"`
	SystemAllegiance string    `json:"SystemAllegiance,omitempty"`
	SystemSecurity   string    `json:"SystemSecurity,omitempty"`
	Population       int64     `json:"Population,omitempty"`
	Powers           []string  `json:"Powers,omitempty"`
	ControllingPower string    `json:"ControllingPower,omitempty"`
	PowerplayState   string    `json:"PowerplayState,omitempty"`
}

// Envelope is the parsed wrapper around one feed message. Exactly one of
// Commodity or System is set, selected by Kind.
type Envelope struct {
	SchemaRef string
	Header    Header
	Kind      MessageKind
	Commodity *CommodityUpdate
	System    *SystemEvent
}
