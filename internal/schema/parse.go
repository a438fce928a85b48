package schema

import (
	"bytes"
	"main/internal/errors"
	"main/pkg/exception"

	"github.com/bytedance/sonic"
)

var (
	markerCommodity = []byte("commodity")
	markerJournal   = []byte("journal")
	markerFSDJump   = []byte("FSDJump")
)

// Classify routes a decoded payload by content sniff. Anything that matches
// no known variant is unsupported, which is informational rather than an
// error: the feed carries many schemas this pipeline does not consume.
func Classify(payload []byte) MessageKind {
	switch {
	case bytes.Contains(payload, markerCommodity):
		return KindCommodity
	case bytes.Contains(payload, markerJournal) && bytes.Contains(payload, markerFSDJump):
		return KindSystemEvent
	default:
		return KindUnknown
	}
}

type commodityEnvelope struct {
	SchemaRef string          `json:"$schemaRef"`
	Header    Header          `json:"header"`
	Message   CommodityUpdate `json:"message"`
}

type systemEventEnvelope struct {
	SchemaRef string      `json:"$schemaRef"`
	Header    Header      `json:"header"`
	Message   SystemEvent `json:"message"`
}

// Parse deserializes a payload into its envelope variant, enforcing required
// fields. Unknown or absent optional fields are ignored. A payload no variant
// claims returns exception.ErrUnsupportedSchema; anything structurally broken
// returns exception.ErrParse.
func Parse(payload []byte) (Envelope, error) {
	switch Classify(payload) {
	case KindCommodity:
		var raw commodityEnvelope
		if err := sonic.ConfigFastest.Unmarshal(payload, &raw); err != nil {
			return Envelope{}, errors.Wrapf(exception.ErrParse, "unmarshal commodity envelope: %v", err)
		}
		if err := validateCommodity(&raw.Message); err != nil {
			return Envelope{}, err
		}
		return Envelope{
			SchemaRef: raw.SchemaRef,
			Header:    raw.Header,
			Kind:      KindCommodity,
			Commodity: &raw.Message,
		}, nil

	case KindSystemEvent:
		var raw systemEventEnvelope
		if err := sonic.ConfigFastest.Unmarshal(payload, &raw); err != nil {
			return Envelope{}, errors.Wrapf(exception.ErrParse, "unmarshal system event envelope: %v", err)
		}
		if err := validateSystemEvent(&raw.Message); err != nil {
			return Envelope{}, err
		}
		return Envelope{
			SchemaRef: raw.SchemaRef,
			Header:    raw.Header,
			Kind:      KindSystemEvent,
			System:    &raw.Message,
		}, nil

	default:
		return Envelope{}, exception.ErrUnsupportedSchema
	}
}

func validateCommodity(m *CommodityUpdate) error {
	switch {
	case m.SystemName == "":
		return errors.Wrap(exception.ErrParse, "missing required field: systemName")
	case m.StationName == "":
		return errors.Wrap(exception.ErrParse, "missing required field: stationName")
	case m.MarketID == 0:
		return errors.Wrap(exception.ErrParse, "missing required field: marketId")
	case m.Timestamp == "":
		return errors.Wrap(exception.ErrParse, "missing required field: timestamp")
	default:
		return nil
	}
}

func validateSystemEvent(m *SystemEvent) error {
	if m.StarSystem == "" {
		return errors.Wrap(exception.ErrParse, "missing required field: StarSystem")
	}
	return nil
}
