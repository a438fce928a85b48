package store

import (
	"context"
	"database/sql"
	"main/internal/errors"
	"main/internal/schema"
	"main/pkg/conn"
	"main/pkg/exception"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	wireTimeLayout  = "2006-01-02T15:04:05Z"
	storeTimeLayout = "2006-01-02 15:04:05"
)

// Store applies accepted feed messages to the trading database. Each message
// runs in its own transaction. Workers commit concurrently, so two updates
// for the same row may land out of arrival order: the stored value is the
// latest applied write, not necessarily the one with the latest timestamp.
type Store struct {
	client *conn.Client
}

// New wraps a trading store connection.
func New(client *conn.Client) *Store {
	return &Store{client: client}
}

// NormalizeTimestamp converts the wire timestamp (yyyy-mm-ddThh:mm:ssZ) to
// the store layout (yyyy-mm-dd hh:mm:ss).
func NormalizeTimestamp(ts string) (string, error) {
	parsed, err := time.Parse(wireTimeLayout, ts)
	if err != nil {
		return "", errors.Wrapf(exception.ErrTimestamp, "%q", ts)
	}
	return parsed.Format(storeTimeLayout), nil
}

// NormalizeCommodityName strips whitespace so wire names match store names
// that omit spaces.
func NormalizeCommodityName(name string) string {
	return strings.Join(strings.Fields(name), "")
}

// ApplyCommodity writes one station market update. Commodities without a
// matching item are skipped without failing their siblings; everything else
// commits atomically or not at all. The timestamp is validated before any
// write.
func (s *Store) ApplyCommodity(ctx context.Context, upd *schema.CommodityUpdate) error {
	if s == nil || s.client == nil || upd == nil {
		return errors.Wrap(exception.ErrPersistence, "nil store or update")
	}

	modified, err := NormalizeTimestamp(upd.Timestamp)
	if err != nil {
		return err
	}

	err = s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range upd.Commodities {
			c := &upd.Commodities[i]

			itemID, ok, err := lookupItemID(tx, c.Name)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}

			if err := tx.Exec(`
				UPDATE StationItem SET demand_price = ?, demand_units = ?, demand_level = 0,
				                       supply_price = ?, supply_units = ?, supply_level = 0,
				                       modified = ?, from_live = 1
				WHERE station_id = ? AND item_id = ?
			`, c.SellPrice, c.Demand, c.BuyPrice, c.Stock, modified, upd.MarketID, itemID).Error; err != nil {
				return err
			}

			if err := tx.Exec(`UPDATE Item SET avg_price = ? WHERE item_id = ?`,
				c.MeanPrice, itemID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(exception.ErrPersistence, "apply commodity update: %v", err)
	}
	return nil
}

// ApplySystemEvent writes the controlling power for a system. The name match
// is case-insensitive and tolerant of zero or multiple rows; the store owns
// name uniqueness, not this adapter.
func (s *Store) ApplySystemEvent(ctx context.Context, ev *schema.SystemEvent) error {
	if s == nil || s.client == nil || ev == nil {
		return errors.Wrap(exception.ErrPersistence, "nil store or event")
	}

	modified, err := NormalizeTimestamp(ev.Timestamp)
	if err != nil {
		return err
	}

	err = s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Exec(`UPDATE System SET power = ?, modified = ? WHERE name LIKE ?`,
			ev.ControllingPower, modified, ev.StarSystem).Error
	})
	if err != nil {
		return errors.Wrapf(exception.ErrPersistence, "apply system event: %v", err)
	}
	return nil
}

// lookupItemID resolves a wire commodity name against the Item table. The
// stored name has its spaces stripped before the LIKE match, which is
// case-insensitive in SQLite.
func lookupItemID(tx *gorm.DB, wireName string) (int64, bool, error) {
	var itemID int64
	err := tx.Raw(`SELECT item_id FROM Item WHERE REPLACE(name, ' ', '') LIKE ?`,
		NormalizeCommodityName(wireName)).Row().Scan(&itemID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return itemID, true, nil
}
