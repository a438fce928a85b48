package ingest

import (
	"bytes"
	"context"
	"fmt"
	"main/internal/bus"
	"main/internal/obs"
	"main/internal/store"
	"main/pkg/conn"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*store.Store, *conn.Client) {
	t.Helper()

	client, err := conn.New(conn.Option{Path: filepath.Join(t.TempDir(), "trade.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	stmts := []string{
		`CREATE TABLE Item (item_id INTEGER PRIMARY KEY, name TEXT NOT NULL, avg_price INTEGER)`,
		`CREATE TABLE StationItem (
			station_id INTEGER NOT NULL, item_id INTEGER NOT NULL,
			demand_price INTEGER, demand_units INTEGER, demand_level INTEGER,
			supply_price INTEGER, supply_units INTEGER, supply_level INTEGER,
			modified TEXT, from_live INTEGER,
			PRIMARY KEY (station_id, item_id)
		)`,
		`CREATE TABLE System (system_id INTEGER PRIMARY KEY, name TEXT NOT NULL, power TEXT, modified TEXT)`,
		`INSERT INTO Item (item_id, name, avg_price) VALUES (1, 'Tritium', 0)`,
		`INSERT INTO StationItem VALUES (128666762, 1, 9, 9, 2, 9, 9, 3, '2020-01-01 00:00:00', 0)`,
		`INSERT INTO System (system_id, name, power, modified) VALUES (1, 'Nanomam', NULL, '2020-01-01 00:00:00')`,
	}
	for _, stmt := range stmts {
		require.NoError(t, client.DB().Exec(stmt).Error)
	}

	return store.New(client), client
}

func deflate(t *testing.T, payload string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func commodityPayload(station string, sellPrice int64) string {
	return fmt.Sprintf(`{
		"$schemaRef": "https://eddn.edcd.io/schemas/commodity/3",
		"header": {"uploaderID": "x", "softwareName": "EDMC", "softwareVersion": "5.11.0"},
		"message": {
			"systemName": "Shinrarta Dezhra",
			"stationName": %q,
			"marketId": 128666762,
			"timestamp": "2024-01-01T12:00:00Z",
			"commodities": [
				{"name": "Tritium", "meanPrice": 51000, "buyPrice": 1200, "stock": 50, "sellPrice": %d, "demand": 200}
			]
		}
	}`, station, sellPrice)
}

const systemPayload = `{
	"$schemaRef": "https://eddn.edcd.io/schemas/journal/1",
	"header": {"uploaderID": "x", "softwareName": "EDMC", "softwareVersion": "5.11.0"},
	"message": {
		"event": "FSDJump",
		"StarSystem": "Nanomam",
		"timestamp": "2024-01-01T12:00:00Z",
		"Population": 1000000,
		"ControllingPower": "Zemina Torval",
		"PowerplayState": "Exploited"
	}
}`

func runPool(t *testing.T, st *store.Store, metrics *obs.Metrics, workers int, frames [][]byte) {
	t.Helper()

	queue := bus.NewQueue(len(frames) + workers)
	ctx := context.Background()
	for _, frame := range frames {
		require.NoError(t, queue.Publish(ctx, bus.Frame{Data: frame}))
	}
	for range workers {
		require.NoError(t, queue.Publish(ctx, bus.Sentinel()))
	}

	pool := NewPool(workers, 10*time.Millisecond, queue, st, metrics)
	pool.Run(ctx)

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("pool did not drain")
	}
}

func TestPoolPipeline(t *testing.T) {
	st, client := newTestStore(t)
	metrics := obs.NewMetrics()

	frames := [][]byte{
		deflate(t, commodityPayload("Jameson Memorial", 1500)),
		deflate(t, systemPayload),
		deflate(t, commodityPayload("J1X-7QP", 9999)),            // carrier, filtered
		deflate(t, `{"$schemaRef":"shipyard","message":{}}`),     // unsupported, dropped quietly
		{0xde, 0xad, 0xbe, 0xef},                                 // corrupt frame
	}
	runPool(t, st, metrics, 4, frames)

	var demandPrice int64
	require.NoError(t, client.DB().
		Raw(`SELECT demand_price FROM StationItem WHERE station_id = 128666762 AND item_id = 1`).
		Row().Scan(&demandPrice))
	assert.Equal(t, int64(1500), demandPrice)

	var power string
	require.NoError(t, client.DB().
		Raw(`SELECT power FROM System WHERE name = 'Nanomam'`).Row().Scan(&power))
	assert.Equal(t, "Zemina Torval", power)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(2), snap.Persisted)
	assert.Equal(t, uint64(1), snap.Filtered)
	assert.Equal(t, uint64(1), snap.Unsupported)
	assert.Equal(t, uint64(1), snap.DecodeErrors)
}

func TestPoolWorkerSurvivesMessageErrors(t *testing.T) {
	st, _ := newTestStore(t)
	metrics := obs.NewMetrics()

	// A single worker hits every failure mode before the good frame; it must
	// still be alive to persist it.
	frames := [][]byte{
		{0x00},
		deflate(t, `{"$schemaRef":"https://eddn.edcd.io/schemas/commodity/3","header":{},"message":{"systemName":"Sol"}}`),
		deflate(t, commodityPayload("Jameson Memorial", 1500)),
	}
	runPool(t, st, metrics, 1, frames)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.Persisted)
	assert.Equal(t, uint64(1), snap.DecodeErrors)
	assert.Equal(t, uint64(1), snap.ParseErrors)
}

func TestPoolMalformedTimestampLeavesSiblingsAlone(t *testing.T) {
	st, client := newTestStore(t)
	metrics := obs.NewMetrics()

	bad := `{
		"$schemaRef": "https://eddn.edcd.io/schemas/commodity/3",
		"header": {"uploaderID": "x", "softwareName": "EDMC", "softwareVersion": "5"},
		"message": {
			"systemName": "Sol", "stationName": "Daedalus", "marketId": 128666762,
			"timestamp": "2024-01-01 12:00:00",
			"commodities": [{"name": "Tritium", "meanPrice": 1, "buyPrice": 1, "stock": 1, "sellPrice": 1, "demand": 1}]
		}
	}`
	frames := [][]byte{
		deflate(t, bad),
		deflate(t, commodityPayload("Jameson Memorial", 1700)),
	}
	runPool(t, st, metrics, 2, frames)

	var demandPrice int64
	require.NoError(t, client.DB().
		Raw(`SELECT demand_price FROM StationItem WHERE station_id = 128666762 AND item_id = 1`).
		Row().Scan(&demandPrice))
	assert.Equal(t, int64(1700), demandPrice)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.TimestampErrors)
	assert.Equal(t, uint64(1), snap.Persisted)
}

func TestPoolDrainsEverythingBeforeStopping(t *testing.T) {
	st, _ := newTestStore(t)
	metrics := obs.NewMetrics()

	frames := make([][]byte, 0, 20)
	for i := range 20 {
		frames = append(frames, deflate(t, commodityPayload("Jameson Memorial", int64(1000+i))))
	}
	runPool(t, st, metrics, 4, frames)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(20), snap.Persisted)
	assert.Equal(t, uint64(0), snap.Errors())
}
