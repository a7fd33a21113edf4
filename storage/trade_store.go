package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"aidid-house/models"
	"aidid-house/utils"
)

// PostgresTradeStore persists Rakuya real-price trade records. The table is
// scoped to that single source, so ActiveURLs ignores the source argument.
// The vanished lifecycle label for this table is INACTIVE.
type PostgresTradeStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresTradeStore opens the connection and runs the trade-table
// migration.
func NewPostgresTradeStore(dsn string, logger *utils.Logger) (*PostgresTradeStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	ping := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 2 * time.Second, Logger: logger}
	if err := ping.Do("postgres ping", db.Ping); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ts := &PostgresTradeStore{db: db, logger: logger}
	if err := ts.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate trades: %w", err)
	}
	return ts, nil
}

func (ts *PostgresTradeStore) migrate() error {
	_, err := ts.db.Exec(`
		CREATE TABLE IF NOT EXISTS rakuya_trades (
			id               SERIAL PRIMARY KEY,
			url              TEXT    UNIQUE NOT NULL,
			house_id         TEXT    NOT NULL DEFAULT '',
			city_code        INTEGER NOT NULL DEFAULT 0,
			city_name        TEXT    NOT NULL DEFAULT '',
			address          TEXT    NOT NULL DEFAULT '',
			community_name   TEXT    NOT NULL DEFAULT '',
			area_name        TEXT    NOT NULL DEFAULT '',
			zipcode          TEXT    NOT NULL DEFAULT '',
			property_type    TEXT    NOT NULL DEFAULT '',
			total_price      DOUBLE PRECISION NOT NULL DEFAULT 0,
			price_per_ping   DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_area       DOUBLE PRECISION NOT NULL DEFAULT 0,
			building_age     DOUBLE PRECISION NOT NULL DEFAULT 0,
			floor_info       TEXT    NOT NULL DEFAULT '',
			trans_floor      TEXT    NOT NULL DEFAULT '',
			sur_floor        TEXT    NOT NULL DEFAULT '',
			layout           TEXT    NOT NULL DEFAULT '',
			bedrooms         INTEGER NOT NULL DEFAULT 0,
			livingrooms      INTEGER NOT NULL DEFAULT 0,
			bathrooms        INTEGER NOT NULL DEFAULT 0,
			close_date       TEXT    NOT NULL DEFAULT '',
			trade_count      INTEGER NOT NULL DEFAULT 1,
			is_historical    BOOLEAN NOT NULL DEFAULT FALSE,
			history_sequence INTEGER NOT NULL DEFAULT 0,
			history_data     JSONB,
			basic_info       JSONB   NOT NULL DEFAULT '{}',
			original_data    JSONB,
			scraped_at       TIMESTAMPTZ NOT NULL,
			last_seen        DATE    NOT NULL,
			data_status      TEXT    NOT NULL DEFAULT 'ACTIVE'
		);

		CREATE INDEX IF NOT EXISTS idx_trades_status    ON rakuya_trades(data_status);
		CREATE INDEX IF NOT EXISTS idx_trades_city_name ON rakuya_trades(city_name);
		CREATE INDEX IF NOT EXISTS idx_trades_house_id  ON rakuya_trades(house_id);
	`)
	return err
}

// Upsert inserts or fully replaces a trade row keyed by url.
func (ts *PostgresTradeStore) Upsert(ctx context.Context, rec Record) error {
	t, ok := rec.(*models.RakuyaTrade)
	if !ok {
		return fmt.Errorf("postgres: unsupported record type %T", rec)
	}

	basicInfo, err := json.Marshal(orEmptyMap(t.BasicInfo))
	if err != nil {
		return fmt.Errorf("postgres: marshal basic_info for %s: %w", t.URL, err)
	}

	_, err = ts.db.ExecContext(ctx, `
		INSERT INTO rakuya_trades (
			url, house_id, city_code, city_name, address, community_name,
			area_name, zipcode, property_type, total_price, price_per_ping,
			total_area, building_age, floor_info, trans_floor, sur_floor,
			layout, bedrooms, livingrooms, bathrooms, close_date, trade_count,
			is_historical, history_sequence, history_data, basic_info,
			original_data, scraped_at, last_seen, data_status
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,
			$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30
		)
		ON CONFLICT (url) DO UPDATE SET
			house_id         = EXCLUDED.house_id,
			city_code        = EXCLUDED.city_code,
			city_name        = EXCLUDED.city_name,
			address          = EXCLUDED.address,
			community_name   = EXCLUDED.community_name,
			area_name        = EXCLUDED.area_name,
			zipcode          = EXCLUDED.zipcode,
			property_type    = EXCLUDED.property_type,
			total_price      = EXCLUDED.total_price,
			price_per_ping   = EXCLUDED.price_per_ping,
			total_area       = EXCLUDED.total_area,
			building_age     = EXCLUDED.building_age,
			floor_info       = EXCLUDED.floor_info,
			trans_floor      = EXCLUDED.trans_floor,
			sur_floor        = EXCLUDED.sur_floor,
			layout           = EXCLUDED.layout,
			bedrooms         = EXCLUDED.bedrooms,
			livingrooms      = EXCLUDED.livingrooms,
			bathrooms        = EXCLUDED.bathrooms,
			close_date       = EXCLUDED.close_date,
			trade_count      = EXCLUDED.trade_count,
			is_historical    = EXCLUDED.is_historical,
			history_sequence = EXCLUDED.history_sequence,
			history_data     = EXCLUDED.history_data,
			basic_info       = EXCLUDED.basic_info,
			original_data    = EXCLUDED.original_data,
			scraped_at       = EXCLUDED.scraped_at,
			last_seen        = EXCLUDED.last_seen,
			data_status      = EXCLUDED.data_status
	`,
		t.URL, t.HouseID, t.CityCode, t.CityName, t.Address, t.CommunityName,
		t.AreaName, t.Zipcode, t.PropertyType, t.TotalPrice, t.PricePerPing,
		t.TotalArea, t.BuildingAge, t.FloorInfo, t.TransFloor, t.SurFloor,
		t.Layout, t.Bedrooms, t.Livingrooms, t.Bathrooms, t.CloseDate, t.TradeCount,
		t.IsHistorical, t.HistorySequence, nullableJSON(t.HistoryData), basicInfo,
		nullableJSON(t.OriginalData), t.ScrapedAt, t.LastSeen, string(t.DataStatus),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert trade %s: %w", t.URL, err)
	}
	return nil
}

// Touch refreshes last_seen for an existing trade row only.
func (ts *PostgresTradeStore) Touch(ctx context.Context, url string, seen time.Time) error {
	res, err := ts.db.ExecContext(ctx,
		`UPDATE rakuya_trades SET last_seen = $2 WHERE url = $1`, url, seen)
	if err != nil {
		return fmt.Errorf("postgres: touch trade %s: %w", url, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: touch trade %s: rows affected: %w", url, err)
	}
	if n == 0 {
		return fmt.Errorf("postgres: touch trade %s: no existing row", url)
	}
	return nil
}

// MarkStatus bulk-updates data_status for exactly the given URLs.
func (ts *PostgresTradeStore) MarkStatus(ctx context.Context, urls []string, status models.DataStatus) error {
	if len(urls) == 0 {
		return nil
	}
	_, err := ts.db.ExecContext(ctx,
		`UPDATE rakuya_trades SET data_status = $1 WHERE url = ANY($2)`,
		string(status), pq.Array(urls))
	if err != nil {
		return fmt.Errorf("postgres: mark %d trades %s: %w", len(urls), status, err)
	}
	return nil
}

// ActiveURLs snapshots every trade URL currently labeled ACTIVE.
func (ts *PostgresTradeStore) ActiveURLs(ctx context.Context, _ string) (map[string]struct{}, error) {
	rows, err := ts.db.QueryContext(ctx,
		`SELECT url FROM rakuya_trades WHERE data_status = $1`,
		string(models.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("postgres: active trade urls: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("postgres: scan url: %w", err)
		}
		urls[u] = struct{}{}
	}
	return urls, rows.Err()
}

func (ts *PostgresTradeStore) Close() error {
	return ts.db.Close()
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
