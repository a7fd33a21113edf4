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

// PostgresStore persists canonical listings keyed by URL.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens a connection to PostgreSQL, runs the schema
// migration, and returns a ready-to-use store.
func NewPostgresStore(dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	ping := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 2 * time.Second, Logger: logger}
	if err := ping.Do("postgres ping", db.Ping); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db, logger: logger}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id           SERIAL PRIMARY KEY,
			url          TEXT        UNIQUE NOT NULL,
			site         TEXT        NOT NULL,
			house_id     TEXT        NOT NULL DEFAULT '',
			name         TEXT        NOT NULL DEFAULT '',
			address      TEXT        NOT NULL DEFAULT '',
			city         TEXT        NOT NULL DEFAULT '',
			district     TEXT        NOT NULL DEFAULT '',
			latitude     DOUBLE PRECISION,
			longitude    DOUBLE PRECISION,
			price        TEXT        NOT NULL DEFAULT '',
			space        TEXT        NOT NULL DEFAULT '',
			layout       TEXT        NOT NULL DEFAULT '',
			age          TEXT        NOT NULL DEFAULT '',
			floors       TEXT        NOT NULL DEFAULT '',
			community    TEXT        NOT NULL DEFAULT '',
			basic_info   JSONB       NOT NULL DEFAULT '{}',
			features     TEXT        NOT NULL DEFAULT '',
			life_info    JSONB       NOT NULL DEFAULT '[]',
			utility_info JSONB       NOT NULL DEFAULT '[]',
			trade_data   JSONB       NOT NULL DEFAULT '[]',
			review       TEXT        NOT NULL DEFAULT '',
			images       JSONB       NOT NULL DEFAULT '[]',
			last_seen    DATE        NOT NULL,
			data_status  TEXT        NOT NULL DEFAULT 'ACTIVE'
		);

		CREATE INDEX IF NOT EXISTS idx_listings_site_status ON listings(site, data_status);
		CREATE INDEX IF NOT EXISTS idx_listings_city        ON listings(city);
		CREATE INDEX IF NOT EXISTS idx_listings_last_seen   ON listings(last_seen);
	`)
	return err
}

// Upsert inserts or fully replaces a listing row keyed by url.
func (ps *PostgresStore) Upsert(ctx context.Context, rec Record) error {
	l, ok := rec.(*models.CanonicalListing)
	if !ok {
		return fmt.Errorf("postgres: unsupported record type %T", rec)
	}

	basicInfo, err := json.Marshal(orEmptyMap(l.BasicInfo))
	if err != nil {
		return fmt.Errorf("postgres: marshal basic_info for %s: %w", l.URL, err)
	}
	lifeInfo, _ := json.Marshal(orEmptyPOIs(l.LifeInfo))
	utilityInfo, _ := json.Marshal(orEmptyPOIs(l.UtilityInfo))
	tradeData, _ := json.Marshal(orEmptyTrades(l.TradeData))
	images, _ := json.Marshal(orEmptyStrings(l.Images))

	_, err = ps.db.ExecContext(ctx, `
		INSERT INTO listings (
			url, site, house_id, name, address, city, district,
			latitude, longitude, price, space, layout, age, floors,
			community, basic_info, features, life_info, utility_info,
			trade_data, review, images, last_seen, data_status
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,
			$15,$16,$17,$18,$19,$20,$21,$22,$23,$24
		)
		ON CONFLICT (url) DO UPDATE SET
			site         = EXCLUDED.site,
			house_id     = EXCLUDED.house_id,
			name         = EXCLUDED.name,
			address      = EXCLUDED.address,
			city         = EXCLUDED.city,
			district     = EXCLUDED.district,
			latitude     = EXCLUDED.latitude,
			longitude    = EXCLUDED.longitude,
			price        = EXCLUDED.price,
			space        = EXCLUDED.space,
			layout       = EXCLUDED.layout,
			age          = EXCLUDED.age,
			floors       = EXCLUDED.floors,
			community    = EXCLUDED.community,
			basic_info   = EXCLUDED.basic_info,
			features     = EXCLUDED.features,
			life_info    = EXCLUDED.life_info,
			utility_info = EXCLUDED.utility_info,
			trade_data   = EXCLUDED.trade_data,
			review       = EXCLUDED.review,
			images       = EXCLUDED.images,
			last_seen    = EXCLUDED.last_seen,
			data_status  = EXCLUDED.data_status
	`,
		l.URL, l.Site, l.HouseID, l.Name, l.Address, l.City, l.District,
		l.Latitude, l.Longitude, l.Price, l.Space, l.Layout, l.Age, l.Floors,
		l.Community, basicInfo, l.Features, lifeInfo, utilityInfo,
		tradeData, l.Review, images, l.LastSeen, string(l.DataStatus),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert %s: %w", l.URL, err)
	}
	return nil
}

// Touch refreshes last_seen for an existing row only.
func (ps *PostgresStore) Touch(ctx context.Context, url string, seen time.Time) error {
	res, err := ps.db.ExecContext(ctx,
		`UPDATE listings SET last_seen = $2 WHERE url = $1`, url, seen)
	if err != nil {
		return fmt.Errorf("postgres: touch %s: %w", url, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: touch %s: rows affected: %w", url, err)
	}
	if n == 0 {
		return fmt.Errorf("postgres: touch %s: no existing row", url)
	}
	return nil
}

// MarkStatus bulk-updates data_status for exactly the given URLs.
func (ps *PostgresStore) MarkStatus(ctx context.Context, urls []string, status models.DataStatus) error {
	if len(urls) == 0 {
		return nil
	}
	_, err := ps.db.ExecContext(ctx,
		`UPDATE listings SET data_status = $1 WHERE url = ANY($2)`,
		string(status), pq.Array(urls))
	if err != nil {
		return fmt.Errorf("postgres: mark %d urls %s: %w", len(urls), status, err)
	}
	return nil
}

// ActiveURLs snapshots every URL currently labeled ACTIVE for one site.
func (ps *PostgresStore) ActiveURLs(ctx context.Context, source string) (map[string]struct{}, error) {
	rows, err := ps.db.QueryContext(ctx,
		`SELECT url FROM listings WHERE site = $1 AND data_status = $2`,
		source, string(models.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("postgres: active urls for %s: %w", source, err)
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

// Fetch reads one listing back by URL.
func (ps *PostgresStore) Fetch(ctx context.Context, url string) (*models.CanonicalListing, error) {
	l := &models.CanonicalListing{}
	var basicInfo, lifeInfo, utilityInfo, tradeData, images []byte
	var status string

	err := ps.db.QueryRowContext(ctx, `
		SELECT url, site, house_id, name, address, city, district,
		       latitude, longitude, price, space, layout, age, floors,
		       community, basic_info, features, life_info, utility_info,
		       trade_data, review, images, last_seen, data_status
		FROM listings WHERE url = $1
	`, url).Scan(
		&l.URL, &l.Site, &l.HouseID, &l.Name, &l.Address, &l.City, &l.District,
		&l.Latitude, &l.Longitude, &l.Price, &l.Space, &l.Layout, &l.Age, &l.Floors,
		&l.Community, &basicInfo, &l.Features, &lifeInfo, &utilityInfo,
		&tradeData, &l.Review, &images, &l.LastSeen, &status,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch %s: %w", url, err)
	}

	l.DataStatus = models.DataStatus(status)
	_ = json.Unmarshal(basicInfo, &l.BasicInfo)
	_ = json.Unmarshal(lifeInfo, &l.LifeInfo)
	_ = json.Unmarshal(utilityInfo, &l.UtilityInfo)
	_ = json.Unmarshal(tradeData, &l.TradeData)
	_ = json.Unmarshal(images, &l.Images)
	return l, nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

// JSONB columns are NOT NULL, so nil Go values marshal as empty containers.

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func orEmptyPOIs(p []models.POI) []models.POI {
	if p == nil {
		return []models.POI{}
	}
	return p
}

func orEmptyTrades(t []models.TradeRecord) []models.TradeRecord {
	if t == nil {
		return []models.TradeRecord{}
	}
	return t
}

func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
