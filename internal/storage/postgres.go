package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campaignkit-reference/internal/config"
)

var ErrCampaignUnknown = errors.New("campaign not in catalog")

type Store struct {
	pool    *pgxpool.Pool
	channel string
}

type CampaignRow struct {
	ID           string
	Title        string
	Message      string
	ContentTitle string
	ContentBody  string
	ContentURL   string
	FoundAt      time.Time
}

func New(ctx context.Context, cfg config.Config) (*Store, error) {
	dsn := cfg.DSN()
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Postgres.MaxIdleConns)
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &Store{pool: pool, channel: cfg.Listener.Channel}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const campaignColumns = `c.id, c.title, c.message, c.content_title, c.content_body, c.content_url, f.found_at`

// LoadFoundCampaigns returns found, not removed campaigns in the order they were found.
func (s *Store) LoadFoundCampaigns(ctx context.Context) ([]CampaignRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+campaignColumns+`
		FROM found_campaigns f
		JOIN campaigns c ON c.id = f.campaign_id
		WHERE f.removed_at IS NULL
		ORDER BY f.found_at, c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query found campaigns: %w", err)
	}
	defer rows.Close()

	var out []CampaignRow
	for rows.Next() {
		r, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// MarkFound records a detection and returns the campaign.
func (s *Store) MarkFound(ctx context.Context, id string) (CampaignRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		WITH f AS (
			INSERT INTO found_campaigns (campaign_id, found_at)
			SELECT id, now() FROM campaigns WHERE id = $1
			ON CONFLICT (campaign_id) DO UPDATE SET found_at = now(), removed_at = NULL
			RETURNING campaign_id, found_at
		)
		SELECT `+campaignColumns+`
		FROM f JOIN campaigns c ON c.id = f.campaign_id
	`, id)
	r, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return CampaignRow{}, fmt.Errorf("%w: %s", ErrCampaignUnknown, id)
	}
	return r, err
}

func (s *Store) RemoveFound(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.pool.Exec(ctx,
		`UPDATE found_campaigns SET removed_at = now() WHERE campaign_id = $1`, id); err != nil {
		return fmt.Errorf("remove found campaign %s: %w", id, err)
	}
	return nil
}

func (s *Store) MarkViewed(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.pool.Exec(ctx,
		`UPDATE found_campaigns SET viewed_at = now() WHERE campaign_id = $1`, id); err != nil {
		return fmt.Errorf("mark viewed %s: %w", id, err)
	}
	return nil
}

// InsertAnalytics queues one row per campaign in a single batch.
func (s *Store) InsertAnalytics(ctx context.Context, event string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	b := &pgx.Batch{}
	for _, id := range ids {
		b.Queue(`INSERT INTO analytics_events (event, campaign_id, created_at) VALUES ($1, $2, now())`, event, id)
	}
	if err := s.pool.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("insert analytics: %w", err)
	}
	return nil
}

func scanCampaign(row pgx.Row) (CampaignRow, error) {
	var (
		r               CampaignRow
		message, cTitle sql.NullString
		cBody, cURL     sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Title, &message, &cTitle, &cBody, &cURL, &r.FoundAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan campaign: %w", err)
	}
	r.Message = message.String
	r.ContentTitle = cTitle.String
	r.ContentBody = cBody.String
	r.ContentURL = cURL.String
	return r, nil
}

func (s *Store) ListenChannel() string {
	if s.channel != "" {
		return s.channel
	}
	return "campaignkit_events"
}

func (s *Store) PgxPool() *pgxpool.Pool {
	if s.pool == nil {
		panic(errors.New("pgx pool is nil"))
	}
	return s.pool
}
