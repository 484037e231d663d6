package repository

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tinylink-io/tinylink/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/tinylink-io/tinylink/internal/repository")

var (
	ErrNotFound     = errors.New("short link not found")
	ErrCodeConflict = errors.New("short code already exists")
	ErrUnavailable  = errors.New("storage unavailable")
)

// SQLSTATE codes the repository translates into typed errors.
const (
	uniqueViolation = "23505"
	connectionClass = "08" // class 08: connection exceptions
)

// URLRepository handles database operations for short links
type URLRepository struct {
	db *pgxpool.Pool
}

// NewURLRepository creates a new URL repository
func NewURLRepository(db *pgxpool.Pool) *URLRepository {
	return &URLRepository{db: db}
}

// Insert persists a new short link. If the short code already exists the
// database returns a unique-constraint error which is mapped to
// ErrCodeConflict so callers can retry with a fresh code. Connection
// failures are mapped to ErrUnavailable.
func (r *URLRepository) Insert(ctx context.Context, link *model.ShortLink) error {
	ctx, span := tracer.Start(ctx, "db.insert",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "INSERT"),
			attribute.String("db.sql.table", "urls"),
			attribute.String("short_code", link.ShortCode),
		),
	)
	defer span.End()

	query := `
		INSERT INTO urls (id, short_code, original_url)
		VALUES ($1, $2, $3)
		RETURNING created_at, clicks
	`
	err := r.db.QueryRow(
		ctx,
		query,
		link.ID,
		link.ShortCode,
		link.OriginalURL,
	).Scan(&link.CreatedAt, &link.Clicks)

	if err != nil {
		span.RecordError(err)
		return classify(err)
	}

	return nil
}

// FindByCode retrieves a short link by its short code
func (r *URLRepository) FindByCode(ctx context.Context, code string) (*model.ShortLink, error) {
	ctx, span := tracer.Start(ctx, "db.select",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "SELECT"),
			attribute.String("db.sql.table", "urls"),
			attribute.String("short_code", code),
		),
	)
	defer span.End()

	query := `
		SELECT id, short_code, original_url, created_at, clicks, last_accessed
		FROM urls
		WHERE short_code = $1
	`
	var link model.ShortLink
	err := r.db.QueryRow(ctx, query, code).Scan(
		&link.ID,
		&link.ShortCode,
		&link.OriginalURL,
		&link.CreatedAt,
		&link.Clicks,
		&link.LastAccessed,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, classify(err)
	}
	return &link, nil
}

// ListAll returns every short link, newest first.
// An empty table yields an empty slice, not an error.
func (r *URLRepository) ListAll(ctx context.Context) ([]model.ShortLink, error) {
	ctx, span := tracer.Start(ctx, "db.select",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "SELECT"),
			attribute.String("db.sql.table", "urls"),
		),
	)
	defer span.End()

	query := `
		SELECT id, short_code, original_url, created_at, clicks, last_accessed
		FROM urls
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, classify(err)
	}
	defer rows.Close()

	links := make([]model.ShortLink, 0)
	for rows.Next() {
		var link model.ShortLink
		if err := rows.Scan(
			&link.ID,
			&link.ShortCode,
			&link.OriginalURL,
			&link.CreatedAt,
			&link.Clicks,
			&link.LastAccessed,
		); err != nil {
			span.RecordError(err)
			return nil, err
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, classify(err)
	}
	return links, nil
}

// TrackClick records one click in a single transaction: a server-side
// atomic increment of the counter (never read-then-write, so concurrent
// clicks cannot lose updates) plus an append to the click log.
func (r *URLRepository) TrackClick(ctx context.Context, code string, event model.ClickEvent) error {
	ctx, span := tracer.Start(ctx, "db.update",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "UPDATE"),
			attribute.String("db.sql.table", "urls"),
			attribute.String("short_code", code),
		),
	)
	defer span.End()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return classify(err)
	}
	defer tx.Rollback(ctx)

	update := `
		UPDATE urls
		SET clicks = clicks + 1, last_accessed = now()
		WHERE short_code = $1
		RETURNING id
	`
	var urlID uuid.UUID
	if err := tx.QueryRow(ctx, update, code).Scan(&urlID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		span.RecordError(err)
		return classify(err)
	}

	insert := `
		INSERT INTO clicks (id, url_id, short_code, created_at, ip_address, user_agent, referer)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))
	`
	if _, err := tx.Exec(ctx, insert,
		event.ID,
		urlID,
		code,
		event.CreatedAt,
		event.IPAddress,
		event.UserAgent,
		event.Referer,
	); err != nil {
		span.RecordError(err)
		return classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return classify(err)
	}
	return nil
}

// ListClicks returns the click log for a short code, newest first.
func (r *URLRepository) ListClicks(ctx context.Context, code string) ([]model.ClickEvent, error) {
	ctx, span := tracer.Start(ctx, "db.select",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "SELECT"),
			attribute.String("db.sql.table", "clicks"),
			attribute.String("short_code", code),
		),
	)
	defer span.End()

	query := `
		SELECT id, url_id, short_code, created_at,
		       COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(referer, '')
		FROM clicks
		WHERE short_code = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, code)
	if err != nil {
		span.RecordError(err)
		return nil, classify(err)
	}
	defer rows.Close()

	events := make([]model.ClickEvent, 0)
	for rows.Next() {
		var event model.ClickEvent
		if err := rows.Scan(
			&event.ID,
			&event.URLID,
			&event.ShortCode,
			&event.CreatedAt,
			&event.IPAddress,
			&event.UserAgent,
			&event.Referer,
		); err != nil {
			span.RecordError(err)
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, classify(err)
	}
	return events, nil
}

// classify translates driver errors into the repository's typed errors.
// Unique-constraint violations become ErrCodeConflict, connection-level
// failures become ErrUnavailable, anything else passes through unchanged.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == uniqueViolation:
			return ErrCodeConflict
		case strings.HasPrefix(pgErr.Code, connectionClass):
			return ErrUnavailable
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return ErrUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrUnavailable
	}
	return err
}
