package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements contentcoin.CatalogStore using PostgreSQL
type Repository struct {
	db  DBTX
	now func() time.Time
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return New(pool)
}

var _ contentcoin.CatalogStore = (*Repository)(nil)

const coinColumns = `id, creator_wallet, name, symbol, coin_address,
	COALESCE(transaction_hash, ''), COALESCE(ipfs_uri, ''), COALESCE(ipfs_hash, ''),
	COALESCE(gateway_url, ''), metadata, created_at, updated_at`

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Creator operations

func (r *Repository) UpsertCreator(ctx context.Context, wallet, email string) (*contentcoin.CreatorRecord, error) {
	query := `
		INSERT INTO creators (wallet_address, email, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $3)
		ON CONFLICT (wallet_address) DO UPDATE SET
			email = COALESCE(EXCLUDED.email, creators.email),
			updated_at = EXCLUDED.updated_at
		RETURNING wallet_address, COALESCE(email, ''), created_at, updated_at`

	var c contentcoin.CreatorRecord
	err := r.db.QueryRow(ctx, query, normalize(wallet), strings.TrimSpace(email), r.now()).
		Scan(&c.WalletAddress, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, r.handlePostgresError("upsert creator", err)
	}
	return &c, nil
}

func (r *Repository) GetCreator(ctx context.Context, wallet string) (*contentcoin.CreatorRecord, error) {
	query := `
		SELECT wallet_address, COALESCE(email, ''), created_at, updated_at
		FROM creators WHERE wallet_address = $1`

	var c contentcoin.CreatorRecord
	err := r.db.QueryRow(ctx, query, normalize(wallet)).
		Scan(&c.WalletAddress, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentcoin.ErrCreatorNotFound
		}
		return nil, r.handlePostgresError("get creator", err)
	}
	return &c, nil
}

// Coin operations

func (r *Repository) InsertCoin(ctx context.Context, coin *contentcoin.CoinRecord) (*contentcoin.CoinRecord, error) {
	stored := coin.Clone()
	stored.CreatorWallet = normalize(coin.CreatorWallet)
	stored.CoinAddress = normalize(coin.CoinAddress)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}

	metadata, err := json.Marshal(stored.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode coin metadata: %w", err)
	}

	query := `
		INSERT INTO coins (
			id, creator_wallet, name, symbol, coin_address, transaction_hash,
			ipfs_uri, ipfs_hash, gateway_url, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''),
			NULLIF($9, ''), $10, $11, $12)`

	_, err = r.db.Exec(ctx, query,
		stored.ID, stored.CreatorWallet, stored.Name, stored.Symbol, stored.CoinAddress,
		stored.TransactionHash, stored.IPFSURI, stored.IPFSHash, stored.GatewayURL,
		string(metadata), stored.CreatedAt, stored.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &contentcoin.DuplicateAddressError{Address: stored.CoinAddress}
		}
		return nil, r.handlePostgresError("insert coin", err)
	}
	return stored, nil
}

func (r *Repository) GetCoin(ctx context.Context, id uuid.UUID) (*contentcoin.CoinRecord, error) {
	query := `SELECT ` + coinColumns + ` FROM coins WHERE id = $1`
	return r.getCoin(ctx, "get coin", query, id)
}

func (r *Repository) GetCoinByAddress(ctx context.Context, address string) (*contentcoin.CoinRecord, error) {
	query := `SELECT ` + coinColumns + ` FROM coins WHERE coin_address = $1`
	return r.getCoin(ctx, "get coin by address", query, normalize(address))
}

func (r *Repository) getCoin(ctx context.Context, op, query string, arg interface{}) (*contentcoin.CoinRecord, error) {
	coin, err := scanCoin(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentcoin.ErrCoinNotFound
		}
		return nil, r.handlePostgresError(op, err)
	}
	return coin, nil
}

// filterClause matches contentcoin.CoinFilter.Matches. Parameters $1..$3 are
// wallet, kind and search.
const filterClause = `
	($1 = '' OR creator_wallet = $1)
	AND ($2 = '' OR metadata->>'type' = $2)
	AND ($3 = '' OR name ILIKE '%' || $3 || '%' OR symbol ILIKE '%' || $3 || '%'
		OR metadata->>'title' ILIKE '%' || $3 || '%'
		OR metadata->>'description' ILIKE '%' || $3 || '%')`

func filterArgs(f contentcoin.CoinFilter) []interface{} {
	return []interface{}{normalize(f.CreatorWallet), string(f.Kind), escapeLike(strings.TrimSpace(f.Search))}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *Repository) ListCoins(ctx context.Context, filter contentcoin.CoinFilter, limit, offset int) ([]*contentcoin.CoinRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + coinColumns + ` FROM coins WHERE` + filterClause + `
		ORDER BY created_at DESC, id
		LIMIT $4 OFFSET $5`

	rows, err := r.db.Query(ctx, query, append(filterArgs(filter), limit, offset)...)
	if err != nil {
		return nil, r.handlePostgresError("list coins", err)
	}
	defer rows.Close()

	coins := []*contentcoin.CoinRecord{}
	for rows.Next() {
		coin, err := scanCoin(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan coin", err)
		}
		coins = append(coins, coin)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list coins", err)
	}
	return coins, nil
}

func (r *Repository) UpdateCoin(ctx context.Context, id uuid.UUID, update contentcoin.CoinUpdate) (*contentcoin.CoinRecord, error) {
	coin, err := r.GetCoin(ctx, id)
	if err != nil {
		return nil, err
	}
	update.Apply(coin)
	coin.UpdatedAt = r.now()

	metadata, err := json.Marshal(coin.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode coin metadata: %w", err)
	}

	query := `
		UPDATE coins SET
			name = $2, symbol = $3, transaction_hash = NULLIF($4, ''),
			metadata = $5, updated_at = $6
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, coin.Name, coin.Symbol, coin.TransactionHash, string(metadata), coin.UpdatedAt)
	if err != nil {
		return nil, r.handlePostgresError("update coin", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, contentcoin.ErrCoinNotFound
	}
	return coin, nil
}

func (r *Repository) DeleteCoin(ctx context.Context, id uuid.UUID, requesterWallet string) error {
	coin, err := r.GetCoin(ctx, id)
	if err != nil {
		return err
	}
	if !contentcoin.SameWallet(coin.CreatorWallet, requesterWallet) {
		return &contentcoin.AuthorizationError{Requester: requesterWallet, Owner: coin.CreatorWallet}
	}

	// The creator check is repeated in SQL so a concurrent reassignment cannot slip through.
	tag, err := r.db.Exec(ctx, `DELETE FROM coins WHERE id = $1 AND creator_wallet = $2`, id, normalize(requesterWallet))
	if err != nil {
		return r.handlePostgresError("delete coin", err)
	}
	if tag.RowsAffected() == 0 {
		return contentcoin.ErrCoinNotFound
	}
	return nil
}

// Stats operations

func (r *Repository) CountCoins(ctx context.Context, filter contentcoin.CoinFilter) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM coins WHERE`+filterClause, filterArgs(filter)...).Scan(&n)
	if err != nil {
		return 0, r.handlePostgresError("count coins", err)
	}
	return n, nil
}

func (r *Repository) CountCreators(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(DISTINCT creator_wallet) FROM coins`).Scan(&n)
	if err != nil {
		return 0, r.handlePostgresError("count creators", err)
	}
	return n, nil
}

func scanCoin(row pgx.Row) (*contentcoin.CoinRecord, error) {
	var c contentcoin.CoinRecord
	var metadata []byte
	err := row.Scan(&c.ID, &c.CreatorWallet, &c.Name, &c.Symbol, &c.CoinAddress,
		&c.TransactionHash, &c.IPFSURI, &c.IPFSHash, &c.GatewayURL,
		&metadata, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("decode coin metadata: %w", err)
		}
	}
	return &c, nil
}
