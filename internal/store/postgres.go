package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tqserver/core/internal/world"
)

// Postgres implements Store against a pgx connection pool, grounded on
// the teacher's internal/db repositories (internal/db/character_repository.go,
// internal/db/db.go in the example pack).
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and pings it before returning.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: pinging: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Pool returns the underlying pgx pool.
func (p *Postgres) Pool() *pgxpool.Pool { return p.pool }

// Close releases the connection pool.
func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) AccountByUsername(ctx context.Context, username string) (Account, error) {
	var acc Account
	err := p.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, realm_id FROM accounts WHERE username = $1`,
		username,
	).Scan(&acc.ID, &acc.Username, &acc.PasswordHash, &acc.RealmID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("store: querying account %q: %w", username, err)
	}
	return acc, nil
}

func (p *Postgres) CharacterNameTaken(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM characters WHERE name = $1)`, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: checking character name %q: %w", name, err)
	}
	return exists, nil
}

func (p *Postgres) CharacterByID(ctx context.Context, id uint32) (CharacterRow, error) {
	var row CharacterRow
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, account_id, realm_id, map_id, x, y, class, mesh,
		        strength, agility, vitality, spirit, hp, silver
		 FROM characters WHERE id = $1`, id,
	).Scan(
		&row.ID, &row.Name, &row.AccountID, &row.RealmID, &row.MapID, &row.X, &row.Y,
		&row.Class, &row.Mesh,
		&row.Attributes.Strength, &row.Attributes.Agility, &row.Attributes.Vitality,
		&row.Attributes.Spirit, &row.Attributes.HP, &row.Attributes.Silver,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return CharacterRow{}, ErrNotFound
	}
	if err != nil {
		return CharacterRow{}, fmt.Errorf("store: querying character %d: %w", id, err)
	}
	return row, nil
}

func (p *Postgres) CharacterByAccountID(ctx context.Context, accountID uint32) (CharacterRow, error) {
	var row CharacterRow
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, account_id, realm_id, map_id, x, y, class, mesh,
		        strength, agility, vitality, spirit, hp, silver
		 FROM characters WHERE account_id = $1`, accountID,
	).Scan(
		&row.ID, &row.Name, &row.AccountID, &row.RealmID, &row.MapID, &row.X, &row.Y,
		&row.Class, &row.Mesh,
		&row.Attributes.Strength, &row.Attributes.Agility, &row.Attributes.Vitality,
		&row.Attributes.Spirit, &row.Attributes.HP, &row.Attributes.Silver,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return CharacterRow{}, ErrNotFound
	}
	if err != nil {
		return CharacterRow{}, fmt.Errorf("store: querying character for account %d: %w", accountID, err)
	}
	return row, nil
}

func (p *Postgres) CharacterSave(ctx context.Context, row CharacterRow) (uint32, error) {
	if row.ID == 0 {
		var id uint32
		err := p.pool.QueryRow(ctx,
			`INSERT INTO characters
			   (name, account_id, realm_id, map_id, x, y, class, mesh,
			    strength, agility, vitality, spirit, hp, silver)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			 RETURNING id`,
			row.Name, row.AccountID, row.RealmID, row.MapID, row.X, row.Y,
			row.Class, row.Mesh,
			row.Attributes.Strength, row.Attributes.Agility, row.Attributes.Vitality,
			row.Attributes.Spirit, row.Attributes.HP, row.Attributes.Silver,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("store: inserting character %q: %w", row.Name, err)
		}
		return id, nil
	}

	_, err := p.pool.Exec(ctx,
		`UPDATE characters SET
		   map_id = $2, x = $3, y = $4, class = $5, mesh = $6,
		   strength = $7, agility = $8, vitality = $9, spirit = $10,
		   hp = $11, silver = $12
		 WHERE id = $1`,
		row.ID, row.MapID, row.X, row.Y, row.Class, row.Mesh,
		row.Attributes.Strength, row.Attributes.Agility, row.Attributes.Vitality,
		row.Attributes.Spirit, row.Attributes.HP, row.Attributes.Silver,
	)
	if err != nil {
		return 0, fmt.Errorf("store: updating character %d: %w", row.ID, err)
	}
	return row.ID, nil
}

func (p *Postgres) MapLoadAll(ctx context.Context) ([]MapRow, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, floor_path, revive_x, revive_y FROM maps`)
	if err != nil {
		return nil, fmt.Errorf("store: loading maps: %w", err)
	}
	defer rows.Close()

	var out []MapRow
	for rows.Next() {
		var m MapRow
		if err := rows.Scan(&m.ID, &m.FloorPath, &m.RevivePointX, &m.RevivePointY); err != nil {
			return nil, fmt.Errorf("store: scanning map row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) PortalLoadForMap(ctx context.Context, mapID uint32) ([]PortalRow, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT map_id, from_x, from_y, to_map_id, to_x, to_y FROM portals WHERE map_id = $1`,
		mapID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: loading portals for map %d: %w", mapID, err)
	}
	defer rows.Close()

	var out []PortalRow
	for rows.Next() {
		var p PortalRow
		if err := rows.Scan(&p.MapID, &p.FromX, &p.FromY, &p.ToMapID, &p.ToX, &p.ToY); err != nil {
			return nil, fmt.Errorf("store: scanning portal row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ToWorldPortals converts a MapID's portal rows into world.Portal values.
func ToWorldPortals(rows []PortalRow) []world.Portal {
	out := make([]world.Portal, len(rows))
	for i, r := range rows {
		out[i] = world.Portal{FromX: r.FromX, FromY: r.FromY, ToMapID: r.ToMapID, ToX: r.ToX, ToY: r.ToY}
	}
	return out
}
