package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	marketerrors "github.com/abgdnv/marketplace/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Store = (*PgStore)(nil)

// uniqueViolation is the SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

const productColumns = "id, title, price::float8, description, image, created_at, updated_at"

type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of Store using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func (p *PgStore) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func scanProduct(row pgx.Row) (*Product, error) {
	var pr Product
	if err := row.Scan(&pr.ID, &pr.Title, &pr.Price, &pr.Description, &pr.Image, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
		return nil, err
	}
	return &pr, nil
}

func (p *PgStore) FindProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	pr, err := scanProduct(p.db.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, marketerrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("%w: %w", marketerrors.ErrFailedToFindProduct, err)
	}
	return pr, nil
}

func (p *PgStore) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: %w", marketerrors.ErrFailedToFindProduct, err)
	}
	return exists, nil
}

func (p *PgStore) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int64, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(filter.Search)) + "%"

	var total int64
	var products []Product
	txErr := p.withTransaction(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead}, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, "SELECT count(*) FROM products WHERE title ILIKE $1", pattern).Scan(&total); err != nil {
			return fmt.Errorf("%w: %w", marketerrors.ErrFailedToListProducts, err)
		}
		rows, err := tx.Query(ctx,
			"SELECT "+productColumns+" FROM products WHERE title ILIKE $1 ORDER BY created_at, id OFFSET $2 LIMIT $3",
			pattern, max(filter.Offset, 0), filter.Limit)
		if err != nil {
			return fmt.Errorf("%w: %w", marketerrors.ErrFailedToListProducts, err)
		}
		defer rows.Close()
		products = make([]Product, 0, filter.Limit)
		for rows.Next() {
			pr, err := scanProduct(rows)
			if err != nil {
				return fmt.Errorf("%w: %w", marketerrors.ErrFailedToListProducts, err)
			}
			products = append(products, *pr)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: %w", marketerrors.ErrFailedToListProducts, err)
		}
		return nil
	})
	if txErr != nil {
		return nil, 0, txErr
	}
	return products, total, nil
}

func (p *PgStore) CreateProduct(ctx context.Context, product Product) (*Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	created, err := scanProduct(p.db.QueryRow(ctx,
		"INSERT INTO products (id, title, price, description, image) VALUES ($1, $2, $3::float8, $4, $5) RETURNING "+productColumns,
		product.ID, product.Title, product.Price, product.Description, product.Image))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", marketerrors.ErrCreateProduct, err)
	}
	return created, nil
}

func (p *PgStore) UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*Product, error) {
	updated, err := scanProduct(p.db.QueryRow(ctx, `
		UPDATE products
		SET title       = COALESCE($2, title),
		    price       = COALESCE($3::float8, price::float8),
		    description = COALESCE($4, description),
		    image       = COALESCE($5, image),
		    updated_at  = now()
		WHERE id = $1
		RETURNING `+productColumns,
		id, patch.Title, patch.Price, patch.Description, patch.Image))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, marketerrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("%w: %w", marketerrors.ErrUpdateProduct, err)
	}
	return updated, nil
}

func (p *PgStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("%w: %w", marketerrors.ErrDeleteProduct, err)
	}
	if tag.RowsAffected() == 0 {
		return marketerrors.ErrProductNotFound
	}
	return nil
}

func (p *PgStore) CreateUser(ctx context.Context, user User) (*User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	err := p.db.QueryRow(ctx,
		"INSERT INTO users (id, name, email, password_hash) VALUES ($1, $2, $3, $4) RETURNING created_at",
		user.ID, user.Name, user.Email, user.PasswordHash).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, marketerrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: %w", marketerrors.ErrCreateUser, err)
	}
	return &user, nil
}

func (p *PgStore) findUser(ctx context.Context, where string, arg any) (*User, error) {
	var u User
	err := p.db.QueryRow(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE "+where+" = $1", arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, marketerrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %w", marketerrors.ErrFailedToFindUser, err)
	}
	return &u, nil
}

func (p *PgStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return p.findUser(ctx, "email", email)
}

func (p *PgStore) FindUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return p.findUser(ctx, "id", id)
}

// ToggleFavorite locks the owner's user row for the duration of the transaction so that toggles
// for the same user run one after another while toggles of different users proceed in parallel.
func (p *PgStore) ToggleFavorite(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var added bool
	err := p.withTransaction(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
		removed, err := removeFavorite(ctx, tx, userID, productID)
		if err != nil {
			return err
		}
		if removed {
			return nil
		}
		added = true
		return addFavorite(ctx, tx, userID, productID)
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

func (p *PgStore) Favorites(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var favorites []uuid.UUID
	err := p.withTransaction(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead}, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists); err != nil {
			return fmt.Errorf("%w: %w", marketerrors.ErrFailedToReadFavorites, err)
		}
		if !exists {
			return marketerrors.ErrUserNotFound
		}
		rows, err := tx.Query(ctx,
			"SELECT product_id FROM user_favorites WHERE user_id = $1 ORDER BY created_at, product_id", userID)
		if err != nil {
			return fmt.Errorf("%w: %w", marketerrors.ErrFailedToReadFavorites, err)
		}
		favorites, err = pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
		if err != nil {
			return fmt.Errorf("%w: %w", marketerrors.ErrFailedToReadFavorites, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if favorites == nil {
		favorites = []uuid.UUID{}
	}
	return favorites, nil
}

func lockUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	var one int
	err := tx.QueryRow(ctx, "SELECT 1 FROM users WHERE id = $1 FOR UPDATE", userID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return marketerrors.ErrUserNotFound
		}
		return fmt.Errorf("%w: %w", marketerrors.ErrToggleFavorite, err)
	}
	return nil
}

func removeFavorite(ctx context.Context, tx pgx.Tx, userID, productID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, "DELETE FROM user_favorites WHERE user_id = $1 AND product_id = $2", userID, productID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", marketerrors.ErrToggleFavorite, err)
	}
	return tag.RowsAffected() > 0, nil
}

func addFavorite(ctx context.Context, tx pgx.Tx, userID, productID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		"INSERT INTO user_favorites (user_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", userID, productID)
	if err != nil {
		return fmt.Errorf("%w: %w", marketerrors.ErrToggleFavorite, err)
	}
	return nil
}

func (p *PgStore) withTransaction(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: %w", marketerrors.ErrTransactionBegin, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w: %w", marketerrors.ErrTransactionRollback, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", marketerrors.ErrTransactionCommit, err)
	}
	return nil
}

// escapeLike escapes LIKE wildcards so the search text is matched literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
