package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookshop-service/internal/domain"

	"github.com/gosimple/slug"
)

// The category tree is a forest kept under one global nested-set
// numbering: every node carries lft < rgt, a node's subtree is exactly
// the rows with lft/rgt inside its own range, and roots simply don't
// overlap. Reads are single range scans; writes shift the ranges of the
// affected part of the tree inside a transaction, with the touched rows
// locked FOR UPDATE so concurrent moves cannot interleave.

const categoryColumns = "id, name, slug, parent_id, lft, rgt, depth, is_active"

func scanCategory(row interface{ Scan(...interface{}) error }) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.Lft, &c.Rgt, &c.Depth, &c.IsActive)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) CreateCategory(ctx context.Context, name string, parentID *int64) (*domain.Category, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: CreateCategory failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	var newLft, newRgt int64
	var depth int32

	if parentID != nil {
		parent, err := lockCategory(ctx, tx, *parentID)
		if err != nil {
			return nil, err
		}
		// The new node becomes the rightmost child: it takes over the
		// parent's rgt slot and everything at or beyond it moves right.
		newLft = parent.Rgt
		newRgt = parent.Rgt + 1
		depth = parent.Depth + 1

		if _, err := tx.ExecContext(ctx,
			`UPDATE categories SET rgt = rgt + 2 WHERE rgt >= $1;`, parent.Rgt); err != nil {
			return nil, fmt.Errorf("store: CreateCategory failed to shift rgt: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE categories SET lft = lft + 2 WHERE lft >= $1;`, parent.Rgt); err != nil {
			return nil, fmt.Errorf("store: CreateCategory failed to shift lft: %w", err)
		}
	} else {
		// New root: append after the rightmost tree.
		var maxRgt sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT MAX(rgt) FROM categories;`).Scan(&maxRgt); err != nil {
			return nil, fmt.Errorf("store: CreateCategory failed to read max rgt: %w", err)
		}
		newLft = maxRgt.Int64 + 1
		newRgt = maxRgt.Int64 + 2
		depth = 0
	}

	query := `
		INSERT INTO categories (name, slug, parent_id, lft, rgt, depth, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING ` + categoryColumns + `;`

	created, err := scanCategory(tx.QueryRowContext(ctx, query, name, slug.Make(name), parentID, newLft, newRgt, depth))
	if err != nil {
		if uniqueViolation(err, "categories_name_key", "Key (name)") {
			return nil, ErrCategoryNameExists
		}
		if uniqueViolation(err, "categories_slug_key", "Key (slug)") {
			return nil, ErrCategorySlugExists
		}
		return nil, fmt.Errorf("store: CreateCategory failed to insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: CreateCategory failed to commit: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1;`
	category, err := scanCategory(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByID failed to scan row: %w", err)
	}
	return category, nil
}

func (s *PostgresStore) GetCategoryBySlug(ctx context.Context, categorySlug string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE slug = $1;`
	category, err := scanCategory(s.db.QueryRowContext(ctx, query, categorySlug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryBySlug failed to scan row: %w", err)
	}
	return category, nil
}

// ListCategories returns the whole taxonomy in depth-first order, which
// is what lft ordering yields for a nested set.
func (s *PostgresStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY lft ASC;`
	return s.queryCategories(ctx, "ListCategories", query)
}

// CategoryDescendants returns every category reachable by following
// children from id, as a single range scan over the nested-set index.
func (s *PostgresStore) CategoryDescendants(ctx context.Context, id int64, includeSelf bool) ([]domain.Category, error) {
	node, err := s.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cmp := ">"
	if includeSelf {
		cmp = ">="
	}
	query := fmt.Sprintf(
		`SELECT `+categoryColumns+` FROM categories WHERE lft %s $1 AND rgt <= $2 ORDER BY lft ASC;`, cmp)
	return s.queryCategories(ctx, "CategoryDescendants", query, node.Lft, node.Rgt)
}

// CategoryAncestors returns the chain above id in root-to-parent order,
// for breadcrumb-style presentation.
func (s *PostgresStore) CategoryAncestors(ctx context.Context, id int64) ([]domain.Category, error) {
	node, err := s.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE lft < $1 AND rgt > $2 ORDER BY lft ASC;`
	return s.queryCategories(ctx, "CategoryAncestors", query, node.Lft, node.Rgt)
}

// ReparentCategory moves id (with its whole subtree) under newParentID.
// Moving a node under itself or under one of its own descendants would
// create a cycle and is rejected with ErrCategoryCycle; in that case the
// tree is left untouched.
func (s *PostgresStore) ReparentCategory(ctx context.Context, id, newParentID int64) error {
	if id == newParentID {
		return ErrCategoryCycle
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: ReparentCategory failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	node, err := lockCategory(ctx, tx, id)
	if err != nil {
		return err
	}
	parent, err := lockCategory(ctx, tx, newParentID)
	if err != nil {
		return err
	}
	if parent.IsDescendantOf(node) {
		return ErrCategoryCycle
	}

	width := node.Rgt - node.Lft + 1

	// 1. Park the subtree in negative range space so the shifts below
	//    cannot touch it.
	if _, err := tx.ExecContext(ctx,
		`UPDATE categories SET lft = -lft, rgt = -rgt WHERE lft >= $1 AND rgt <= $2;`,
		node.Lft, node.Rgt); err != nil {
		return fmt.Errorf("store: ReparentCategory failed to detach subtree: %w", err)
	}

	// 2. Close the gap the subtree left behind.
	if _, err := tx.ExecContext(ctx,
		`UPDATE categories SET rgt = rgt - $1 WHERE rgt > $2;`, width, node.Rgt); err != nil {
		return fmt.Errorf("store: ReparentCategory failed to close gap (rgt): %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE categories SET lft = lft - $1 WHERE lft > $2;`, width, node.Rgt); err != nil {
		return fmt.Errorf("store: ReparentCategory failed to close gap (lft): %w", err)
	}

	// 3. Re-read the parent; the gap close may have shifted its range.
	var parentRgt int64
	var parentDepth int32
	if err := tx.QueryRowContext(ctx,
		`SELECT rgt, depth FROM categories WHERE id = $1;`, newParentID).Scan(&parentRgt, &parentDepth); err != nil {
		return fmt.Errorf("store: ReparentCategory failed to re-read parent: %w", err)
	}

	// 4. Open a gap at the parent's rgt for the incoming subtree.
	if _, err := tx.ExecContext(ctx,
		`UPDATE categories SET rgt = rgt + $1 WHERE rgt >= $2;`, width, parentRgt); err != nil {
		return fmt.Errorf("store: ReparentCategory failed to open gap (rgt): %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE categories SET lft = lft + $1 WHERE lft >= $2;`, width, parentRgt); err != nil {
		return fmt.Errorf("store: ReparentCategory failed to open gap (lft): %w", err)
	}

	// 5. Drop the parked subtree into the gap. A node whose original lft
	//    was x is stored as -x, so -lft + offset places it at
	//    x - node.Lft + parentRgt.
	offset := parentRgt - node.Lft
	depthDelta := parentDepth + 1 - node.Depth
	if _, err := tx.ExecContext(ctx,
		`UPDATE categories SET lft = -lft + $1, rgt = -rgt + $1, depth = depth + $2 WHERE lft < 0;`,
		offset, depthDelta); err != nil {
		return fmt.Errorf("store: ReparentCategory failed to reattach subtree: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE categories SET parent_id = $1 WHERE id = $2;`, newParentID, id); err != nil {
		return fmt.Errorf("store: ReparentCategory failed to update parent_id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: ReparentCategory failed to commit: %w", err)
	}
	return nil
}

// DeleteCategory removes id and its whole subtree and closes the range
// gap. Products still referencing any removed category make the delete
// fail with ErrCategoryInUse (FK is RESTRICT), leaving the tree as it was.
func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	node, err := lockCategory(ctx, tx, id)
	if err != nil {
		return err
	}
	width := node.Rgt - node.Lft + 1

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE lft >= $1 AND rgt <= $2;`, node.Lft, node.Rgt); err != nil {
		if foreignKeyViolation(err) {
			return ErrCategoryInUse
		}
		return fmt.Errorf("store: DeleteCategory failed to delete subtree: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE categories SET rgt = rgt - $1 WHERE rgt > $2;`, width, node.Rgt); err != nil {
		return fmt.Errorf("store: DeleteCategory failed to close gap (rgt): %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE categories SET lft = lft - $1 WHERE lft > $2;`, width, node.Rgt); err != nil {
		return fmt.Errorf("store: DeleteCategory failed to close gap (lft): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: DeleteCategory failed to commit: %w", err)
	}
	return nil
}

// lockCategory reads a category inside tx with a row lock, serializing
// concurrent structural changes on the same part of the tree.
func lockCategory(ctx context.Context, tx *sql.Tx, id int64) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1 FOR UPDATE;`
	category, err := scanCategory(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: failed to lock category %d: %w", id, err)
	}
	return category, nil
}

func (s *PostgresStore) queryCategories(ctx context.Context, op, query string, args ...interface{}) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: %s failed to query categories: %w", op, err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.Lft, &c.Rgt, &c.Depth, &c.IsActive); err != nil {
			return nil, fmt.Errorf("store: %s failed to scan category row: %w", op, err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: %s iteration error: %w", op, err)
	}
	return categories, nil
}
