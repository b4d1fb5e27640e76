package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	// Default name Postgres gives the element_texts.element_id foreign key.
	elementTextsElementFK = "element_texts_element_id_fkey"
)

// PGStore implements Store using Postgres.
type PGStore struct {
	DB       *sql.DB
	PageSize int
}

// FindItem fetches an item by ID.
func (s *PGStore) FindItem(ctx context.Context, id int64) (Item, error) {
	const query = `SELECT id, added, modified FROM items WHERE id = $1`
	var item Item
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&item.ID, &item.Added, &item.Modified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

// ListFiles returns an item's files in the archive's natural order.
func (s *PGStore) ListFiles(ctx context.Context, itemID int64) ([]File, error) {
	const query = `
SELECT id, item_id, archive_filename, original_filename, mime_browser, size, ord, added
FROM files
WHERE item_id = $1
ORDER BY ord, id`
	rows, err := s.DB.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(
			&f.ID,
			&f.ItemID,
			&f.ArchiveFilename,
			&f.OriginalFilename,
			&f.MimeBrowser,
			&f.Size,
			&f.Order,
			&f.Added,
		); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteElementTexts removes a record's texts for the given elements.
func (s *PGStore) DeleteElementTexts(ctx context.Context, recordID, recordTypeID int64, elementIDs []int64) (int64, error) {
	return deleteElementTexts(ctx, s.DB, recordID, recordTypeID, elementIDs)
}

// InsertElementText stores one element text and returns its ID.
func (s *PGStore) InsertElementText(ctx context.Context, text ElementText) (int64, error) {
	return insertElementText(ctx, s.DB, text)
}

// ListElementTexts returns a record's texts for one element, oldest first.
func (s *PGStore) ListElementTexts(ctx context.Context, recordID, recordTypeID, elementID int64) ([]ElementText, error) {
	const query = `
SELECT id, record_id, record_type_id, element_id, html, text
FROM element_texts
WHERE record_id = $1 AND record_type_id = $2 AND element_id = $3
ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, recordID, recordTypeID, elementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ElementText
	for rows.Next() {
		var t ElementText
		if err := rows.Scan(&t.ID, &t.RecordID, &t.RecordTypeID, &t.ElementID, &t.HTML, &t.Text); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ReplaceElementTexts deletes and re-inserts a record's texts for one element in one transaction,
// so readers never observe the empty state in between.
func (s *PGStore) ReplaceElementTexts(ctx context.Context, recordID, recordTypeID, elementID int64, texts []ElementText) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := deleteElementTexts(ctx, tx, recordID, recordTypeID, []int64{elementID}); err != nil {
		return err
	}
	for _, t := range texts {
		t.RecordID = recordID
		t.RecordTypeID = recordTypeID
		t.ElementID = elementID
		if _, err := insertElementText(ctx, tx, t); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// FindElementSetByName fetches an element set by its unique name.
func (s *PGStore) FindElementSetByName(ctx context.Context, name string) (ElementSet, error) {
	const query = `SELECT id, name, description FROM element_sets WHERE name = $1`
	var set ElementSet
	err := s.DB.QueryRowContext(ctx, query, name).Scan(&set.ID, &set.Name, &set.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ElementSet{}, ErrNotFound
		}
		return ElementSet{}, err
	}
	return set, nil
}

// FindElementByName fetches an element by set and element name.
func (s *PGStore) FindElementByName(ctx context.Context, setName, elementName string) (Element, error) {
	const query = `
SELECT e.id, e.element_set_id, e.name, e.description, e.ord
FROM elements e
JOIN element_sets es ON es.id = e.element_set_id
WHERE es.name = $1 AND e.name = $2`
	var el Element
	err := s.DB.QueryRowContext(ctx, query, setName, elementName).Scan(
		&el.ID,
		&el.ElementSetID,
		&el.Name,
		&el.Description,
		&el.Order,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Element{}, ErrNotFound
		}
		return Element{}, err
	}
	return el, nil
}

// InsertElementSet creates a set and its elements atomically.
func (s *PGStore) InsertElementSet(ctx context.Context, set ElementSet, elements []Element) (ElementSet, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return ElementSet{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertSet = `INSERT INTO element_sets (name, description) VALUES ($1, $2) RETURNING id`
	if err := tx.QueryRowContext(ctx, insertSet, set.Name, set.Description).Scan(&set.ID); err != nil {
		if isUniqueViolation(err) {
			return ElementSet{}, ErrConflict
		}
		return ElementSet{}, err
	}

	const insertElement = `INSERT INTO elements (element_set_id, name, description, ord) VALUES ($1, $2, $3, $4)`
	for i, el := range elements {
		order := el.Order
		if order == 0 {
			order = i + 1
		}
		if _, err := tx.ExecContext(ctx, insertElement, set.ID, el.Name, el.Description, order); err != nil {
			return ElementSet{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return ElementSet{}, err
	}
	return set, nil
}

// DeleteElementSet removes a set; elements and their texts go with it via ON DELETE CASCADE.
func (s *PGStore) DeleteElementSet(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM element_sets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordTypeID resolves a record type name to its ID.
func (s *PGStore) RecordTypeID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `SELECT id FROM record_types WHERE name = $1`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

// ItemIDs streams item IDs page by page.
func (s *PGStore) ItemIDs(ctx context.Context) ItemCursor {
	return newPagedCursor(ctx, s.PageSize, s.itemIDPage)
}

func (s *PGStore) itemIDPage(ctx context.Context, after int64, limit int) ([]int64, error) {
	const query = `SELECT id FROM items WHERE id > $1 ORDER BY id LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func deleteElementTexts(ctx context.Context, q execQuerier, recordID, recordTypeID int64, elementIDs []int64) (int64, error) {
	if len(elementIDs) == 0 {
		return 0, nil
	}
	args := []any{recordID, recordTypeID}
	placeholders := make([]string, 0, len(elementIDs))
	for i, id := range elementIDs {
		args = append(args, id)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+3))
	}
	query := `DELETE FROM element_texts WHERE record_id = $1 AND record_type_id = $2 AND element_id IN (` +
		strings.Join(placeholders, ", ") + `)`
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func insertElementText(ctx context.Context, q execQuerier, text ElementText) (int64, error) {
	const query = `
INSERT INTO element_texts (record_id, record_type_id, element_id, html, text)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	var id int64
	err := q.QueryRowContext(ctx, query, text.RecordID, text.RecordTypeID, text.ElementID, text.HTML, text.Text).Scan(&id)
	if err != nil {
		if isMissingElement(err) {
			return 0, fmt.Errorf("element %d: %w", text.ElementID, ErrNoElement)
		}
		return 0, err
	}
	return id, nil
}

func isMissingElement(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation && pgErr.ConstraintName == elementTextsElementFK
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

var (
	_ Store        = (*PGStore)(nil)
	_ TextReplacer = (*PGStore)(nil)
)
