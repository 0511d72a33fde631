package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const tagColumns = "id, name, color, created_at"

func scanTag(row scanner) (*Tag, error) {
	var t Tag
	var color sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &color, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Color = color.String
	return &t, nil
}

func (s *SQLiteStore) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+tagColumns+" FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

func (s *SQLiteStore) GetTag(ctx context.Context, id int64) (*Tag, error) {
	t, err := scanTag(s.db.QueryRowContext(ctx, "SELECT "+tagColumns+" FROM tags WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return t, nil
}

// TagNameTaken reports whether another tag (id != excludeID) already uses
// name. The comparison is case-sensitive.
func (s *SQLiteStore) TagNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM tags WHERE name = ? AND id != ? LIMIT 1", name, excludeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check tag name: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) CreateTag(ctx context.Context, name, color string) (*Tag, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO tags (name, color) VALUES (?, ?)", name, color)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to insert tag: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetTag(ctx, id)
}

func (s *SQLiteStore) UpdateTag(ctx context.Context, id int64, name, color string) (*Tag, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE tags SET name = ?, color = ? WHERE id = ?", name, color, id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to update tag: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return nil, err
	}
	return s.GetTag(ctx, id)
}

func (s *SQLiteStore) DeleteTag(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return checkAffected(res)
}

// TagStats counts, per tag, the notes whose tags string contains the tag
// name anywhere. A tag whose name is a substring of another tag's name is
// therefore also counted for notes carrying only the longer tag.
func (s *SQLiteStore) TagStats(ctx context.Context) (int, []TagStat, error) {
	var totalWithTags int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM conversation_notes WHERE tags IS NOT NULL AND tags != ''").Scan(&totalWithTags); err != nil {
		return 0, nil, fmt.Errorf("failed to count tagged notes: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT t.id, t.name, t.color, COUNT(cn.id) AS count
        FROM tags t
        LEFT JOIN conversation_notes cn ON cn.tags LIKE '%' || t.name || '%'
        GROUP BY t.id
        ORDER BY count DESC, t.name ASC`)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to query tag stats: %w", err)
	}
	defer rows.Close()

	stats := []TagStat{}
	for rows.Next() {
		var st TagStat
		var color sql.NullString
		if err := rows.Scan(&st.ID, &st.Name, &color, &st.Count); err != nil {
			return 0, nil, fmt.Errorf("failed to scan tag stat: %w", err)
		}
		st.Color = color.String
		stats = append(stats, st)
	}
	return totalWithTags, stats, rows.Err()
}
