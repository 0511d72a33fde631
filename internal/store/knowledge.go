package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gwi.com/knsystem/internal/utils"
)

const knowledgeColumns = "UniqueID, knowledge_number, problem, detailed_solution, domain"

func scanKnowledge(row scanner) (*Knowledge, error) {
	var k Knowledge
	var number sql.NullInt64
	var problem, solution, domain sql.NullString
	if err := row.Scan(&k.UniqueID, &number, &problem, &solution, &domain); err != nil {
		return nil, err
	}
	k.KnowledgeNumber = number.Int64
	k.Problem = problem.String
	k.DetailedSolution = solution.String
	k.Domain = domain.String
	return &k, nil
}

// knowledgeWhere builds the shared predicate for the list and count queries.
// A numeric search also matches knowledge_number exactly.
func knowledgeWhere(f KnowledgeFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.Domain != "" {
		conds = append(conds, "domain = ?")
		args = append(args, f.Domain)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		if n, ok := utils.NumericSearch(f.Search); ok {
			conds = append(conds, "(knowledge_number = ? OR problem LIKE ? OR detailed_solution LIKE ?)")
			args = append(args, n, like, like)
		} else {
			conds = append(conds, "(problem LIKE ? OR detailed_solution LIKE ?)")
			args = append(args, like, like)
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *SQLiteStore) ListKnowledge(ctx context.Context, f KnowledgeFilter, page utils.Page) ([]Knowledge, int, error) {
	where, args := knowledgeWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM Knowledges"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count knowledge entries: %w", err)
	}

	query := "SELECT " + knowledgeColumns + " FROM Knowledges" + where + " ORDER BY UniqueID ASC LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query knowledge entries: %w", err)
	}
	defer rows.Close()

	entries := []Knowledge{}
	for rows.Next() {
		k, err := scanKnowledge(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan knowledge row: %w", err)
		}
		entries = append(entries, *k)
	}
	return entries, total, rows.Err()
}

func (s *SQLiteStore) AllKnowledge(ctx context.Context) ([]Knowledge, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+knowledgeColumns+" FROM Knowledges ORDER BY UniqueID ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge entries: %w", err)
	}
	defer rows.Close()

	entries := []Knowledge{}
	for rows.Next() {
		k, err := scanKnowledge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knowledge row: %w", err)
		}
		entries = append(entries, *k)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) GetKnowledge(ctx context.Context, id int64) (*Knowledge, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+knowledgeColumns+" FROM Knowledges WHERE UniqueID = ?", id)
	k, err := scanKnowledge(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get knowledge entry: %w", err)
	}
	return k, nil
}

func (s *SQLiteStore) CreateKnowledge(ctx context.Context, k *Knowledge) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO Knowledges (knowledge_number, problem, detailed_solution, domain) VALUES (?, ?, ?, ?)",
		k.KnowledgeNumber, k.Problem, k.DetailedSolution, k.Domain)
	if err != nil {
		return fmt.Errorf("failed to insert knowledge entry: %w", err)
	}
	k.UniqueID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) UpdateKnowledge(ctx context.Context, k *Knowledge) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE Knowledges SET knowledge_number = ?, problem = ?, detailed_solution = ?, domain = ? WHERE UniqueID = ?",
		k.KnowledgeNumber, k.Problem, k.DetailedSolution, k.Domain, k.UniqueID)
	if err != nil {
		return fmt.Errorf("failed to update knowledge entry: %w", err)
	}
	return checkAffected(res)
}

func (s *SQLiteStore) DeleteKnowledge(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM Knowledges WHERE UniqueID = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge entry: %w", err)
	}
	return checkAffected(res)
}

func (s *SQLiteStore) KnowledgeDomains(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT domain FROM Knowledges WHERE domain IS NOT NULL AND domain != '' ORDER BY domain")
	if err != nil {
		return nil, fmt.Errorf("failed to query domains: %w", err)
	}
	defer rows.Close()

	domains := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// UniqueKnowledgeCount counts distinct knowledge_number values, not entries.
func (s *SQLiteStore) UniqueKnowledgeCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT knowledge_number) FROM Knowledges").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unique knowledge numbers: %w", err)
	}
	return n, nil
}
