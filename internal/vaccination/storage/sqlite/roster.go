package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/campushealth/immunize/internal/vaccination/storage"
)

// PutStudent creates or replaces one roster entry.
func (s *Store) PutStudent(ctx context.Context, student storage.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	student.ID = strings.TrimSpace(student.ID)
	if student.ID == "" {
		return fmt.Errorf("student id is required")
	}

	_, err := s.db(ctx).ExecContext(ctx, `
INSERT INTO students (id, name, grade, section, active)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	grade = excluded.grade,
	section = excluded.section,
	active = excluded.active
`, student.ID, student.Name, student.Grade, student.Section, boolToInt(student.Active))
	if err != nil {
		return fmt.Errorf("put student: %w", err)
	}
	return nil
}

// ResolveStudents expands the selection modes as a union over the active
// roster. The result is de-duplicated and ordered by id; unknown explicit ids
// resolve to nothing.
func (s *Store) ResolveStudents(ctx context.Context, sel storage.Selection) ([]storage.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if sel.IsEmpty() {
		return nil, nil
	}

	var clauses []string
	var args []any
	if ids := trimmedValues(sel.StudentIDs); len(ids) > 0 {
		clauses = append(clauses, "id IN ("+placeholders(len(ids))+")")
		for _, id := range ids {
			args = append(args, id)
		}
	}
	for _, gs := range sel.GradeSections {
		grade := strings.TrimSpace(gs.Grade)
		section := strings.TrimSpace(gs.Section)
		if grade == "" || section == "" {
			continue
		}
		clauses = append(clauses, "(grade = ? AND section = ?)")
		args = append(args, grade, section)
	}
	if grades := trimmedValues(sel.Grades); len(grades) > 0 {
		clauses = append(clauses, "grade IN ("+placeholders(len(grades))+")")
		for _, grade := range grades {
			args = append(args, grade)
		}
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	rows, err := s.db(ctx).QueryContext(ctx, `
SELECT id, name, grade, section, active
FROM students
WHERE active = 1 AND (`+strings.Join(clauses, " OR ")+`)
ORDER BY id ASC
`, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve students: %w", err)
	}
	defer rows.Close()

	var results []storage.Student
	for rows.Next() {
		var student storage.Student
		var active int
		if scanErr := rows.Scan(&student.ID, &student.Name, &student.Grade, &student.Section, &active); scanErr != nil {
			return nil, fmt.Errorf("scan student row: %w", scanErr)
		}
		student.Active = active == 1
		results = append(results, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate student rows: %w", err)
	}
	return results, nil
}

func trimmedValues(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
