package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"drillbi-quiz/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	pkgerrors "github.com/pkg/errors"
)

// CourseLoader loads course JSONB from Postgres.
type CourseLoader struct {
	pool *pgxpool.Pool
}

func NewCourseLoader(pool *pgxpool.Pool) *CourseLoader {
	return &CourseLoader{pool: pool}
}

func (l *CourseLoader) LoadCourse(ctx context.Context, name string) (domain.Course, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM courses WHERE name=$1`, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	if err != nil {
		return domain.Course{}, pkgerrors.Wrap(err, "load course")
	}
	var course domain.Course
	if err := json.Unmarshal(raw, &course); err != nil {
		return domain.Course{}, pkgerrors.Wrap(err, "unmarshal course")
	}
	if course.Name == "" {
		course.Name = name
	}
	return course, nil
}

// SaveCourse upserts a course document. Used to seed the devserver database.
func (l *CourseLoader) SaveCourse(ctx context.Context, course domain.Course) error {
	raw, err := json.Marshal(course)
	if err != nil {
		return pkgerrors.Wrap(err, "marshal course")
	}
	_, err = l.pool.Exec(ctx, `
INSERT INTO courses (name, data) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`, course.Name, raw)
	return pkgerrors.Wrap(err, "save course")
}
