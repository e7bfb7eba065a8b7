package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNoSnapshot is returned when a project has no stored scene of that name.
var ErrNoSnapshot = errors.New("no scene snapshot")

// SceneSnapshot is one stored YAML scene document.
type SceneSnapshot struct {
	ID        int64
	Project   string
	Name      string
	Entities  int
	Document  []byte
	CreatedAt time.Time
}

type SceneRepo struct {
	db *DB
}

func NewSceneRepo(db *DB) *SceneRepo {
	return &SceneRepo{db: db}
}

// Save appends a snapshot and returns its id. Older snapshots are kept.
func (r *SceneRepo) Save(ctx context.Context, project, name string, entities int, doc []byte) (int64, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO scene_snapshots (project, name, entities, document)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		project, name, entities, string(doc),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save scene %s/%s: %w", project, name, err)
	}
	return id, nil
}

// Latest returns the newest snapshot for project/name.
func (r *SceneRepo) Latest(ctx context.Context, project, name string) (*SceneSnapshot, error) {
	s := &SceneSnapshot{}
	var doc string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, project, name, entities, document, created_at
		 FROM scene_snapshots WHERE project = $1 AND name = $2
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		project, name,
	).Scan(&s.ID, &s.Project, &s.Name, &s.Entities, &doc, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load scene %s/%s: %w", project, name, err)
	}
	s.Document = []byte(doc)
	return s, nil
}

// Prune keeps the newest keep snapshots of project/name and deletes the rest.
func (r *SceneRepo) Prune(ctx context.Context, project, name string, keep int) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM scene_snapshots WHERE project = $1 AND name = $2 AND id NOT IN (
			SELECT id FROM scene_snapshots WHERE project = $1 AND name = $2
			ORDER BY created_at DESC, id DESC LIMIT $3)`,
		project, name, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune scenes %s/%s: %w", project, name, err)
	}
	return tag.RowsAffected(), nil
}
