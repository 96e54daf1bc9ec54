package book

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/domino14/othello/board"
	"github.com/domino14/othello/symmetry"
)

const schema = `CREATE TABLE IF NOT EXISTS positions (
	mover INTEGER NOT NULL,
	opponent INTEGER NOT NULL,
	move INTEGER NOT NULL,
	eval INTEGER NOT NULL,
	PRIMARY KEY (mover, opponent)
)`

// Store is a SQLite staging area for book positions. It lets a long book
// build be stopped and resumed; Export turns it into a Book.
type Store struct {
	db *sql.DB
}

func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating book schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores a solved position. The position is canonicalized first.
func (s *Store) Put(ctx context.Context, p board.Position, m board.Move, evalHalfDisks int8) error {
	canon, t := symmetry.Canonicalize(p)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO positions (mover, opponent, move, eval) VALUES (?, ?, ?, ?)`,
		int64(canon.Mover), int64(canon.Opponent), int(t.Move(m)), int(evalHalfDisks))
	return err
}

// Has reports whether p, or any of its images, was stored.
func (s *Store) Has(ctx context.Context, p board.Position) (bool, error) {
	canon, _ := symmetry.Canonicalize(p)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM positions WHERE mover = ? AND opponent = ?`,
		int64(canon.Mover), int64(canon.Opponent)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM positions`).Scan(&n)
	return n, err
}

// Export reads every stored position into a book.
func (s *Store) Export(ctx context.Context) (*Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mover, opponent, move, eval FROM positions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	b := New()
	for rows.Next() {
		var mover, opponent int64
		var m, ev int
		if err := rows.Scan(&mover, &opponent, &m, &ev); err != nil {
			return nil, err
		}
		b.put(Key{Mover: uint64(mover), Opponent: uint64(opponent)}, Entry{Move: board.Move(m), Eval: int8(ev)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return b, nil
}
