package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned by point reads that match no row.
	ErrNotFound = errors.New("record not found")
	// ErrStaleVersion is returned when a compare-and-swap update matched no row.
	ErrStaleVersion = errors.New("stale ticket version")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups every table repository bound to one connection or transaction.
type Repositories struct {
	Tickets         TicketRepository
	VolumeShortfall VolumeShortfallRepository
	Assignments     AssignmentRepository
	Comments        CommentRepository
	Files           FileRepository
	Escalations     EscalationRepository
	History         TicketHistoryRepository
	Users           UserRepository
	Clients         ClientRepository
	PendingClients  PendingClientRepository
	SLA             SLARepository
}

// Store hands out repositories and runs units of work.
type Store interface {
	// Repos returns repositories outside of any transaction.
	Repos() Repositories
	// WithinTx runs fn in one transaction; it commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}

// NewRepositories binds all Postgres repositories to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Tickets:         NewTicketRepository(db),
		VolumeShortfall: NewVolumeShortfallRepository(db),
		Assignments:     NewAssignmentRepository(db),
		Comments:        NewCommentRepository(db),
		Files:           NewFileRepository(db),
		Escalations:     NewEscalationRepository(db),
		History:         NewTicketHistoryRepository(db),
		Users:           NewUserRepository(db),
		Clients:         NewClientRepository(db),
		PendingClients:  NewPendingClientRepository(db),
		SLA:             NewSLARepository(db),
	}
}

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Repos() Repositories {
	return NewRepositories(s.pool)
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(NewRepositories(tx))
	})
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
