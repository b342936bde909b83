package repository

import (
	"context"

	"github.com/placementops/ticketing/internal/domain"
)

// FileRepository records uploaded attachments. Append-only.
type FileRepository interface {
	Create(ctx context.Context, file *domain.FileAttachment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.FileAttachment, error)
}

type fileRepository struct {
	db DBTX
}

// NewFileRepository builds repository.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(ctx context.Context, file *domain.FileAttachment) error {
	const query = `
        INSERT INTO ticket_files (ticket_id, uploaded_by, file_path, uploaded_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		file.TicketID,
		file.UploadedBy,
		file.FilePath,
		file.UploadedAt,
	).Scan(&file.ID)
}

func (r *fileRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.FileAttachment, error) {
	const query = `
        SELECT id, ticket_id, uploaded_by, file_path, uploaded_at
        FROM ticket_files WHERE ticket_id=$1 ORDER BY uploaded_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FileAttachment
	for rows.Next() {
		var f domain.FileAttachment
		if err := rows.Scan(&f.ID, &f.TicketID, &f.UploadedBy, &f.FilePath, &f.UploadedAt); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}
