package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/placementops/ticketing/internal/domain"
	"github.com/placementops/ticketing/internal/repository"
	"github.com/placementops/ticketing/internal/storage"
	apperrors "github.com/placementops/ticketing/pkg/util/errorutil"
)

// ActivityService is the append-only comment and file log of a ticket.
type ActivityService struct {
	store  repository.Store
	blobs  storage.BlobStore
	logger *zap.Logger
	now    Clock
}

// ActivityDependencies bundles collaborators for the activity log.
type ActivityDependencies struct {
	Store  repository.Store
	Blobs  storage.BlobStore
	Logger *zap.Logger
	Clock  Clock
}

// NewActivityService constructs the service.
func NewActivityService(deps ActivityDependencies) *ActivityService {
	return &ActivityService{store: deps.Store, blobs: deps.Blobs, logger: orNop(deps.Logger), now: orClock(deps.Clock)}
}

// CommentInput describes a comment to append.
type CommentInput struct {
	TicketID     string
	UserID       string
	Content      string
	IsInternal   bool
	StatusAtTime domain.TicketStatus
}

// AppendComment writes a comment within repos' unit of work.
func (s *ActivityService) AppendComment(ctx context.Context, repos repository.Repositories, in CommentInput) (*domain.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperrors.NewFieldError("comment", "comment must not be empty")
	}
	comment := &domain.Comment{
		TicketID:           in.TicketID,
		UserID:             in.UserID,
		Content:            content,
		IsInternal:         in.IsInternal,
		TicketStatusAtTime: in.StatusAtTime,
		CreatedAt:          s.now(),
	}
	if err := repos.Comments.Create(ctx, comment); err != nil {
		return nil, persist("comments", err)
	}
	return comment, nil
}

// AppendFile records an already uploaded blob within repos' unit of work.
func (s *ActivityService) AppendFile(ctx context.Context, repos repository.Repositories, ticketID, uploadedBy, filePath string) (*domain.FileAttachment, error) {
	file := &domain.FileAttachment{
		TicketID:   ticketID,
		UploadedBy: uploadedBy,
		FilePath:   filePath,
		UploadedAt: s.now(),
	}
	if err := repos.Files.Create(ctx, file); err != nil {
		return nil, persist("files", err)
	}
	return file, nil
}

// ListActivity merges comments and files in ascending time order. On equal
// timestamps a comment sorts before a file.
func (s *ActivityService) ListActivity(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error) {
	repos := s.store.Repos()
	comments, err := repos.Comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, persist("read comments", err)
	}
	files, err := repos.Files.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, persist("read files", err)
	}
	return s.merge(comments, files), nil
}

func (s *ActivityService) merge(comments []domain.Comment, files []domain.FileAttachment) []domain.ActivityEntry {
	entries := make([]domain.ActivityEntry, 0, len(comments)+len(files))
	for i := range comments {
		c := comments[i]
		entries = append(entries, domain.ActivityEntry{Kind: domain.ActivityComment, At: c.CreatedAt, Comment: &c})
	}
	for i := range files {
		f := files[i]
		entry := domain.ActivityEntry{Kind: domain.ActivityFile, At: f.UploadedAt, File: &f}
		if s.blobs != nil {
			entry.FileURL = s.blobs.PublicURL(f.FilePath)
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].At.Before(entries[j].At) })
	return entries
}

// RespondedRoles reads every comment on the ticket and maps each author to its role.
func (s *ActivityService) RespondedRoles(ctx context.Context, repos repository.Repositories, ticketID string) ([]domain.Comment, map[string]domain.Role, error) {
	comments, err := repos.Comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, persist("read comments", err)
	}
	authorIDs := make([]string, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.UserID)
	}
	users, err := repos.Users.ListByIDs(ctx, dedupe(authorIDs))
	if err != nil {
		return nil, nil, persist("read users", err)
	}
	roleOf := make(map[string]domain.Role, len(users))
	for _, u := range users {
		roleOf[u.ID] = u.Role
	}
	return comments, roleOf, nil
}

// AllRequiredRolesHaveResponded reports whether every role in required authored at
// least one comment. The check is a pure scan, so repeating it is harmless.
func AllRequiredRolesHaveResponded(comments []domain.Comment, roleOf map[string]domain.Role, required []domain.Role) bool {
	seen := make(map[domain.Role]bool, len(required))
	for _, c := range comments {
		if role, ok := roleOf[c.UserID]; ok {
			seen[role] = true
		}
	}
	for _, role := range required {
		if !seen[role] {
			return false
		}
	}
	return true
}
