package emaillogs

import (
	"context"
	"fmt"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/pkg/database"
)

// Repository handles email_logs persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an email logs repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Record stores one delivery attempt.
func (r *Repository) Record(ctx context.Context, el *models.EmailLog) error {
	const q = `INSERT INTO email_logs (job_id, email_type, recipient_email, subject, status, attempt, error_message, sent_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8)
		RETURNING id, created_at`
	if err := r.db.QueryRow(ctx, q, el.JobID, el.EmailType, el.RecipientEmail, el.Subject,
		el.Status, el.Attempt, el.ErrorMessage, el.SentAt).Scan(&el.ID, &el.CreatedAt); err != nil {
		return fmt.Errorf("record email log: %w", err)
	}
	return nil
}

// ListRecent returns the newest delivery attempts, optionally filtered by status.
func (r *Repository) ListRecent(ctx context.Context, status string, limit int) ([]*models.EmailLog, error) {
	const q = `SELECT id, job_id, email_type, recipient_email, subject, status, attempt, sent_at, error_message, created_at
		FROM email_logs
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.Query(ctx, q, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list email logs: %w", err)
	}
	defer rows.Close()
	list := make([]*models.EmailLog, 0)
	for rows.Next() {
		var el models.EmailLog
		var subject, errMsg *string
		if err := rows.Scan(&el.ID, &el.JobID, &el.EmailType, &el.RecipientEmail, &subject, &el.Status,
			&el.Attempt, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
			return nil, err
		}
		if subject != nil {
			el.Subject = *subject
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}
