package lead

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	contractx "github.com/Toni872/script9-sub002/agent/contract"
	notifyx "github.com/Toni872/script9-sub002/pkg/notify"
)

const (
	SourceAgent = "agent"
	StatusNew   = "new"
)

// Loose shape check only; real validation happens when sales follows up.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Lead is one captured contact/interest record. There is no update or
// delete path here: repeated submissions with the same email create
// distinct rows on purpose (no idempotency key is defined upstream).
type Lead struct {
	bun.BaseModel `bun:"table:leads,alias:l"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name" json:"name,omitempty"`
	Email     string    `bun:"email,notnull" json:"email"`
	Phone     string    `bun:"phone" json:"phone,omitempty"`
	Notes     string    `bun:"notes" json:"notes,omitempty"`
	Source    string    `bun:"source,notnull" json:"source"`
	Status    string    `bun:"status,notnull" json:"status"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Store inserts leads into the relational store and fires a best-effort
// webhook notification for each new record.
type Store struct {
	db       *bun.DB
	notifier *notifyx.Client
	now      func() time.Time
}

type Option func(*Store)

// WithNotifier attaches a webhook notifier for new leads.
func WithNotifier(notifier *notifyx.Client) Option {
	return func(s *Store) {
		s.notifier = notifier
	}
}

// WithClock overrides the store's clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(db *bun.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: database handle is required", contractx.ErrValidation)
	}
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Validate checks the caller-supplied fields. Run before any database
// access so a malformed request never opens a transaction.
func Validate(email string) error {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return fmt.Errorf("%w: email is required", contractx.ErrToolArgument)
	}
	if !emailPattern.MatchString(trimmed) {
		return fmt.Errorf("%w: email %q is malformed", contractx.ErrToolArgument, trimmed)
	}
	return nil
}

// Insert writes exactly one new lead row with source="agent" and
// status="new". Returns the stored lead.
func (s *Store) Insert(ctx context.Context, name, email, phone, notes string) (*Lead, error) {
	if err := Validate(email); err != nil {
		return nil, err
	}

	record := &Lead{
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		Phone:     strings.TrimSpace(phone),
		Notes:     strings.TrimSpace(notes),
		Source:    SourceAgent,
		Status:    StatusNew,
		CreatedAt: s.now().UTC(),
	}

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: insert lead: %v", contractx.ErrPersistence, err)
	}

	log.Info().Str("email", record.Email).Int64("lead_id", record.ID).Msg("lead captured")

	if s.notifier.Enabled() {
		if err := s.notifier.Publish(ctx, "lead.created", record); err != nil {
			// Notification is best-effort; the lead is already stored.
			log.Warn().Err(err).Int64("lead_id", record.ID).Msg("lead webhook failed")
		}
	}

	return record, nil
}
