package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	session "github.com/adaptivelearn/go-session"
	repo "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// credentialNamespace seeds the row ids: one (profile, name) pair always
// maps to the same id.
var credentialNamespace = uuid.MustParse("6f1c9a52-3e0b-4c47-9d1e-2b8f5a7c4e10")

// CredentialModel is the Bun model for persisted credentials.
type CredentialModel struct {
	bun.BaseModel `bun:"table:credentials,alias:cred"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Profile   string     `bun:"profile,notnull,unique:credentials_profile_name" json:"profile"`
	Key       string     `bun:"name,notnull,unique:credentials_profile_name" json:"name"`
	Value     string     `bun:"value,notnull" json:"value"`
	ExpiresAt *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	UpdatedAt time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

// CredentialID returns the row id of key under profile.
func CredentialID(profile, key string) uuid.UUID {
	return uuid.NewSHA1(credentialNamespace, []byte(profile+"\x00"+key))
}

// NewCredentialsRepository returns the generic repository for credentials.
func NewCredentialsRepository(db *bun.DB) repo.Repository[*CredentialModel] {
	handlers := repo.ModelHandlers[*CredentialModel]{
		NewRecord: func() *CredentialModel {
			return &CredentialModel{}
		},
		GetID: func(record *CredentialModel) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *CredentialModel, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	}
	return repo.NewRepository(db, handlers)
}

// SQLStore implements session.CredentialStore on a Bun database. Several
// named profiles can share one table.
type SQLStore struct {
	db      *bun.DB
	repo    repo.Repository[*CredentialModel]
	profile string
	timeout time.Duration
	now     func() time.Time
	logger  session.Logger
}

var _ session.CredentialStore = &SQLStore{}

// SQLStoreOption customizes a SQLStore.
type SQLStoreOption func(*SQLStore)

// WithProfile scopes the store to a named profile.
func WithProfile(name string) SQLStoreOption {
	return func(s *SQLStore) {
		if name != "" {
			s.profile = name
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) SQLStoreOption {
	return func(s *SQLStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithQueryTimeout bounds every query.
func WithQueryTimeout(d time.Duration) SQLStoreOption {
	return func(s *SQLStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger used for read failures.
func WithLogger(logger session.Logger) SQLStoreOption {
	return func(s *SQLStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSQLStore creates a store on db. Call Migrate once before use.
func NewSQLStore(db *bun.DB, opts ...SQLStoreOption) *SQLStore {
	s := &SQLStore{
		db:      db,
		repo:    NewCredentialsRepository(db),
		profile: "default",
		timeout: 5 * time.Second,
		now:     time.Now,
		logger:  session.NopLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// OpenSQLite opens a Bun database on the SQLite driver picked by sqliteshim.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Migrate creates the credentials table when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*CredentialModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Get returns the value stored under key. Read failures are logged and
// reported as absent.
func (s *SQLStore) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	record, err := s.repo.GetByID(ctx, CredentialID(s.profile, key).String())
	if err != nil {
		if !isNotFound(err) {
			s.logger.Warn("credential read failed profile=%s key=%s: %s", s.profile, key, err)
		}
		return "", false
	}

	if record.ExpiresAt != nil && !s.now().Before(*record.ExpiresAt) {
		if err := s.remove(ctx, key); err != nil {
			s.logger.Warn("expired credential not removed profile=%s key=%s: %s", s.profile, key, err)
		}
		return "", false
	}

	return record.Value, true
}

// Set upserts value. A ttl <= 0 never expires.
func (s *SQLStore) Set(key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	now := s.now()
	id := CredentialID(s.profile, key)
	record := &CredentialModel{
		ID:        id,
		Profile:   s.profile,
		Key:       key,
		Value:     value,
		UpdatedAt: now.UTC(),
	}
	if ttl > 0 {
		exp := now.Add(ttl).UTC()
		record.ExpiresAt = &exp
	}

	_, err := s.repo.GetByID(ctx, id.String())
	switch {
	case err == nil:
		_, err = s.repo.UpdateTx(ctx, s.db, record, repo.UpdateByID(id.String()))
	case isNotFound(err):
		_, err = s.repo.CreateTx(ctx, s.db, record)
	}
	return err
}

func (s *SQLStore) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.remove(ctx, key)
}

func (s *SQLStore) remove(ctx context.Context, key string) error {
	_, err := s.repo.RawTx(ctx, s.db,
		`DELETE FROM "credentials" WHERE "id" = ? RETURNING *`,
		CredentialID(s.profile, key).String(),
	)
	if isNotFound(err) {
		return nil
	}
	return err
}

// PurgeExpired deletes every expired row of every profile.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*CredentialModel)(nil)).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Profiles lists profile names holding at least one credential.
func (s *SQLStore) Profiles(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.NewSelect().
		Model((*CredentialModel)(nil)).
		ColumnExpr("DISTINCT profile").
		Order("profile ASC").
		Scan(ctx, &names)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return names, nil
}

func isNotFound(err error) bool {
	return err != nil && (repo.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows))
}
