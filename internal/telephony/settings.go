package telephony

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	KeyTwilioSID    = "twilio_sid"
	KeyTwilioToken  = "twilio_token"
	KeyTwilioPhone  = "twilio_phone"
	KeySipgateToken = "sipgate_token"
	KeyLexoffice    = "lexoffice_key"
)

// Keys lists every accepted setting in a stable order.
var Keys = []string{KeyTwilioSID, KeyTwilioToken, KeyTwilioPhone, KeySipgateToken, KeyLexoffice}

type Store interface {
	All(ctx context.Context) (map[string]string, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, values map[string]string) error
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.Query(ctx, "SELECT key, value FROM platform_settings")
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *PGStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(ctx, "SELECT value FROM platform_settings WHERE key = $1", key).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting: %w", err)
	}
	return v, true, nil
}

func (s *PGStore) Put(ctx context.Context, values map[string]string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for k, v := range values {
		_, err := tx.Exec(ctx,
			`INSERT INTO platform_settings (key, value, updated_at) VALUES ($1, $2, now())
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, k, v)
		if err != nil {
			return fmt.Errorf("upsert setting %s: %w", k, err)
		}
	}
	return tx.Commit(ctx)
}

// Cipher protects credentials at rest.
type Cipher interface {
	EncryptString(s string) (string, error)
	DecryptString(s string) (string, error)
}

type Service struct {
	store  Store
	cipher Cipher
}

func NewService(store Store, cipher Cipher) *Service {
	return &Service{store: store, cipher: cipher}
}

type TwilioStatus struct {
	Configured  bool   `json:"configured"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type ProviderStatus struct {
	Configured bool `json:"configured"`
}

type Status struct {
	Twilio    TwilioStatus   `json:"twilio"`
	Sipgate   ProviderStatus `json:"sipgate"`
	Lexoffice ProviderStatus `json:"lexoffice"`
}

// Status reports which integrations are configured without exposing secrets.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	values, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	st := &Status{
		Twilio:    TwilioStatus{Configured: values[KeyTwilioSID] != "" && values[KeyTwilioToken] != ""},
		Sipgate:   ProviderStatus{Configured: values[KeySipgateToken] != ""},
		Lexoffice: ProviderStatus{Configured: values[KeyLexoffice] != ""},
	}
	if enc := values[KeyTwilioPhone]; enc != "" {
		phone, err := s.cipher.DecryptString(enc)
		if err != nil {
			slog.Warn("decrypt twilio phone failed", "error", err)
		} else {
			st.Twilio.PhoneNumber = phone
		}
	}
	return st, nil
}

// Update stores the provided values encrypted; keys absent from the map stay untouched.
func (s *Service) Update(ctx context.Context, values map[string]string) (*Status, error) {
	enc := map[string]string{}
	for _, k := range Keys {
		v, ok := values[k]
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		sealed, err := s.cipher.EncryptString(v)
		if err != nil {
			return nil, fmt.Errorf("encrypt %s: %w", k, err)
		}
		enc[k] = sealed
	}
	if len(enc) > 0 {
		if err := s.store.Put(ctx, enc); err != nil {
			return nil, err
		}
	}
	return s.Status(ctx)
}

// LexofficeKey returns the decrypted Lexoffice API key or "" when unset.
func (s *Service) LexofficeKey(ctx context.Context) (string, error) {
	enc, ok, err := s.store.Get(ctx, KeyLexoffice)
	if err != nil || !ok {
		return "", err
	}
	key, err := s.cipher.DecryptString(enc)
	if err != nil {
		return "", fmt.Errorf("decrypt lexoffice key: %w", err)
	}
	return key, nil
}
