// Package qrtoken issues and verifies the short-lived signed tokens encoded in
// mission check-in QR codes.
package qrtoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
)

const (
	// PurposeAttendance tags tokens that may only be used for check-in.
	PurposeAttendance = "attendance_qr"
	// DefaultTTL is the fixed validity window of a check-in token.
	DefaultTTL = 5 * time.Minute
)

// Claims is the payload embedded in a check-in token.
type Claims struct {
	MissionID string `json:"missionId"`
	IssuerID  string `json:"issuerId"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

// Issued describes a freshly signed token.
type Issued struct {
	Token     string    `json:"token"`
	MissionID string    `json:"mission_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service signs and verifies check-in tokens with an HMAC secret.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Service. A non-positive ttl falls back to DefaultTTL.
func New(secret string, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a token binding missionID to issuerID.
func (s *Service) Issue(missionID, issuerID string) (*Issued, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.ttl)
	claims := Claims{
		MissionID: missionID,
		IssuerID:  issuerID,
		Purpose:   PurposeAttendance,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   missionID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign check-in token")
	}
	return &Issued{Token: signed, MissionID: missionID, ExpiresAt: expiresAt}, nil
}

// Verify returns the embedded claims or one of ErrTokenExpired,
// ErrTokenMalformed and ErrWrongPurpose.
func (s *Service) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrTokenMalformed, "QR token is required")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrTokenExpired.Code, appErrors.ErrTokenExpired.Status, appErrors.ErrTokenExpired.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTokenMalformed.Code, appErrors.ErrTokenMalformed.Status, appErrors.ErrTokenMalformed.Message)
	}
	if !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrTokenMalformed, "")
	}
	if claims.Purpose != PurposeAttendance {
		return nil, appErrors.Clone(appErrors.ErrWrongPurpose, "")
	}
	if claims.MissionID == "" {
		return nil, appErrors.Clone(appErrors.ErrTokenMalformed, "QR token has no mission")
	}
	return claims, nil
}
