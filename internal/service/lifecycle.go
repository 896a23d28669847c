package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jondumad/EcoPulse-Backend/internal/events"
	"github.com/jondumad/EcoPulse-Backend/internal/models"
	"github.com/jondumad/EcoPulse-Backend/internal/repository"
	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
)

// txRunner opens the atomic units every lifecycle operation runs in.
type txRunner interface {
	RunInTx(ctx context.Context, fn func(repository.Tx) error) error
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, *models.Outbox) {}

func emitterOrNop(e events.Emitter) events.Emitter {
	if e == nil {
		return nopEmitter{}
	}
	return e
}

func clockOrNow(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

// lookupErr maps a store miss to notFound and anything else to Internal.
func lookupErr(err error, notFound *appErrors.Error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(notFound, "")
	}
	return appErrors.Internal(err, msg)
}

// txErr passes domain errors through and wraps store failures.
func txErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Internal(err, msg)
}

func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}

// newValidator returns a validator with the lifecycle custom tags.
func newValidator() *validator.Validate {
	v := validator.New()
	registerLifecycleValidations(v)
	return v
}

func registerLifecycleValidations(v *validator.Validate) {
	_ = v.RegisterValidation("review_decision", func(fl validator.FieldLevel) bool {
		status := models.AttendanceStatus(fl.Field().String())
		return status == models.AttendanceStatusVerified || status == models.AttendanceStatusRejected
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

func validationErr(err error, msg string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, msg)
}
