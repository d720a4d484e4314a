package security

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/jim-wyatt/saas-tesa/internal/model"
)

var (
	ErrInvalidSignal  = errors.New("invalid signal")
	ErrInvalidFinding = errors.New("invalid finding")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateSignals rejects the whole batch on the first malformed signal.
// Nothing past this point checks severity ranges.
func ValidateSignals(signals []model.ThreatSignal) error {
	for i, s := range signals {
		if err := validate.Struct(s); err != nil {
			return errors.Mark(errors.Wrapf(describe(err), "signals[%d]", i), ErrInvalidSignal)
		}
		if strings.TrimSpace(s.Source) == "" || strings.TrimSpace(s.SignalType) == "" {
			return errors.Mark(errors.Newf("signals[%d]: blank source or signal_type", i), ErrInvalidSignal)
		}
	}
	return nil
}

// ValidateFindings checks canonical findings supplied by external producers.
// The severity label must agree with the severity id.
func ValidateFindings(findings []model.SecurityFinding) error {
	for i, f := range findings {
		if err := validate.Struct(f); err != nil {
			return errors.Mark(errors.Wrapf(describe(err), "findings[%d]", i), ErrInvalidFinding)
		}
		if want := model.SeverityLabel(f.SeverityID); f.Severity != want {
			return errors.Mark(
				errors.Newf("findings[%d]: severity %q does not match severity_id %d (want %q)", i, f.Severity, f.SeverityID, want),
				ErrInvalidFinding)
		}
	}
	return nil
}

// describe flattens validator output into field-level messages.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}
