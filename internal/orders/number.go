package orders

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

const (
	orderNumberDateLayout = "060102"
	orderNumberSeqDigits  = 4
	orderNumberSeqMax     = 9999
)

// errOrderNumberTaken marks a lost race on the daily sequence; the whole
// creation transaction is retried with a fresh number.
var errOrderNumberTaken = errors.New("order number already taken")

// OrderNumberDayPrefix is the shared prefix of every order number issued on
// the UTC day of at, e.g. AC250617.
func OrderNumberDayPrefix(prefix string, at time.Time) string {
	return prefix + at.UTC().Format(orderNumberDateLayout)
}

// FormatOrderNumber renders prefix + YYMMDD + zero-padded sequence.
func FormatOrderNumber(prefix string, at time.Time, seq int) string {
	return fmt.Sprintf("%s%0*d", OrderNumberDayPrefix(prefix, at), orderNumberSeqDigits, seq)
}

// nextOrderSequence derives the sequence following last, the highest number
// already issued for dayPrefix ("" when none).
func nextOrderSequence(dayPrefix, last string) (int, error) {
	if last == "" {
		return 1, nil
	}
	suffix := strings.TrimPrefix(last, dayPrefix)
	if suffix == last || len(suffix) != orderNumberSeqDigits {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("malformed order number %q", last))
	}
	seq, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("malformed order number %q", last))
	}
	if seq >= orderNumberSeqMax {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "daily order number sequence exhausted").
			WithReason(pkgerrors.ReasonOrderNumberExhausted).
			WithDetails(map[string]any{"day": dayPrefix})
	}
	return seq + 1, nil
}

// IsOrderNumber reports whether value has the shape of an issued order
// number: two uppercase letters followed by ten digits.
func IsOrderNumber(value string) bool {
	if len(value) != 2+len(orderNumberDateLayout)+orderNumberSeqDigits {
		return false
	}
	for i, r := range value {
		if i < 2 {
			if r < 'A' || r > 'Z' {
				return false
			}
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
