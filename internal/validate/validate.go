package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	reQ       = regexp.MustCompile(`^[A-Za-z0-9 _'.\\-]{1,50}$`)
	reID      = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,96}$`)
	reBarcode = regexp.MustCompile(`^[0-9A-Za-z-]{4,32}$`)

	v = validator.New(validator.WithRequiredStructEnabled())
)

var ErrInvalid = errors.New("invalid input")

// Struct runs the `validate` tags of a domain value and flattens the
// failures into one ErrInvalid-wrapped message.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Q validates a search query: trims, enforces allowed characters and max length
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s, reQ.MatchString(s)
}

// ID validates a record or vendor identifier, including offline sale ids.
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

func Barcode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reBarcode.MatchString(s)
}
