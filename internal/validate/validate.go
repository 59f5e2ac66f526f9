package validate

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"shopeasy/internal/domain"
)

var (
	reEmail    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reQ        = regexp.MustCompile(`^[A-Za-z0-9 _'\\-]{1,50}$`)
	reID       = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reCategory = regexp.MustCompile(`^[a-z]{1,32}$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 50 {
		return "", false
	}
	return s, reEmail.MatchString(s)
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

// Qty parses a quantity field. Anything unparsable is 0, which callers treat as "remove".
func Qty(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ID validates a simple resource identifier (order ids, client ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// ProductID parses a positive catalog product id.
func ProductID(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil && n > 0
}

// Category accepts "" (any) or a lowercase category slug.
func Category(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s == "" || reCategory.MatchString(s)
}

// Bracket accepts only the fixed price bracket literals.
func Bracket(s string) (domain.PriceBracket, bool) {
	return domain.ParsePriceBracket(s)
}

// Name validates a displayable name with a reasonable max length.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 40 {
		return "", false
	}
	return s, true
}

// Password enforces a simple length window for login checks.
func Password(s string) bool {
	l := len(s)
	return l >= 6 && l <= 72
}

var (
	structOnce sync.Once
	structV    *validator.Validate
)

// Struct checks the `validate` tags of a decoded request body.
func Struct(v any) error {
	structOnce.Do(func() {
		structV = validator.New(validator.WithRequiredStructEnabled())
		_ = structV.RegisterValidation("bracket", func(fl validator.FieldLevel) bool {
			_, ok := domain.ParsePriceBracket(fl.Field().String())
			return ok
		})
		_ = structV.RegisterValidation("orderstatus", func(fl validator.FieldLevel) bool {
			return domain.OrderStatus(fl.Field().String()).Valid()
		})
	})
	return structV.Struct(v)
}

// FieldErrors flattens a validator error into field -> failed tag.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, fe := range verrs {
		out[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return out
}
