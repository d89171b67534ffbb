package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"ai-docqa-be/pkg/rag/ragerr"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest runs struct tag validation and reports failures as invalid input
func ValidateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ragerr.Wrap(ragerr.KindInvalidInput, "validate", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return ragerr.Wrap(ragerr.KindInvalidInput, "validate", errors.New(strings.Join(msgs, "; ")))
}
