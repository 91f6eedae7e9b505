// Package bind decodes an HTTP request body into a struct and validates it.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/validate"
)

// ErrEmptyBody is returned when a JSON body was expected but none was sent.
var ErrEmptyBody = errors.New("request body is empty")

func maxBodyBytes() int64 {
	n, err := strconv.ParseInt(config.Get("MAX_BODY_BYTES", "1048576"), 10, 64)
	if err != nil || n <= 0 {
		return 1 << 20
	}
	return n
}

// JSON decodes r.Body into dest and runs validation.
// It returns (errs, nil) on validation failures and (nil, err) when the body
// is missing, malformed or larger than MAX_BODY_BYTES.
func JSON(r *http.Request, dest any) (map[string]string, error) {
	if r.Body == nil {
		return nil, ErrEmptyBody
	}
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes())

	if err := json.NewDecoder(body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return nil, fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return nil, ErrEmptyBody
		default:
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}

	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}
