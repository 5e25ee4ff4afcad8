// Package codec turns mapping ids into short codes and back.
//
// Codes are hashids: a reversible, salted encoding of the integer id padded
// to a minimum length. It is obfuscation, not cryptography. Changing the salt
// or the alphabet invalidates every code issued before.
package codec

import (
	"errors"
	"fmt"

	"smallurl/internal/domain"

	"github.com/speps/go-hashids/v2"
)

// Config holds the keying parameters. It is built once at startup and never
// mutated afterwards. The alphabet is always the stock hashids one
// (a-z, A-Z, 0-9), so codes stay compatible with other hashids ports.
type Config struct {
	Salt      string
	MinLength int
}

// Codec is the contract used by the service layer.
type Codec interface {
	// Encode derives the short code for a non-negative id.
	Encode(id int64) (string, error)

	// Decode returns the ids packed into code, or an empty slice when the code
	// does not parse under the configured salt.
	Decode(code string) []int64
}

// Hashids implements Codec.
type Hashids struct {
	h *hashids.HashID
}

// New validates cfg and builds a Hashids codec.
func New(cfg Config) (*Hashids, error) {
	if cfg.Salt == "" {
		return nil, errors.New("codec salt must not be empty")
	}
	if cfg.MinLength < 0 {
		return nil, fmt.Errorf("codec min length must be non-negative, got %d", cfg.MinLength)
	}

	data := hashids.NewData()
	data.Salt = cfg.Salt
	data.MinLength = cfg.MinLength

	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to build hashids codec: %w", err)
	}

	return &Hashids{h: h}, nil
}

// Encode derives the short code for id.
func (c *Hashids) Encode(id int64) (string, error) {
	if id < 0 {
		return "", domain.ErrInvalidID
	}

	code, err := c.h.EncodeInt64([]int64{id})
	if err != nil {
		return "", fmt.Errorf("failed to encode id %d: %w", id, err)
	}

	return code, nil
}

// Decode never fails loudly. Foreign, malformed and tampered codes all come
// back as an empty slice.
func (c *Hashids) Decode(code string) (ids []int64) {
	if code == "" {
		return []int64{}
	}

	// Input comes straight from the request path.
	defer func() {
		if recover() != nil {
			ids = []int64{}
		}
	}()

	ids, err := c.h.DecodeInt64WithError(code)
	if err != nil || len(ids) == 0 {
		return []int64{}
	}

	return ids
}
