// Package hashid converts integer primary keys to and from the opaque,
// entity-prefixed identifiers exposed outside the service.
package hashid

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/speps/go-hashids/v2"
)

// ErrNotFound is returned when an identifier does not resolve to a live
// record. Decode failures are reported as ErrNotFound too.
var ErrNotFound = errors.New("record not found")

const DefaultMinLength = 8

type Codec struct {
	h *hashids.HashID
}

func New(salt string, minLength int) (*Codec, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = minLength

	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, err
	}
	return &Codec{h: h}, nil
}

// Encode returns the hashid for id, or "" for negative ids, which never
// occur as primary keys.
func (c *Codec) Encode(id int64) string {
	s, err := c.h.EncodeInt64([]int64{id})
	if err != nil {
		return ""
	}
	return s
}

// Decode returns the integers packed in s, or an empty slice when s is
// not a valid hashid for this codec.
func (c *Codec) Decode(s string) []int64 {
	if s == "" {
		return []int64{}
	}
	ids, err := c.h.DecodeInt64WithError(s)
	if err != nil || ids == nil {
		return []int64{}
	}
	return ids
}

func (c *Codec) EncodePrefixed(prefix string, id int64) string {
	return prefix + c.Encode(id)
}

// Resolve maps an external identifier to a primary key. Values without
// prefix are taken as raw primary keys; prefixed values are decoded and
// the first integer wins.
func (c *Codec) Resolve(prefix, value string) (int64, error) {
	if !strings.HasPrefix(value, prefix) {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, ErrNotFound
		}
		return id, nil
	}

	ids := c.Decode(strings.TrimPrefix(value, prefix))
	if len(ids) == 0 {
		return 0, ErrNotFound
	}
	return ids[0], nil
}

// FindOrFail resolves value and loads the record with find. A missing
// row is reported as ErrNotFound; other errors pass through.
func FindOrFail[T any](ctx context.Context, c *Codec, prefix, value string, find func(context.Context, int64) (T, error)) (T, error) {
	var zero T

	id, err := c.Resolve(prefix, value)
	if err != nil {
		return zero, err
	}

	record, err := find(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return record, nil
}
