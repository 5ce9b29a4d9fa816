package database

import (
	"context"
	"database/sql"
	"errors"
)

// APITokenKey is the metadata key holding the bcrypt hash of the API
// token written by cmd/apitoken.
const APITokenKey = "api_token_hash"

// APITokenHash returns the stored token hash, or "" when none is set.
func (d *Database) APITokenHash(ctx context.Context) (string, error) {
	hash, err := d.GetMetadata(ctx, APITokenKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return hash, err
}

// SetAPITokenHash stores a token hash. An empty hash disables the token.
func (d *Database) SetAPITokenHash(ctx context.Context, hash string) error {
	return d.SetMetadata(ctx, APITokenKey, hash)
}
