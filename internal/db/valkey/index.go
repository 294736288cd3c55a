package valkey

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ragchat/internal/db"
)

// DropIndex removes an FT index, then deletes the hashes under its prefix.
// valkey-search has no DD flag, so documents are removed with SCAN + DEL.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isValkeyErr(err, "unknown index name") || isValkeyErr(err, "not found") {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}

	keys, err := s.Scan(ctx, indexToKeyPrefix(name)+"*")
	if err != nil {
		return fmt.Errorf("scan documents of %s: %w", name, err)
	}
	if err := s.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete documents of %s: %w", name, err)
	}
	return nil
}
