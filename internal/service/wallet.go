package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/docstore"
	"github.com/raakeshmj/coreenginedb/internal/model"
)

// donationKeys maps a donation kind to the counter attribute it adds to.
// Unknown kinds count as cases.
var donationKeys = map[string]string{
	"bottle": "bottles",
	"bucket": "buckets",
	"case":   "cases",
}

// DonationKey returns the metakey a donation of kind is recorded under.
func DonationKey(kind string) string {
	if k, ok := donationKeys[kind]; ok {
		return k
	}
	return "cases"
}

type WalletService struct {
	docs   *docstore.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewWalletService(docs *docstore.Store, logger *slog.Logger) *WalletService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WalletService{docs: docs, logger: logger, now: time.Now}
}

// Donate appends one donation row against postID. Each row counts one
// unit; readers sum the rows per post.
func (s *WalletService) Donate(ctx context.Context, actor string, postID int64, kind string) (*docstore.Document, error) {
	if postID <= 0 {
		return nil, ErrBadRequest
	}
	opts := docstore.WriteOptions{Actor: actor, Cause: "donate"}
	return s.docs.UpdateRecords(ctx, opts, func(rs *model.Records) error {
		*rs = append(*rs, model.NewRecord(postID, model.PrefixDonate, model.CollectionPost, DonationKey(kind), 1, s.now()))
		return nil
	})
}
