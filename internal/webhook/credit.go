package webhook

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/docstore"
	"github.com/raakeshmj/coreenginedb/internal/events"
	"github.com/raakeshmj/coreenginedb/internal/model"
)

// Crediter applies verified top-up events to db.json.
type Crediter struct {
	docs      *docstore.Store
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewCrediter(docs *docstore.Store, publisher events.Publisher, logger *slog.Logger) *Crediter {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crediter{docs: docs, publisher: publisher, logger: logger, now: time.Now}
}

// Credit is the outcome of Apply.
type Credit struct {
	RelID   int64
	Balance float64
	Doc     *docstore.Document
}

// Apply finds the user's entity, adds the amount to its wallet balance
// (creating the balance row if needed) and appends one ledger row. The
// write is a system update and carries no caller precondition.
func (c *Crediter) Apply(ctx context.Context, ev Event) (*Credit, error) {
	var credit Credit
	doc, err := c.docs.UpdateRecords(ctx, docstore.WriteOptions{Actor: ev.Username, Cause: "webhook"}, func(rs *model.Records) error {
		user := rs.Find(model.Query{
			Prefix:     model.PrefixApp,
			Collection: model.CollectionUsers,
			MetaKey:    model.KeyUsername,
			Value:      model.Str(ev.Username),
		})
		if user == nil {
			return ErrUserNotFound
		}
		rel := user.RelID
		now := c.now()

		bal := rs.Find(model.Query{
			Prefix:     model.PrefixWallet,
			Collection: model.CollectionBalance,
			MetaKey:    model.KeyAmount,
			RelID:      model.Rel(rel),
		})
		var balance float64
		if bal != nil {
			cents := int64(math.Round(bal.ValueNumber()*100)) + ev.AmountCents
			balance = float64(cents) / 100
			bal.SetValue(balance, now)
		} else {
			balance = ev.Amount()
			*rs = append(*rs, model.NewRecord(rel, model.PrefixWallet, model.CollectionBalance, model.KeyAmount, balance, now))
		}
		*rs = append(*rs, model.NewRecord(rel, model.PrefixWallet, model.CollectionLedger, model.KeyTopup, ev.Amount(), now))

		credit.RelID = rel
		credit.Balance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	credit.Doc = doc

	evt := events.WalletCredited{Username: ev.Username, RelID: credit.RelID, Amount: ev.Amount(), Balance: credit.Balance}
	if err := c.publisher.Publish(ctx, events.TopicWalletCredited, evt); err != nil {
		c.logger.Warn("publish wallet credit failed", "user", ev.Username, "error", err)
	}
	return &credit, nil
}
