package service

import (
	"context"
	"errors"

	"github.com/raakeshmj/coreenginedb/internal/auth"
	"github.com/raakeshmj/coreenginedb/internal/docstore"
	"github.com/raakeshmj/coreenginedb/internal/limiter"
	"github.com/raakeshmj/coreenginedb/internal/model"
)

// superadminQuery matches the distinguished superadmin record. Its
// metakey holds the superadmin's username.
var superadminQuery = model.Query{
	Prefix:     model.PrefixCore,
	Collection: model.CollectionSuperuser,
	ID:         model.Rel(1),
}

func userByName(rs model.Records, user string) *model.Record {
	return rs.Find(model.Query{
		Prefix:     model.PrefixApp,
		Collection: model.CollectionUsers,
		MetaKey:    model.KeyUsername,
		Value:      model.Str(user),
	})
}

func attribute(rs model.Records, prefix, collection string, rel int64, key string) *model.Record {
	return rs.Find(model.Query{Prefix: prefix, Collection: collection, RelID: model.Rel(rel), MetaKey: key})
}

// matchRecords checks user and pass against db.json. The superadmin record
// yields the superadmin role. With firstOnly, only the app user with
// record id 1 is considered and plain passwords are not accepted.
func matchRecords(rs model.Records, user, pass string, firstOnly bool) (string, bool) {
	if sr := rs.Find(superadminQuery); sr != nil {
		if ph := attribute(rs, model.PrefixCore, model.CollectionSuperuser, sr.RelID, model.KeyPasswordHash); ph != nil {
			if auth.ParsePasswordHash(ph.ValueString()).Check(pass) && auth.ConstantTimeEqual(sr.MetaKey, user) {
				return auth.RoleSuperadmin, true
			}
		}
	}

	var ur *model.Record
	if firstOnly {
		ur = rs.Find(model.Query{
			Prefix:     model.PrefixApp,
			Collection: model.CollectionUsers,
			MetaKey:    model.KeyUsername,
			ID:         model.Rel(1),
		})
		if ur != nil && ur.ValueString() != user {
			ur = nil
		}
	} else {
		ur = userByName(rs, user)
	}
	if ur == nil {
		return "", false
	}

	if ph := attribute(rs, model.PrefixApp, model.CollectionUsers, ur.RelID, model.KeyPasswordHash); ph != nil {
		return auth.RoleUser, auth.ParsePasswordHash(ph.ValueString()).Check(pass)
	}
	if !firstOnly {
		if plain := attribute(rs, model.PrefixApp, model.CollectionUsers, ur.RelID, model.KeyPassword); plain != nil {
			return auth.RoleUser, auth.ConstantTimeEqual(plain.ValueString(), pass)
		}
	}
	return "", false
}

// setAttribute updates the (prefix, collection, rel, key) row or appends one.
func (s *AuthService) setAttribute(rs *model.Records, prefix, collection string, rel int64, key string, value any) {
	now := s.now()
	if r := attribute(*rs, prefix, collection, rel, key); r != nil {
		r.SetValue(value, now)
		return
	}
	*rs = append(*rs, model.NewRecord(rel, prefix, collection, key, value, now))
}

// SetSuperadminPassword stores a fresh hash for the superadmin record, or
// for the first app user when no superadmin record exists. When neither
// exists and username is given, a superadmin record is created for it.
func (s *AuthService) SetSuperadminPassword(ctx context.Context, username, password string) (*docstore.Document, error) {
	if password == "" {
		return nil, ErrBadRequest
	}
	ph, err := auth.NewPasswordHash(password)
	if err != nil {
		return nil, err
	}

	opts := docstore.WriteOptions{Actor: "admin", Cause: "superadmin"}
	return s.docs.UpdateRecords(ctx, opts, func(rs *model.Records) error {
		if sr := rs.Find(superadminQuery); sr != nil {
			rel := sr.RelID
			sr.SetValue("", s.now())
			s.setAttribute(rs, model.PrefixCore, model.CollectionSuperuser, rel, model.KeyPasswordHash, ph.String())
			return nil
		}

		first := rs.Find(model.Query{
			Prefix:     model.PrefixApp,
			Collection: model.CollectionUsers,
			MetaKey:    model.KeyUsername,
			ID:         model.Rel(1),
		})
		if first != nil {
			s.setAttribute(rs, model.PrefixApp, model.CollectionUsers, first.RelID, model.KeyPasswordHash, ph.String())
			return nil
		}

		if username == "" {
			return ErrUserNotFound
		}
		sr := model.NewRecord(1, model.PrefixCore, model.CollectionSuperuser, username, "", s.now())
		sr.ID = "1"
		*rs = append(*rs, sr)
		s.setAttribute(rs, model.PrefixCore, model.CollectionSuperuser, 1, model.KeyPasswordHash, ph.String())
		return nil
	})
}

// ResetPassword replaces a user's password after checking the recovery
// code against the user's recovery hash. Legacy plain password rows are
// removed.
func (s *AuthService) ResetPassword(ctx context.Context, ip, username, code, newPassword string) (*docstore.Document, error) {
	if username == "" || code == "" || newPassword == "" {
		return nil, ErrBadRequest
	}
	if err := s.allow(ctx, ip, limiter.LoginTag(username)); err != nil {
		return nil, err
	}
	ph, err := auth.NewPasswordHash(newPassword)
	if err != nil {
		return nil, err
	}

	opts := docstore.WriteOptions{Actor: username, Cause: "forgot"}
	doc, err := s.docs.UpdateRecords(ctx, opts, func(rs *model.Records) error {
		ur := userByName(*rs, username)
		if ur == nil {
			return ErrUserNotFound
		}
		rel := ur.RelID
		rec := attribute(*rs, model.PrefixApp, model.CollectionUsers, rel, model.KeyRecovery)
		if rec == nil || !auth.ParsePasswordHash(rec.ValueString()).Check(code) {
			return ErrInvalidCode
		}
		s.setAttribute(rs, model.PrefixApp, model.CollectionUsers, rel, model.KeyPasswordHash, ph.String())
		rs.Remove(model.Query{Prefix: model.PrefixApp, Collection: model.CollectionUsers, RelID: model.Rel(rel), MetaKey: model.KeyPassword})
		return nil
	})
	if err != nil && !errors.Is(err, ErrInvalidCode) && !errors.Is(err, ErrUserNotFound) {
		s.logger.Warn("password reset failed", "user", username, "error", err)
	}
	return doc, err
}
