package webhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/raakeshmj/coreenginedb/internal/auth"
	"github.com/raakeshmj/coreenginedb/internal/blob/memory"
	"github.com/raakeshmj/coreenginedb/internal/docstore"
	"github.com/raakeshmj/coreenginedb/internal/events"
	"github.com/raakeshmj/coreenginedb/internal/model"
)

const testSecret = "whsec_test"

func sign(t *testing.T, ts, body string) string {
	t.Helper()
	sig, err := auth.HMACHex(testSecret, ts+"."+body)
	if err != nil {
		t.Fatal(err)
	}
	return "t=" + ts + ",v1=" + sig
}

func TestParseSignature(t *testing.T) {
	sig := ParseSignature("t=1700000000, v1=abc,v0=old,v1=def,junk")
	if sig.Timestamp != "1700000000" {
		t.Errorf("timestamp %q", sig.Timestamp)
	}
	if len(sig.V1) != 2 || sig.V1[0] != "abc" || sig.V1[1] != "def" {
		t.Errorf("v1 values %v", sig.V1)
	}
}

func TestVerify(t *testing.T) {
	body := `{"data":{"object":{"amount_total":500}}}`
	v := NewVerifier(testSecret)

	if err := v.Verify([]byte(body), sign(t, "1700000000", body)); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}
	for name, header := range map[string]string{
		"Tampered":    sign(t, "1700000000", body+" "),
		"WrongTime":   "t=1700000001," + sign(t, "1700000000", body)[len("t=1700000000,"):],
		"NoTimestamp": "v1=deadbeef",
		"Empty":       "",
	} {
		if err := v.Verify([]byte(body), header); err != ErrInvalidSignature {
			t.Errorf("%s: expected ErrInvalidSignature, got %v", name, err)
		}
	}

	if err := NewVerifier("").Verify([]byte(body), sign(t, "1", body)); err != ErrInvalidSignature {
		t.Errorf("unset secret should reject, got %v", err)
	}
}

func TestVerify_AnyV1Matches(t *testing.T) {
	body := `{}`
	good := sign(t, "42", body)
	header := "t=42,v1=0000," + good[len("t=42,"):]
	if err := NewVerifier(testSecret).Verify([]byte(body), header); err != nil {
		t.Errorf("rotated signature rejected: %v", err)
	}
}

func TestParseEvent(t *testing.T) {
	for _, tc := range []struct {
		name  string
		body  string
		user  string
		cents int64
		err   error
	}{
		{"AmountTotal", `{"data":{"object":{"metadata":{"username":"alice"},"amount_total":1250}}}`, "alice", 1250, nil},
		{"AmountFallback", `{"data":{"object":{"metadata":{"username":"bob"},"amount":300}}}`, "bob", 300, nil},
		{"NoUser", `{"data":{"object":{"amount_total":100}}}`, "", 0, ErrMissingFields},
		{"ZeroAmount", `{"data":{"object":{"metadata":{"username":"a"},"amount_total":0}}}`, "", 0, ErrMissingFields},
		{"NotJSON", `nope`, "", 0, ErrMissingFields},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tc.body))
			if err != tc.err {
				t.Fatalf("Expected %v, got %v", tc.err, err)
			}
			if ev.Username != tc.user || ev.AmountCents != tc.cents {
				t.Errorf("got %+v", ev)
			}
		})
	}
}

func seedUsers(t *testing.T, docs *docstore.Store, extra string) {
	t.Helper()
	cur, _ := docs.Read(context.Background(), docstore.RecordsDoc)
	body := `[{"id":1,"relid":7,"prefix":"app_","collection":"users","metakey":"username","metavalue":"alice"}` + extra + `]`
	if _, err := docs.Write(context.Background(), docstore.RecordsDoc, cur.ETag, []byte(body), docstore.WriteOptions{}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func TestApply_CreatesBalanceAndLedger(t *testing.T) {
	docs := docstore.New(memory.New(), nil, nil)
	seedUsers(t, docs, "")
	rec := &events.Recorder{}
	c := NewCrediter(docs, rec, nil)

	credit, err := c.Apply(context.Background(), Event{Username: "alice", AmountCents: 1250})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if credit.RelID != 7 || credit.Balance != 12.5 {
		t.Errorf("unexpected credit %+v", credit)
	}

	rs, _, _ := docs.Records(context.Background())
	bal := rs.Find(model.Query{Prefix: model.PrefixWallet, Collection: model.CollectionBalance, RelID: model.Rel(7)})
	if bal == nil || bal.ValueNumber() != 12.5 {
		t.Fatalf("balance row missing or wrong: %+v", bal)
	}
	if n := len(rs.Filter(model.Query{Prefix: model.PrefixWallet, Collection: model.CollectionLedger, MetaKey: model.KeyTopup})); n != 1 {
		t.Errorf("expected one ledger row, got %d", n)
	}
	if evts := rec.Events(); len(evts) != 1 || evts[0].Topic != events.TopicWalletCredited {
		t.Errorf("expected one wallet event, got %+v", evts)
	}
}

func TestApply_IncrementsExistingBalance(t *testing.T) {
	docs := docstore.New(memory.New(), nil, nil)
	seedUsers(t, docs, `,{"id":2,"relid":7,"prefix":"wallet_","collection":"balance","metakey":"amount","metavalue":0.1}`)
	c := NewCrediter(docs, nil, nil)

	credit, err := c.Apply(context.Background(), Event{Username: "alice", AmountCents: 20})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if credit.Balance != 0.3 {
		t.Errorf("Expected 0.3, got %v", credit.Balance)
	}

	rs, _, _ := docs.Records(context.Background())
	if n := len(rs.Filter(model.Query{Prefix: model.PrefixWallet, Collection: model.CollectionBalance})); n != 1 {
		t.Errorf("balance row duplicated: %d", n)
	}
	var raw []map[string]any
	json.Unmarshal(credit.Doc.Body, &raw)
	if raw[1]["metavalue"] != 0.3 {
		t.Errorf("stored balance %v", raw[1]["metavalue"])
	}
}

func TestApply_UnknownUser(t *testing.T) {
	mem := memory.New()
	docs := docstore.New(mem, nil, nil)
	seedUsers(t, docs, "")
	before, _ := docs.Read(context.Background(), docstore.RecordsDoc)

	if _, err := NewCrediter(docs, nil, nil).Apply(context.Background(), Event{Username: "mallory", AmountCents: 100}); err != ErrUserNotFound {
		t.Fatalf("Expected ErrUserNotFound, got %v", err)
	}
	after, _ := docs.Read(context.Background(), docstore.RecordsDoc)
	if before.ETag != after.ETag {
		t.Error("failed credit changed db.json")
	}
}
