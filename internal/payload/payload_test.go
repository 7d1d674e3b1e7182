package payload

import "testing"

func TestDetectShapes(t *testing.T) {
	ev := Detect(map[string]any{
		"checkoutForm": map[string]any{"id": "cf-1", "revision": "r1"},
		"buyer":        map[string]any{"email": "a@b.c"},
	})
	if ev.Shape != ShapeEventFeed {
		t.Fatalf("shape=%v want event_feed", ev.Shape)
	}
	if id, ok := ev.ID(); !ok || id != "cf-1" {
		t.Fatalf("id=%q ok=%v", id, ok)
	}
	if ev.Revision() != "r1" {
		t.Fatalf("revision=%q", ev.Revision())
	}

	bulk := Detect(map[string]any{"id": "cf-2", "revision": "r9", "summary": map[string]any{"totalToPay": map[string]any{"amount": "12.50"}}})
	if bulk.Shape != ShapeBulkFeed {
		t.Fatalf("shape=%v want bulk_feed", bulk.Shape)
	}
	if bulk.IDField() != "id" {
		t.Fatalf("id field=%s", bulk.IDField())
	}
	amount, ok := bulk.TotalToPay()
	if !ok || amount.String() != "12.5" {
		t.Fatalf("amount=%s ok=%v", amount, ok)
	}
}

func TestMissingIDOnEventShape(t *testing.T) {
	o := Detect(map[string]any{"checkoutForm": map[string]any{"revision": "x"}, "id": "root-id"})
	if _, ok := o.ID(); ok {
		t.Fatalf("event shape must not fall back to root id")
	}
}

func TestBoughtAt(t *testing.T) {
	o := Detect(map[string]any{"id": "1", "lineItems": []any{map[string]any{"boughtAt": "2026-01-02T03:04:05.000Z"}}})
	ts := o.BoughtAt()
	if ts == nil || ts.Day() != 2 || ts.Hour() != 3 {
		t.Fatalf("boughtAt=%v", ts)
	}
}

func TestStructureProblems(t *testing.T) {
	doc := map[string]any{
		"id":        "1",
		"buyer":     "not-an-object",
		"lineItems": map[string]any{},
		"note":      map[string]any{"text": 5.0},
		"extra":     1.0,
		"invoice":   nil,
	}
	got := StructureProblems(doc)
	if len(got) != 3 {
		t.Fatalf("problems=%v", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	o := Detect(map[string]any{"id": "1", "buyer": map[string]any{"email": "x"}})
	c := o.Clone()
	c.Buyer()["email"] = "y"
	if o.Buyer()["email"] != "x" {
		t.Fatalf("clone shares buyer map")
	}
}

func TestNumericIDIsConsistent(t *testing.T) {
	doc := map[string]any{"id": 12345.0, "status": "READY_FOR_PROCESSING"}
	if problems := StructureProblems(doc); len(problems) != 0 {
		t.Fatalf("numeric id flagged: %v", problems)
	}
	if id, ok := Detect(doc).ID(); !ok || id != "12345" {
		t.Fatalf("id=%q ok=%v", id, ok)
	}

	doc["id"] = []any{"cf-1"}
	if problems := StructureProblems(doc); len(problems) != 1 {
		t.Fatalf("problems=%v want one for id", problems)
	}
	if _, ok := Detect(doc).ID(); ok {
		t.Fatalf("array id must not resolve")
	}

	doc["id"] = "cf-1"
	doc["status"] = 3.0
	got := StructureProblems(doc)
	if len(got) != 1 || got[0] != "field status: expected string, got number" {
		t.Fatalf("problems=%v", got)
	}
}
