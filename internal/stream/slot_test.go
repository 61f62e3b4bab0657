package stream

import (
	"bytes"
	"testing"
)

func msg(id byte) [][]byte {
	return [][]byte{{id}}
}

func TestLatestSlotLatestWins(t *testing.T) {
	slot := newLatestSlot()

	slot.Put(msg(1))
	slot.Put(msg(2))
	slot.Put(msg(3))

	got, ok := slot.Take()
	if !ok {
		t.Fatal("expected a buffered message")
	}
	if !bytes.Equal(got[0], []byte{3}) {
		t.Fatalf("expected newest message, got %v", got)
	}

	if _, ok := slot.Take(); ok {
		t.Fatal("slot should be empty after take")
	}
}

func TestLatestSlotTakeEmpty(t *testing.T) {
	slot := newLatestSlot()
	if _, ok := slot.Take(); ok {
		t.Fatal("fresh slot should be empty")
	}
}

func TestLatestSlotPutReportsDrop(t *testing.T) {
	slot := newLatestSlot()

	if slot.Put(msg(1)) {
		t.Fatal("first put should not drop")
	}
	if !slot.Put(msg(2)) {
		t.Fatal("second put should drop the unconsumed message")
	}

	slot.Take()
	if slot.Put(msg(3)) {
		t.Fatal("put after take should not drop")
	}
}
