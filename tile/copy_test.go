package tile_test

import (
	"errors"
	"testing"

	"github.com/eak1mov/go-tilefetch/tile"
	"github.com/google/go-cmp/cmp"
)

type memTiles map[tile.ID][]byte

func (m memTiles) VisitTiles(visitor func(tile.ID, []byte) error) error {
	for tileID, tileData := range m {
		if err := visitor(tileID, tileData); err != nil {
			return err
		}
	}
	return nil
}

func (m memTiles) WriteTile(tileID tile.ID, tileData []byte) error {
	if string(tileData) == "bad" {
		return errors.New("bad tile")
	}
	m[tileID] = tileData
	return nil
}

func (m memTiles) Finalize() error { return nil }

func TestCopy(t *testing.T) {
	src := memTiles{
		{X: 0, Y: 0, Z: 0}: []byte("a"),
		{X: 1, Y: 0, Z: 1}: []byte("b"),
		{X: 1, Y: 1, Z: 1}: []byte("c"),
	}
	dst := memTiles{}
	var seen []tile.ID
	n, err := tile.Copy(dst, src, func(tileID tile.ID) { seen = append(seen, tileID) })
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if n != 3 || len(seen) != 3 {
		t.Errorf("Copy = %d tiles, %d callbacks, want 3", n, len(seen))
	}

	got, err := tile.ReadAll(dst)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if diff := cmp.Diff(map[tile.ID][]byte(src), got); diff != "" {
		t.Errorf("copied tiles mismatch (-want+got):\n%v", diff)
	}
}

func TestCopyWriteError(t *testing.T) {
	src := memTiles{{X: 0, Y: 0, Z: 0}: []byte("bad")}
	n, err := tile.Copy(memTiles{}, src, nil)
	if err == nil {
		t.Fatal("Copy succeeded, want error")
	}
	if n != 0 {
		t.Errorf("Copy = %d tiles, want 0", n)
	}
}
