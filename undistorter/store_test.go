package undistorter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestDirStore(t *testing.T) {
	ctx := context.Background()
	store := NewDirStore(t.TempDir())
	src := newTestBitmap(8, 6)

	test.That(t, store.WriteImage(ctx, "pair/a.png", src), test.ShouldBeNil)
	read, err := store.ReadImage(ctx, "pair/a.png")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, read.Bounds(), test.ShouldResemble, src.Bounds())
	test.That(t, read.At(3, 4), test.ShouldResemble, src.At(3, 4))

	test.That(t, store.WriteFile(ctx, "pair/Q.txt", []byte("1 0\n")), test.ShouldBeNil)
	data, err := os.ReadFile(filepath.Join(store.Dir, "pair", "Q.txt"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "1 0\n")

	_, err = store.ReadImage(ctx, "../escape.png")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, store.WriteFile(ctx, "../escape.txt", nil), test.ShouldNotBeNil)
	_, err = store.ReadImage(ctx, "missing.png")
	test.That(t, err, test.ShouldNotBeNil)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	test.That(t, store.WriteImage(cancelled, "b.png", src), test.ShouldNotBeNil)
}
