package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pithecene-io/lighthouse/arweave"
	"github.com/pithecene-io/lighthouse/assets"
	"github.com/pithecene-io/lighthouse/cache"
	"github.com/pithecene-io/lighthouse/runlog"
)

const testGateway = "https://gw.example"

var errRateLimit = &arweave.StatusError{Method: "POST", Path: "/tx", Code: 429}

// fakeNetwork records every transaction and fails uploads on demand.
type fakeNetwork struct {
	mu sync.Mutex

	price     *big.Int
	balance   *big.Int
	createErr error
	// uploadErr returns the error for the n-th upload of tx's data (from 0).
	uploadErr func(tx *arweave.Transaction, n int) error

	seq        int
	priceSizes []int64
	created    []*arweave.Transaction
	submitted  []*arweave.Transaction
	uploads    map[string]int
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		price:   big.NewInt(100),
		balance: big.NewInt(1_000_000),
		uploads: make(map[string]int),
	}
}

func (f *fakeNetwork) CreateTransaction(_ context.Context, data []byte, _ *arweave.Wallet) (*arweave.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	tx := arweave.NewTransaction(data, "owner", "anchor", big.NewInt(1))
	f.created = append(f.created, tx)
	return tx, nil
}

func (f *fakeNetwork) Sign(tx *arweave.Transaction, _ *arweave.Wallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	tx.ID = fmt.Sprintf("tx-%d", f.seq)
	tx.Signature = "sig"
	return nil
}

func (f *fakeNetwork) Uploader(tx *arweave.Transaction) (arweave.ChunkUploader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := string(tx.Data)
	n := f.uploads[key]
	f.uploads[key]++
	var err error
	if f.uploadErr != nil {
		err = f.uploadErr(tx, n)
	}
	return &fakeUploader{net: f, tx: tx, err: err}, nil
}

func (f *fakeNetwork) Price(_ context.Context, size int64) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceSizes = append(f.priceSizes, size)
	return new(big.Int).Set(f.price), nil
}

func (f *fakeNetwork) Balance(context.Context, string) (*big.Int, error) {
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeNetwork) Address(*arweave.Wallet) (string, error) {
	return "wallet-address", nil
}

// submittedOfType returns the submitted transactions tagged Type=typ.
func (f *fakeNetwork) submittedOfType(typ string) []*arweave.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*arweave.Transaction
	for _, tx := range f.submitted {
		if v, _ := tx.TagValue(TagType); v == typ {
			out = append(out, tx)
		}
	}
	return out
}

type fakeUploader struct {
	net  *fakeNetwork
	tx   *arweave.Transaction
	err  error
	done bool
}

func (u *fakeUploader) UploadChunk(context.Context) error {
	if u.err != nil {
		return u.err
	}
	u.done = true
	u.net.mu.Lock()
	u.net.submitted = append(u.net.submitted, u.tx)
	u.net.mu.Unlock()
	return nil
}

func (u *fakeUploader) IsComplete() bool {
	return u.done
}

// failData fails every upload of data with err.
func failData(data string, err error) func(*arweave.Transaction, int) error {
	return func(tx *arweave.Transaction, _ int) error {
		if string(tx.Data) == data {
			return err
		}
		return nil
	}
}

// recordingSleep records requested delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

// fixture is a collection directory with its cache and log files.
type fixture struct {
	dir       string
	assets    *assets.DirStore
	cachePath string
	logPath   string
}

func imageData(i int) string {
	return fmt.Sprintf("image-bytes-%d", i)
}

// newFixture creates n assets named 1..n with images i.png.
func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "assets")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= n; i++ {
		meta := fmt.Sprintf(`{"name":"#%d","image":"%d.png"}`, i, i)
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("%d.json", i)), []byte(meta), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("%d.png", i)), []byte(imageData(i)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return &fixture{
		dir:       dir,
		assets:    assets.NewDirStore(dir),
		cachePath: filepath.Join(root, cache.DefaultFile),
		logPath:   filepath.Join(root, runlog.DefaultFile),
	}
}

func alwaysConfirm() Confirmer {
	return ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
}

func (fx *fixture) pipeline(t *testing.T, net *fakeNetwork, c *cache.Store, sleep SleepFunc) *Pipeline {
	t.Helper()
	if sleep == nil {
		sleep = (&recordingSleep{}).sleep
	}
	p, err := New(Config{
		Network:   net,
		Gateway:   testGateway,
		Assets:    fx.assets,
		Cache:     c,
		Log:       runlog.New(fx.logPath),
		Confirmer: alwaysConfirm(),
		Sleep:     sleep,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// readLogElements returns the top-level elements of logs.json, or nil
// when it does not exist.
func readLogElements(t *testing.T, path string) []json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
	return elems
}

// readLogEntries decodes a logs.json written by a single run: the flat
// batch of entries.
func readLogEntries(t *testing.T, path string) []runlog.Entry {
	t.Helper()
	elems := readLogElements(t, path)
	entries := make([]runlog.Entry, len(elems))
	for i, raw := range elems {
		if err := json.Unmarshal(raw, &entries[i]); err != nil {
			t.Fatalf("decode log entry %d: %v", i, err)
		}
	}
	return entries
}

// seedCache marks names as already published in both lists of c.
func seedCache(t *testing.T, c *cache.Store, imageTx, metaTx func(name string) string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := c.Record(cache.Images, cache.Entry{Name: name + ".png", TxID: imageTx(name)}); err != nil {
			t.Fatal(err)
		}
		if err := c.Record(cache.Metadata, cache.Entry{Name: name, TxID: metaTx(name)}); err != nil {
			t.Fatal(err)
		}
	}
}

func prefixed(p string) func(string) string {
	return func(name string) string { return p + name }
}
