package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/forecast"
	"github.com/dvloznov/smartspend/internal/identity"
	"github.com/dvloznov/smartspend/internal/normalize"
	"github.com/dvloznov/smartspend/internal/receipts"
	"github.com/dvloznov/smartspend/internal/store"
	"github.com/dvloznov/smartspend/internal/store/sqlite"
)

const statement = `Date,Description,Amount
01/01/2025,ACME LTD SALARY,2500.00
03/01/2025,TESCO STORES,-54.20
10/01/2025,TFL TRAVEL,-32.00
01/02/2025,ACME LTD SALARY,2500.00
04/02/2025,TESCO STORES,-61.75
12/02/2025,NETFLIX.COM,-10.99
01/03/2025,ACME LTD SALARY,2500.00
05/03/2025,TESCO STORES,-48.10
07/03/2025,CORNER CAFE,-7.40
`

type fakeOCR struct {
	text string
	err  error
	mime string
}

func (f *fakeOCR) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	f.mime = mimeType
	return f.text, f.err
}

type fakeArchive struct {
	objects map[string][]byte
	err     error
}

func (f *fakeArchive) Archive(ctx context.Context, userID, filename string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	uri := "gs://receipts/" + userID + "/" + filename
	f.objects[uri] = data
	return uri, nil
}

func (f *fakeArchive) Fetch(ctx context.Context, uri string) ([]byte, error) {
	data, ok := f.objects[uri]
	if !ok {
		return nil, errors.New("no such object")
	}
	return data, nil
}

func newTestService(t *testing.T, d Deps) *Service {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "smartspend.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	d.Store = st
	return New(d)
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

var (
	alice = identity.New("alice")
	bob   = identity.New("bob")
)

func importStatement(t *testing.T, s *Service, id identity.Identity) {
	t.Helper()
	_, err := s.ImportCSV(testCtx(t), id, strings.NewReader(statement), "statement.csv", true)
	require.NoError(t, err)
}

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestImportCSV(t *testing.T) {
	s := newTestService(t, Deps{})
	ctx := testCtx(t)

	res, err := s.ImportCSV(ctx, alice, strings.NewReader(statement), "statement.csv", true)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Imported)
	assert.Equal(t, 0, res.Dropped)
	assert.Equal(t, 3, res.ByCategory[domain.CategoryIncome])
	assert.Equal(t, 3, res.ByCategory["Groceries"])

	txs, err := s.Transactions(ctx, alice)
	require.NoError(t, err)
	require.Len(t, txs, 9)
	assert.Equal(t, "ACME LTD SALARY", txs[0].Description)

	runs, err := s.ImportRuns(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.ImportSucceeded, runs[0].Status)
	assert.Equal(t, 9, runs[0].Imported)
}

func TestImportCSV_ReplaceAndIsolation(t *testing.T) {
	s := newTestService(t, Deps{})
	ctx := testCtx(t)
	importStatement(t, s, alice)
	importStatement(t, s, bob)

	_, err := s.ImportCSV(ctx, alice, strings.NewReader("Date,Description,Amount\n02/04/2025,ALDI,-20.00\n"), "april.csv", true)
	require.NoError(t, err)

	txs, err := s.Transactions(ctx, alice)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "ALDI", txs[0].Description)

	bobs, err := s.Transactions(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, bobs, 9)
}

func TestImportCSV_SchemaErrorLeavesDataAndRecordsFailure(t *testing.T) {
	s := newTestService(t, Deps{})
	ctx := testCtx(t)
	importStatement(t, s, alice)

	_, err := s.ImportCSV(ctx, alice, strings.NewReader("Foo,Bar\n1,2\n"), "bad.csv", true)
	var schemaErr *normalize.SchemaError
	require.ErrorAs(t, err, &schemaErr)

	txs, err := s.Transactions(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, txs, 9)

	runs, err := s.ImportRuns(ctx, alice, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, domain.ImportFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].ErrorMessage)
}

func TestMissingIdentity(t *testing.T) {
	s := newTestService(t, Deps{})
	ctx := testCtx(t)
	anon := identity.New("  ")

	_, err := s.ImportCSV(ctx, anon, strings.NewReader(statement), "x.csv", false)
	assert.ErrorIs(t, err, identity.ErrMissingIdentity)
	_, err = s.Transactions(ctx, anon)
	assert.ErrorIs(t, err, identity.ErrMissingIdentity)
	_, err = s.Dashboard(ctx, anon)
	assert.ErrorIs(t, err, identity.ErrMissingIdentity)
	_, err = s.Receipts(ctx, anon, 1)
	assert.ErrorIs(t, err, identity.ErrMissingIdentity)
}

func TestDashboardAndAnalytics(t *testing.T) {
	s := newTestService(t, Deps{})
	ctx := testCtx(t)
	importStatement(t, s, alice)

	sum, err := s.Dashboard(ctx, alice)
	require.NoError(t, err)
	assert.InDelta(t, 7500.0, sum.TotalIncome, 1e-9)
	assert.InDelta(t, 214.44, sum.TotalExpenses, 1e-9)
	assert.Len(t, sum.Monthly, 3)

	// Nine rows is below the detector minimum, so nothing is flagged.
	flagged, err := s.Anomalies(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, flagged)

	ins, err := s.Insights(ctx, alice)
	require.NoError(t, err)
	assert.NotEmpty(t, ins)

	out, err := s.Forecast(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, forecast.ModeBaseline, out.Mode)
	assert.Len(t, out.Points, forecast.DefaultHorizon)
}

func TestForecast_NoData(t *testing.T) {
	s := newTestService(t, Deps{})
	_, err := s.Forecast(testCtx(t), alice)
	assert.ErrorIs(t, err, forecast.ErrTooFewPoints)
}

func TestScanReceipt(t *testing.T) {
	ocr := &fakeOCR{text: "CORNER CAFE\nFlat White 3.40\nCroissant 4.00\nTOTAL 7.40\n"}
	archive := &fakeArchive{objects: map[string][]byte{}}
	s := newTestService(t, Deps{OCR: ocr, Archiver: archive})
	ctx := testCtx(t)
	importStatement(t, s, alice)

	txs, err := s.Transactions(ctx, alice)
	require.NoError(t, err)
	cafe := txs[len(txs)-1]
	require.Equal(t, "CORNER CAFE", cafe.Description)

	r, err := s.ScanReceipt(ctx, alice, cafe.ID, "cafe.png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ocr.mime)
	assert.Equal(t, "gs://receipts/alice/cafe.png", r.ImageURI)
	assert.NotZero(t, r.ID)
	assert.NotEmpty(t, r.Items)

	list, err := s.Receipts(ctx, alice, cafe.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	items, err := s.ReceiptItems(ctx, alice, r.ID)
	require.NoError(t, err)
	assert.Len(t, items, len(r.Items))

	img, mime, err := s.ReceiptImage(ctx, alice, cafe.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, img)
	assert.Equal(t, "image/png", mime)

	_, err = s.ReceiptItems(ctx, bob, r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestScanReceipt_ArchiveFailureIsNotFatal(t *testing.T) {
	ocr := &fakeOCR{text: "Milk 1.20\n"}
	archive := &fakeArchive{objects: map[string][]byte{}, err: errors.New("bucket gone")}
	s := newTestService(t, Deps{OCR: ocr, Archiver: archive})
	ctx := testCtx(t)
	importStatement(t, s, alice)
	txs, err := s.Transactions(ctx, alice)
	require.NoError(t, err)

	r, err := s.ScanReceipt(ctx, alice, txs[1].ID, "milk.png", pngHeader)
	require.NoError(t, err)
	assert.Empty(t, r.ImageURI)

	_, _, err = s.ReceiptImage(ctx, alice, txs[1].ID, r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestScanReceipt_Errors(t *testing.T) {
	ctx := testCtx(t)

	t.Run("ocr not configured", func(t *testing.T) {
		s := newTestService(t, Deps{})
		_, err := s.ScanReceipt(ctx, alice, 1, "r.png", pngHeader)
		assert.ErrorIs(t, err, ErrOCRUnavailable)
		assert.False(t, s.OCREnabled())
	})

	t.Run("transaction of another user", func(t *testing.T) {
		s := newTestService(t, Deps{OCR: &fakeOCR{text: "x 1.00"}})
		importStatement(t, s, bob)
		txs, err := s.Transactions(ctx, bob)
		require.NoError(t, err)

		_, err = s.ScanReceipt(ctx, alice, txs[0].ID, "r.png", pngHeader)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ocr failure", func(t *testing.T) {
		s := newTestService(t, Deps{OCR: &fakeOCR{err: receipts.ErrNoText}})
		importStatement(t, s, alice)
		txs, err := s.Transactions(ctx, alice)
		require.NoError(t, err)

		_, err = s.ScanReceipt(ctx, alice, txs[0].ID, "r.png", pngHeader)
		assert.ErrorIs(t, err, receipts.ErrNoText)
	})
}

func TestAddReceiptText(t *testing.T) {
	s := newTestService(t, Deps{})
	ctx := testCtx(t)
	importStatement(t, s, alice)
	txs, err := s.Transactions(ctx, alice)
	require.NoError(t, err)

	r, err := s.AddReceiptText(ctx, alice, txs[1].ID, "tesco.txt", "TESCO\nBread 1.10\nMilk 0.95\n")
	require.NoError(t, err)
	require.Len(t, r.Items, 2)
	assert.Equal(t, "Bread", r.Items[0].Name)

	_, err = s.AddReceiptText(ctx, alice, txs[1].ID, "empty.txt", "   ")
	assert.ErrorIs(t, err, receipts.ErrNoText)

	_, err = s.AddReceiptText(ctx, alice, 9999, "x.txt", "Bread 1.10")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSuggestTransactions(t *testing.T) {
	s := newTestService(t, Deps{})
	ctx := testCtx(t)
	importStatement(t, s, alice)

	matches, err := s.SuggestTransactions(ctx, alice, "CORNER CAFE\nFlat White 3.40\nCroissant 4.00\nTOTAL 7.40\n", 3)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "CORNER CAFE", matches[0].Transaction.Description)
	assert.LessOrEqual(t, len(matches), 3)

	_, err = s.SuggestTransactions(ctx, alice, "", 3)
	assert.ErrorIs(t, err, receipts.ErrNoText)
}
