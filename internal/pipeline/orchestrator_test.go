package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rockerrishabh/sanskrit-ocr/internal/observability"
	"github.com/rockerrishabh/sanskrit-ocr/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore captures every published snapshot in order.
type recordingStore struct {
	mu        sync.Mutex
	snapshots []session.ProgressState
}

func (s *recordingStore) Put(ctx context.Context, sessionID string, state session.ProgressState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, state)
	return nil
}

func (s *recordingStore) Get(ctx context.Context, sessionID string) (session.ProgressState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == 0 {
		return session.ProgressState{}, false, nil
	}
	return s.snapshots[len(s.snapshots)-1], true, nil
}

func (s *recordingStore) all() []session.ProgressState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]session.ProgressState(nil), s.snapshots...)
}

// fakeConverter materializes the requested number of page images so the
// orchestrator's cleanup path operates on real files.
type fakeConverter struct {
	pages   int
	err     error
	created []string
}

func (c *fakeConverter) Convert(ctx context.Context, pdfPath, outPrefix string) ([]string, error) {
	if c.err != nil {
		return nil, c.err
	}
	paths := make([]string, 0, c.pages)
	for i := 1; i <= c.pages; i++ {
		path := fmt.Sprintf("%s-%03d.png", outPrefix, i)
		if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	c.created = paths
	return paths, nil
}

// fakeRecognizer returns canned text per page suffix and can fail chosen pages.
type fakeRecognizer struct {
	textByPage map[int]string
	failPages  map[int]bool
	err        error
}

func (r *fakeRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	page := pageFromPath(imagePath)
	if r.failPages[page] {
		return "", errors.New("tesseract error: could not read image")
	}
	return r.textByPage[page], nil
}

func pageFromPath(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	idx := strings.LastIndex(base, "-")
	if idx < 0 {
		return 0
	}
	var page int
	fmt.Sscanf(base[idx+1:], "%d", &page)
	return page
}

func newTestOrchestrator(t *testing.T, store session.Store, converter PageConverter, recognizer Recognizer) *Orchestrator {
	t.Helper()
	return NewOrchestrator(observability.Nop(), store, converter, recognizer, t.TempDir())
}

func writeUpload(t *testing.T, name string) UploadedFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	return UploadedFile{Path: path, OriginalName: name}
}

func TestRun_SingleImage(t *testing.T) {
	store := &recordingStore{}
	recognizer := &fakeRecognizer{textByPage: map[int]string{0: "scanned text"}}
	o := newTestOrchestrator(t, store, &fakeConverter{}, recognizer)

	file := writeUpload(t, "photo.png")
	o.Run(context.Background(), "s1", []UploadedFile{file})

	final, ok, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, final.Complete)
	assert.Equal(t, session.StageComplete, final.Stage)
	require.Len(t, final.Results, 1)

	result := final.Results[0]
	assert.Equal(t, "photo.png", result.Filename)
	assert.True(t, result.Success)
	assert.Equal(t, "scanned text", result.Text)
	require.NotNil(t, result.PagesProcessed)
	require.NotNil(t, result.TotalPages)
	assert.Equal(t, 1, *result.PagesProcessed)
	assert.Equal(t, 1, *result.TotalPages)
	require.NotNil(t, result.EstimatedTimeSeconds)

	// Single-image inputs never pass through the converting stages.
	for _, snap := range store.all() {
		assert.NotEqual(t, session.StageConverting, snap.Stage)
		assert.NotEqual(t, session.StageConverted, snap.Stage)
	}

	// Uploaded temp file is removed.
	_, err = os.Stat(file.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_PDFWithFailingPage(t *testing.T) {
	store := &recordingStore{}
	converter := &fakeConverter{pages: 3}
	recognizer := &fakeRecognizer{
		textByPage: map[int]string{1: "first page", 2: "second page", 3: "third page"},
		failPages:  map[int]bool{2: true},
	}
	o := newTestOrchestrator(t, store, converter, recognizer)

	file := writeUpload(t, "scan.pdf")
	o.Run(context.Background(), "s1", []UploadedFile{file})

	final, _, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, final.Results, 1)

	result := final.Results[0]
	assert.True(t, result.Success)
	assert.Contains(t, result.Text, "=== Page 1 ===")
	assert.Contains(t, result.Text, "first page")
	assert.Contains(t, result.Text, "=== Page 3 ===")
	assert.NotContains(t, result.Text, "Page 2")
	assert.NotContains(t, result.Text, "second page")
	require.NotNil(t, result.PagesProcessed)
	assert.Equal(t, 3, *result.PagesProcessed)
	assert.Equal(t, 3, *result.TotalPages)

	// Page images are cleaned up despite the per-page failure.
	for _, page := range converter.created {
		_, err := os.Stat(page)
		assert.True(t, os.IsNotExist(err), "page image %s should be removed", page)
	}
}

func TestRun_PublishesMonotonicProgress(t *testing.T) {
	store := &recordingStore{}
	converter := &fakeConverter{pages: 3}
	recognizer := &fakeRecognizer{textByPage: map[int]string{1: "a", 2: "b", 3: "c"}}
	o := newTestOrchestrator(t, store, converter, recognizer)

	o.Run(context.Background(), "s1", []UploadedFile{writeUpload(t, "scan.pdf")})

	snapshots := store.all()
	require.NotEmpty(t, snapshots)

	// Converting is published before the page count is known.
	assert.Equal(t, session.StageConverting, snapshots[0].Stage)
	assert.Equal(t, 0, snapshots[0].Total)

	// Page counters never go backwards within the processing stage.
	last := 0
	for _, snap := range snapshots {
		if snap.Stage == session.StageProcessing {
			assert.GreaterOrEqual(t, snap.Current, last)
			last = snap.Current
			assert.Equal(t, 3, snap.Total)
		}
	}
	assert.Equal(t, 3, last)

	// Exactly one terminal snapshot, and it is the final write.
	completeCount := 0
	for _, snap := range snapshots {
		if snap.Complete {
			completeCount++
		}
	}
	assert.Equal(t, 1, completeCount)
	assert.True(t, snapshots[len(snapshots)-1].Complete)
}

func TestRun_EstimatePublishedOnSecondPage(t *testing.T) {
	store := &recordingStore{}
	converter := &fakeConverter{pages: 2}
	recognizer := &fakeRecognizer{textByPage: map[int]string{1: "a", 2: "b"}}
	o := newTestOrchestrator(t, store, converter, recognizer)

	o.Run(context.Background(), "s1", []UploadedFile{writeUpload(t, "scan.pdf")})

	found := false
	for _, snap := range store.all() {
		if snap.Stage == session.StageProcessing && snap.Current == 2 {
			assert.Contains(t, snap.Message, "estimated total")
			found = true
		}
	}
	assert.True(t, found)
}

func TestRun_NoEstimateForSinglePagePDF(t *testing.T) {
	store := &recordingStore{}
	converter := &fakeConverter{pages: 1}
	recognizer := &fakeRecognizer{textByPage: map[int]string{1: "only"}}
	o := newTestOrchestrator(t, store, converter, recognizer)

	o.Run(context.Background(), "s1", []UploadedFile{writeUpload(t, "scan.pdf")})

	for _, snap := range store.all() {
		assert.NotContains(t, snap.Message, "estimated")
	}
}

func TestRun_FailedFileDoesNotAbortBatch(t *testing.T) {
	store := &recordingStore{}
	converter := &fakeConverter{err: errors.New("PDF conversion error: bad xref. Make sure poppler-utils is installed")}
	recognizer := &fakeRecognizer{textByPage: map[int]string{0: "image text"}}
	o := newTestOrchestrator(t, store, converter, recognizer)

	files := []UploadedFile{
		writeUpload(t, "broken.pdf"),
		writeUpload(t, "photo.jpg"),
	}
	o.Run(context.Background(), "s1", files)

	final, _, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, final.Complete)
	require.Len(t, final.Results, 2)

	// Results keep upload order: the failed PDF first, then the image.
	assert.Equal(t, "broken.pdf", final.Results[0].Filename)
	assert.False(t, final.Results[0].Success)
	require.NotNil(t, final.Results[0].Error)
	assert.Contains(t, *final.Results[0].Error, "poppler-utils")

	assert.Equal(t, "photo.jpg", final.Results[1].Filename)
	assert.True(t, final.Results[1].Success)
	assert.Equal(t, "image text", final.Results[1].Text)
}

func TestRun_EmptyBatch(t *testing.T) {
	store := &recordingStore{}
	o := newTestOrchestrator(t, store, &fakeConverter{}, &fakeRecognizer{})

	o.Run(context.Background(), "s1", nil)

	snapshots := store.all()
	require.Len(t, snapshots, 1)
	assert.True(t, snapshots[0].Complete)
	assert.Empty(t, snapshots[0].Results)
	assert.Equal(t, 0, snapshots[0].Current)
	assert.Equal(t, 0, snapshots[0].Total)
}

func TestRun_RecognitionFailureOnImage(t *testing.T) {
	store := &recordingStore{}
	recognizer := &fakeRecognizer{err: errors.New("tesseract error: bad image")}
	o := newTestOrchestrator(t, store, &fakeConverter{}, recognizer)

	file := writeUpload(t, "photo.png")
	o.Run(context.Background(), "s1", []UploadedFile{file})

	final, _, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, final.Results, 1)
	assert.False(t, final.Results[0].Success)
	require.NotNil(t, final.Results[0].Error)
	assert.Contains(t, *final.Results[0].Error, "tesseract error")

	// Temp file removed on the failure path too.
	_, statErr := os.Stat(file.Path)
	assert.True(t, os.IsNotExist(statErr))
}
