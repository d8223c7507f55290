package documents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"careerpilot-backend/internal/extract"
	"careerpilot-backend/internal/shared/storage/object/local"
	"careerpilot-backend/internal/shared/util"
)

func newTestService(t *testing.T) (*Service, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	return &Service{Store: local.New(t.TempDir()), Repo: repo}, repo
}

func TestUploadThenTextCachesExtraction(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, "user-1", "cv.txt", strings.NewReader("Go, Kubernetes, PostgreSQL"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.StorageProvider != "local" {
		t.Fatalf("provider = %q", doc.StorageProvider)
	}

	text, err := svc.Text(ctx, doc)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "Go, Kubernetes, PostgreSQL" {
		t.Fatalf("text = %q", text)
	}

	stored, err := repo.GetByID(ctx, "user-1", doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.ExtractedTextKey != extract.ExtractedKey(doc.StorageKey) || stored.ExtractedAt == nil {
		t.Fatalf("extraction not recorded: %+v", stored)
	}

	again, err := svc.Text(ctx, stored)
	if err != nil || again != text {
		t.Fatalf("cached Text = %q, %v", again, err)
	}
}

func TestUploadRequiresFileName(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Upload(context.Background(), "user-1", "  ", strings.NewReader("x"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateFromS3(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ownKey := util.OwnerPrefix("user-1") + "abc_cv.pdf"

	if _, err := svc.CreateFromS3(ctx, "user-1", ownKey, "cv.pdf", "application/pdf", 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected local store to reject, got %v", err)
	}

	svc.StorageProvider = "s3"
	if _, err := svc.CreateFromS3(ctx, "user-1", util.OwnerPrefix("user-2")+"abc_cv.pdf", "cv.pdf", "application/pdf", 10); !errors.Is(err, ErrForeignKey) {
		t.Fatalf("expected ErrForeignKey, got %v", err)
	}

	doc, err := svc.CreateFromS3(ctx, "user-1", ownKey, "cv.pdf", "application/pdf", 10)
	if err != nil {
		t.Fatalf("CreateFromS3: %v", err)
	}
	current, err := svc.Current(ctx, "user-1")
	if err != nil || current.ID != doc.ID || current.StorageProvider != "s3" {
		t.Fatalf("Current = %+v, %v", current, err)
	}
}

func TestClaimGuestMovesDocuments(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Upload(ctx, "guest:g1", "a.txt", strings.NewReader("a")); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	moved, err := svc.ClaimGuest(ctx, "guest:g1", "user-9")
	if err != nil || moved != 1 {
		t.Fatalf("ClaimGuest = %d, %v", moved, err)
	}
	if n, _ := svc.Count(ctx, "user-9"); n != 1 {
		t.Fatalf("count = %d", n)
	}
	if n, _ := svc.Count(ctx, "guest:g1"); n != 0 {
		t.Fatalf("guest count = %d", n)
	}

	moved, err = svc.ClaimGuest(ctx, "guest:g1", "user-9")
	if err != nil || moved != 0 {
		t.Fatalf("second ClaimGuest = %d, %v", moved, err)
	}
}

func TestParseResumeRejectsNonPDF(t *testing.T) {
	_, err := ParseResume(context.Background(), []byte("plain words"), "text/plain", "cv.txt")
	if !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF, got %v", err)
	}
}

func TestDeleteHidesDocumentAndRemovesObjects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	older, err := svc.Upload(ctx, "user-1", "old.txt", strings.NewReader("old"))
	if err != nil {
		t.Fatalf("Upload old: %v", err)
	}
	newer, err := svc.Upload(ctx, "user-1", "new.txt", strings.NewReader("Go and SQL"))
	if err != nil {
		t.Fatalf("Upload new: %v", err)
	}
	if _, err := svc.Text(ctx, newer); err != nil {
		t.Fatalf("Text: %v", err)
	}
	newer, _ = svc.Get(ctx, "user-1", newer.ID)

	if err := svc.Delete(ctx, "user-2", newer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other users to get ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, "user-1", newer.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := svc.Get(ctx, "user-1", newer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted doc to be hidden, got %v", err)
	}
	current, err := svc.Current(ctx, "user-1")
	if err != nil || current.ID != older.ID {
		t.Fatalf("Current after delete = %+v, %v", current, err)
	}
	if n, _ := svc.Count(ctx, "user-1"); n != 1 {
		t.Fatalf("count = %d", n)
	}
	for _, key := range []string{newer.StorageKey, newer.ExtractedTextKey} {
		if _, err := svc.Store.Open(ctx, key); err == nil {
			t.Fatalf("expected object %q to be removed", key)
		}
	}
}

func TestDocumentViewPrefersDeclaredValues(t *testing.T) {
	v := viewOf(Document{
		ID:               "d1",
		FileName:         "cv.docx",
		OriginalFilename: "My CV.docx",
		MimeType:         "application/zip",
		ContentType:      "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		ExtractedTextKey: "k.extracted.txt",
	})
	if v.FileName != "My CV.docx" || v.MimeType != "application/vnd.openxmlformats-officedocument.wordprocessingml.document" || !v.HasText {
		t.Fatalf("view = %+v", v)
	}
}
