package handlers

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadUploadPreservesSubmissionOrderAcrossFieldNames(t *testing.T) {
	body, contentType := buildMultipartBody(t, "bumper", []filePart{
		{fieldName: "image", filename: "a.png", contentType: "image/png", payload: []byte("aa")},
		{fieldName: "photos", filename: "b.jpg", contentType: "image/jpeg", payload: []byte("bb")},
		{fieldName: "image", filename: "c.webp", contentType: "image/webp", payload: []byte("cc")},
	})

	req := httptest.NewRequest("POST", "/analyze", body)
	req.Header.Set("Content-Type", contentType)

	items, area, err := readUpload(req, MaxUploadSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if area != "bumper" {
		t.Fatalf("unexpected area: %q", area)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, want := range []string{"a.png", "b.jpg", "c.webp"} {
		if items[i].Index != i || items[i].Filename != want {
			t.Fatalf("item %d out of order: index=%d filename=%q", i, items[i].Index, items[i].Filename)
		}
	}
	if !bytes.Equal(items[1].Data, []byte("bb")) || items[1].MediaType != "image/jpeg" {
		t.Fatalf("item payload or media type lost: %+v", items[1])
	}
}

func TestReadUploadRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/analyze", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")

	_, _, err := readUpload(req, MaxUploadSize)
	if !errors.Is(err, ErrUploadMalformed) {
		t.Fatalf("expected ErrUploadMalformed, got %v", err)
	}
}

func TestReadUploadRejectsNonImageBeforeReadingPayload(t *testing.T) {
	body, contentType := buildMultipartBody(t, "", []filePart{
		{fieldName: "file", filename: "doc.pdf", contentType: "application/pdf", payload: []byte("pdf")},
	})
	req := httptest.NewRequest("POST", "/analyze", body)
	req.Header.Set("Content-Type", contentType)

	_, _, err := readUpload(req, MaxUploadSize)
	if !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
}

func TestReadUploadEnforcesPerFileLimit(t *testing.T) {
	body, contentType := buildMultipartBody(t, "", []filePart{
		{fieldName: "file", filename: "big.png", contentType: "image/png", payload: bytes.Repeat([]byte("x"), 33)},
	})
	req := httptest.NewRequest("POST", "/analyze", body)
	req.Header.Set("Content-Type", contentType)

	_, _, err := readUpload(req, 32)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}
