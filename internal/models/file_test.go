package models

import "testing"

func TestFileTypeFromMime_Prefixes(t *testing.T) {
	cases := []struct {
		mime string
		want FileType
	}{
		{"image/jpeg", FileTypeImage},
		{"image/png", FileTypeImage},
		{"IMAGE/JPEG", FileTypeImage},
		{"image/svg+xml", FileTypeImage},
		{"video/mp4", FileTypeVideo},
		{"video/quicktime", FileTypeVideo},
		{"Video/WebM", FileTypeVideo},
		{"audio/mpeg", FileTypeAudio},
		{"audio/wav", FileTypeAudio},
	}

	for _, tc := range cases {
		if got := FileTypeFromMime(tc.mime); got != tc.want {
			t.Errorf("FileTypeFromMime(%q) = %q, want %q", tc.mime, got, tc.want)
		}
	}
}

func TestFileTypeFromMime_Documents(t *testing.T) {
	documents := []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"text/plain",
		"text/csv",
		"application/json",
		"application/xml",
	}

	for _, mime := range documents {
		if got := FileTypeFromMime(mime); got != FileTypeDocument {
			t.Errorf("FileTypeFromMime(%q) = %q, want %q", mime, got, FileTypeDocument)
		}
	}
}

func TestFileTypeFromMime_Other(t *testing.T) {
	others := []string{
		"application/octet-stream",
		"application/zip",
		"text/html",
		"font/woff2",
		"",
		"not-a-mime",
	}

	for _, mime := range others {
		if got := FileTypeFromMime(mime); got != FileTypeOther {
			t.Errorf("FileTypeFromMime(%q) = %q, want %q", mime, got, FileTypeOther)
		}
	}
}
