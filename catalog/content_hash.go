package catalog

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/text/unicode/norm"
)

// ContentHashDomain prefixes every book content hash. The version suffix allows a future algorithm change.
const ContentHashDomain = "celsus/book/v1"

// ErrHashingFailed is returned when the canonical form of a book cannot be encoded.
var ErrHashingFailed = errors.New("hashing book content failed")

var canonicalJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// canonicalBook fixes field order and names of the hashed tuple.
type canonicalBook struct {
	LibraryID    string   `json:"libraryId"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ISBN10       string   `json:"isbn10"`
	ISBN13       string   `json:"isbn13"`
	ThumbnailRef string   `json:"thumbnailRef"`
	Authors      []string `json:"authors"`
	Tags         []string `json:"tags"`
	Language     string   `json:"language"`
	BookSet      string   `json:"bookSet"`
	BookSetOrder int      `json:"bookSetOrder"`
}

// ContentHash identifies the bibliographic content of a book.
// It is a pure function of the normalised input: the owner, the book id and the lending
// state do not take part. The thumbnail contributes through ThumbnailRef, so the same image
// bytes encoded differently hash the same while a re-encoded image does not.
func ContentHash(in BookInput) (string, error) {
	in = in.Normalized()

	canonical, err := canonicalJSON.Marshal(canonicalBook{
		LibraryID:    in.LibraryID.String(),
		Title:        nfc(in.Title),
		Description:  nfc(in.Description),
		ISBN10:       nfc(in.ISBN10),
		ISBN13:       nfc(in.ISBN13),
		ThumbnailRef: ThumbnailRef(in.Thumbnail),
		Authors:      nfcAll(in.Authors),
		Tags:         nfcAll(in.Tags),
		Language:     string(in.Language),
		BookSet:      nfc(in.BookSet),
		BookSetOrder: in.BookSetOrder,
	})
	if err != nil {
		return "", errors.Join(ErrHashingFailed, err)
	}

	return hashWithDomain(ContentHashDomain, canonical), nil
}

// ThumbnailRef is the hex SHA-256 of the decoded thumbnail bytes, or "" without a thumbnail.
// Data that is not valid base64 is hashed as given.
func ThumbnailRef(thumbnail string) string {
	if thumbnail == "" {
		return ""
	}

	data, err := base64.StdEncoding.DecodeString(thumbnail)
	if err != nil {
		data = []byte(thumbnail)
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)

	return hex.EncodeToString(h.Sum(nil))
}

func nfc(value string) string {
	return norm.NFC.String(value)
}

func nfcAll(values []string) []string {
	normalized := make([]string, len(values))
	for i, value := range values {
		normalized[i] = nfc(value)
	}

	return normalized
}
