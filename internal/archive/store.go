// Package archive implements the generated-imagery archive. Images are
// produced by the intel adapter as data URIs, content-hashed for
// dedup-friendly reference, and attached to the POI or mission that
// requested them.
package archive

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spectre-ops/spectre/internal/core"
)

// Store manages recon imagery records in the state database.
type Store struct {
	db *sql.DB
}

// NewStore creates an imagery archive over the state database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Attach records a generated image against a subject record. The caller
// is responsible for confirming the subject still exists; results of
// calls that out-live their subject are discarded upstream.
func (s *Store) Attach(kind core.SubjectKind, subjectID string, imageType core.ImageType, dataURI, coords string) (*core.ReconImage, error) {
	if dataURI == "" {
		return nil, fmt.Errorf("image payload is required")
	}

	h := sha256.Sum256([]byte(dataURI))
	img := &core.ReconImage{
		ID:          uuid.NewString(),
		SubjectKind: kind,
		SubjectID:   subjectID,
		Type:        imageType,
		DataURI:     dataURI,
		ContentHash: hex.EncodeToString(h[:]),
		Coords:      coords,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO recon_images (id, subject_kind, subject_id, image_type, data_uri, content_hash, coords, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		img.ID, string(img.SubjectKind), img.SubjectID, string(img.Type),
		img.DataURI, img.ContentHash, img.Coords,
		img.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting imagery record: %w", err)
	}

	return img, nil
}

// BySubject returns all imagery attached to a record, newest first.
func (s *Store) BySubject(kind core.SubjectKind, subjectID string) ([]core.ReconImage, error) {
	rows, err := s.db.Query(
		`SELECT id, subject_kind, subject_id, image_type, data_uri, content_hash, coords, created_at
		 FROM recon_images WHERE subject_kind = ? AND subject_id = ?
		 ORDER BY created_at DESC, id DESC`,
		string(kind), subjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying imagery: %w", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

// Purge removes all imagery attached to a record. Used when a POI is
// deleted so derived images do not outlive their subject.
func (s *Store) Purge(kind core.SubjectKind, subjectID string) (int64, error) {
	res, err := s.db.Exec(
		"DELETE FROM recon_images WHERE subject_kind = ? AND subject_id = ?",
		string(kind), subjectID,
	)
	if err != nil {
		return 0, fmt.Errorf("purging imagery: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanImages(rows *sql.Rows) ([]core.ReconImage, error) {
	var images []core.ReconImage
	for rows.Next() {
		var img core.ReconImage
		var ts string
		err := rows.Scan(&img.ID, (*string)(&img.SubjectKind), &img.SubjectID,
			(*string)(&img.Type), &img.DataURI, &img.ContentHash, &img.Coords, &ts)
		if err != nil {
			return nil, fmt.Errorf("scanning imagery record: %w", err)
		}
		img.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		images = append(images, img)
	}
	return images, rows.Err()
}
