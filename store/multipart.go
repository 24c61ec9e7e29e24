package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/NVIDIA/cloudemu/cmn"
)

// MultipartUpload mirrors one `multipart_uploads` row.
type MultipartUpload struct {
	UploadID    string  `db:"upload_id"`
	Bucket      string  `db:"bucket"`
	Key         string  `db:"key"`
	Initiated   string  `db:"initiated"`
	ContentType *string `db:"content_type"`
	Metadata    *string `db:"metadata"`
}

// MultipartPart mirrors one `multipart_parts` row.
type MultipartPart struct {
	UploadID     string `db:"upload_id"`
	PartNumber   int    `db:"part_number"`
	ContentHash  string `db:"content_hash"`
	Size         int64  `db:"size"`
	ETag         string `db:"etag"`
	LastModified string `db:"last_modified"`
}

// CreateMultipartUpload starts a new upload session (spec.md §4.2
// "create_multipart_upload").
func (e *Engine) CreateMultipartUpload(ctx context.Context, bucket, key, contentType string) (*MultipartUpload, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.getBucketLocked(ctx, bucket); err != nil {
		return nil, err
	}
	uploadID := cmn.GenUUID()
	now := cmn.NowRFC3339()
	if _, err := e.db.ExecContext(ctx,
		`INSERT INTO multipart_uploads (upload_id, bucket, key, initiated, content_type) VALUES (?, ?, ?, ?, ?)`,
		uploadID, bucket, key, now, nullableStr(contentType)); err != nil {
		return nil, dbErr(err)
	}
	return &MultipartUpload{UploadID: uploadID, Bucket: bucket, Key: key, Initiated: now}, nil
}

// UploadPart stores one part's bytes content-addressed and records its
// metadata, overwriting any earlier upload of the same part number (S3
// allows re-uploading a part number before completion).
func (e *Engine) UploadPart(ctx context.Context, uploadID string, partNumber int, body []byte) (*MultipartPart, error) {
	hash, err := e.blobs.Put(body)
	if err != nil {
		return nil, cmn.ErrInternal(err.Error())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.getUploadLocked(ctx, uploadID); err != nil {
		return nil, err
	}
	etag := fmt.Sprintf("%q", hash)
	now := cmn.NowRFC3339()
	_, err = e.db.ExecContext(ctx,
		`INSERT INTO multipart_parts (upload_id, part_number, content_hash, size, etag, last_modified)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(upload_id, part_number) DO UPDATE SET content_hash=excluded.content_hash,
			size=excluded.size, etag=excluded.etag, last_modified=excluded.last_modified`,
		uploadID, partNumber, hash, len(body), etag, now)
	if err != nil {
		return nil, dbErr(err)
	}
	return &MultipartPart{UploadID: uploadID, PartNumber: partNumber, ContentHash: hash,
		Size: int64(len(body)), ETag: etag, LastModified: now}, nil
}

func (e *Engine) getUploadLocked(ctx context.Context, uploadID string) (*MultipartUpload, error) {
	var u MultipartUpload
	if err := e.db.GetContext(ctx, &u, `SELECT * FROM multipart_uploads WHERE upload_id = ?`, uploadID); err != nil {
		return nil, cmn.ErrNotFound("multipart_upload", uploadID)
	}
	return &u, nil
}

// ListParts returns every uploaded part, ordered by part number (spec.md
// §4.2 "list_parts").
func (e *Engine) ListParts(ctx context.Context, uploadID string) ([]MultipartPart, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.getUploadLocked(ctx, uploadID); err != nil {
		return nil, err
	}
	var parts []MultipartPart
	if err := e.db.SelectContext(ctx, &parts,
		`SELECT * FROM multipart_parts WHERE upload_id = ? ORDER BY part_number`, uploadID); err != nil {
		return nil, dbErr(err)
	}
	return parts, nil
}

// CompletePartSpec is one entry of a CompleteMultipartUpload request body.
type CompletePartSpec struct {
	PartNumber int
	ETag       string
}

// CompleteMultipartUpload concatenates the named parts' bytes in order,
// writes the result as one new object version, and discards the upload
// session. Per spec.md §4.2 "complete_multipart_upload" edge cases, a part
// number named in the request but never uploaded, or whose ETag doesn't
// match, fails with cmn.KindInvalidArgument.
func (e *Engine) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, specs []CompletePartSpec) (*Object, error) {
	e.mu.Lock()
	upload, err := e.getUploadLocked(ctx, uploadID)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if upload.Bucket != bucket || upload.Key != key {
		e.mu.Unlock()
		return nil, cmn.ErrInvalidArgument("upload id does not match bucket/key")
	}
	var parts []MultipartPart
	if err := e.db.SelectContext(ctx, &parts,
		`SELECT * FROM multipart_parts WHERE upload_id = ? ORDER BY part_number`, uploadID); err != nil {
		e.mu.Unlock()
		return nil, dbErr(err)
	}
	e.mu.Unlock()

	byNumber := make(map[int]MultipartPart, len(parts))
	for _, p := range parts {
		byNumber[p.PartNumber] = p
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].PartNumber < specs[j].PartNumber })

	var body []byte
	for _, spec := range specs {
		p, ok := byNumber[spec.PartNumber]
		if !ok {
			return nil, cmn.ErrInvalidArgument(fmt.Sprintf("part %d was never uploaded", spec.PartNumber))
		}
		if spec.ETag != "" && spec.ETag != p.ETag {
			return nil, cmn.ErrInvalidArgument(fmt.Sprintf("part %d etag mismatch", spec.PartNumber))
		}
		data, err := e.blobs.Get(p.ContentHash)
		if err != nil {
			return nil, cmn.ErrInternal(err.Error())
		}
		body = append(body, data...)
	}

	contentType := ""
	if upload.ContentType != nil {
		contentType = *upload.ContentType
	}
	obj, err := e.PutObject(ctx, PutObjectInput{Bucket: bucket, Key: key, Body: body, ContentType: contentType})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	_, _ = e.db.ExecContext(ctx, `DELETE FROM multipart_uploads WHERE upload_id = ?`, uploadID)
	e.mu.Unlock()
	return obj, nil
}

// AbortMultipartUpload discards an in-progress upload and its parts
// (spec.md §4.2 "abort_multipart_upload"); cascading FKs drop the part
// rows, the blobs remain (content-addressed, possibly shared).
func (e *Engine) AbortMultipartUpload(ctx context.Context, uploadID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.getUploadLocked(ctx, uploadID); err != nil {
		return err
	}
	if _, err := e.db.ExecContext(ctx, `DELETE FROM multipart_uploads WHERE upload_id = ?`, uploadID); err != nil {
		return dbErr(err)
	}
	return nil
}

// ListMultipartUploads enumerates in-progress sessions for a bucket
// (spec.md §4.2 "list_multipart_uploads").
func (e *Engine) ListMultipartUploads(ctx context.Context, bucket string) ([]MultipartUpload, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.getBucketLocked(ctx, bucket); err != nil {
		return nil, err
	}
	var ups []MultipartUpload
	if err := e.db.SelectContext(ctx, &ups,
		`SELECT * FROM multipart_uploads WHERE bucket = ? ORDER BY initiated`, bucket); err != nil {
		return nil, dbErr(err)
	}
	return ups, nil
}
