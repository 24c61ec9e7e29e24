package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/NVIDIA/cloudemu/cmn"
)

// Object mirrors one `objects` row.
type Object struct {
	ID                int64   `db:"id"`
	Bucket            string  `db:"bucket"`
	Key               string  `db:"key"`
	VersionID         string  `db:"version_id"`
	IsLatest          bool    `db:"is_latest"`
	IsDeleteMarker    bool    `db:"is_delete_marker"`
	ContentHash       string  `db:"content_hash"`
	ContentLength     int64   `db:"content_length"`
	ContentType       string  `db:"content_type"`
	ContentEncoding   *string `db:"content_encoding"`
	CacheControl      *string `db:"cache_control"`
	ContentDisposition *string `db:"content_disposition"`
	ETag              string  `db:"etag"`
	LastModified      string  `db:"last_modified"`
	Metadata          *string `db:"metadata"`
	StorageClass      string  `db:"storage_class"`
}

// PutObjectInput carries everything a put_object call needs beyond the raw
// body (spec.md §4.2 "put_object").
type PutObjectInput struct {
	Bucket             string
	Key                string
	Body               []byte
	ContentType        string
	ContentEncoding    string
	CacheControl       string
	ContentDisposition string
	Metadata           string // caller-serialized JSON, stored verbatim
	StorageClass       string
}

// PutObject writes body to content-addressed storage and inserts a new
// object version. When the bucket is versioned (Enabled), the previous row
// for the same key is kept but unlatched, building real version history.
// Otherwise (Disabled/Suspended) the prior row for the key is deleted
// before the insert, since version_id is always "null" there and a second
// row would collide with idx_objects_unique_version (spec.md §3).
func (e *Engine) PutObject(ctx context.Context, in PutObjectInput) (*Object, error) {
	hash, err := e.blobs.Put(in.Body)
	if err != nil {
		return nil, cmn.ErrInternal(err.Error())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.getBucketLocked(ctx, in.Bucket)
	if err != nil {
		return nil, err
	}

	versionID := "null"
	if b.Versioning == VersioningEnabled {
		versionID = cmn.GenShortID()
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	storageClass := in.StorageClass
	if storageClass == "" {
		storageClass = "STANDARD"
	}
	etag := fmt.Sprintf("%q", hash)
	now := cmn.NowRFC3339()

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, dbErr(err)
	}
	defer tx.Rollback()

	if b.Versioning == VersioningEnabled {
		if _, err := tx.ExecContext(ctx,
			`UPDATE objects SET is_latest = 0 WHERE bucket = ? AND key = ? AND is_latest = 1`,
			in.Bucket, in.Key); err != nil {
			return nil, dbErr(err)
		}
	} else {
		// Disabled/Suspended: a PUT deletes the prior row for this key before
		// inserting (spec.md §3), not just unlatch it — version_id is always
		// "null" here, so leaving the old row in place would collide with
		// idx_objects_unique_version on the very next PUT.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM objects WHERE bucket = ? AND key = ? AND is_latest = 1`,
			in.Bucket, in.Key); err != nil {
			return nil, dbErr(err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO objects (bucket, key, version_id, is_latest, is_delete_marker, content_hash,
			content_length, content_type, content_encoding, cache_control, content_disposition,
			etag, last_modified, metadata, storage_class)
		 VALUES (?, ?, ?, 1, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Bucket, in.Key, versionID, hash, len(in.Body), contentType,
		nullableStr(in.ContentEncoding), nullableStr(in.CacheControl), nullableStr(in.ContentDisposition),
		etag, now, nullableStr(in.Metadata), storageClass)
	if err != nil {
		return nil, dbErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, dbErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, dbErr(err)
	}

	return &Object{
		ID: id, Bucket: in.Bucket, Key: in.Key, VersionID: versionID, IsLatest: true,
		ContentHash: hash, ContentLength: int64(len(in.Body)), ContentType: contentType,
		ETag: etag, LastModified: now, StorageClass: storageClass,
	}, nil
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// GetObject returns the object row plus its body. versionID empty selects
// the current latest (skipping delete markers, which surface as
// cmn.KindNoSuchKey per real S3 behavior).
func (e *Engine) GetObject(ctx context.Context, bucket, key, versionID string) (*Object, []byte, error) {
	e.mu.Lock()
	obj, err := e.getObjectLocked(ctx, bucket, key, versionID)
	e.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}
	if obj.IsDeleteMarker {
		return nil, nil, cmn.ErrNoSuchKey(bucket, key)
	}
	body, err := e.blobs.Get(obj.ContentHash)
	if err != nil {
		return nil, nil, cmn.ErrInternal(err.Error())
	}
	return obj, body, nil
}

// HeadObject is GetObject without the body fetch, exposed separately so
// adapters for HEAD requests never touch the blob store.
func (e *Engine) HeadObject(ctx context.Context, bucket, key, versionID string) (*Object, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj, err := e.getObjectLocked(ctx, bucket, key, versionID)
	if err != nil {
		return nil, err
	}
	if obj.IsDeleteMarker {
		return nil, cmn.ErrNoSuchKey(bucket, key)
	}
	return obj, nil
}

func (e *Engine) getObjectLocked(ctx context.Context, bucket, key, versionID string) (*Object, error) {
	var obj Object
	var err error
	if versionID == "" {
		err = e.db.GetContext(ctx, &obj,
			`SELECT * FROM objects WHERE bucket = ? AND key = ? AND is_latest = 1`, bucket, key)
	} else {
		err = e.db.GetContext(ctx, &obj,
			`SELECT * FROM objects WHERE bucket = ? AND key = ? AND version_id = ?`, bucket, key, versionID)
	}
	if err != nil {
		return nil, cmn.ErrNoSuchKey(bucket, key)
	}
	return &obj, nil
}

// DeleteObject removes the key. In a versioned bucket, an unqualified
// delete appends a delete marker instead of erasing history (spec.md §4.2
// "delete_object"); a qualified delete (non-empty versionID) permanently
// removes that one row. Returns the delete-marker version id, if any, so
// adapters can echo `x-amz-delete-marker` / `x-amz-version-id`.
func (e *Engine) DeleteObject(ctx context.Context, bucket, key, versionID string) (markerVersion string, deleted bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.getBucketLocked(ctx, bucket)
	if err != nil {
		return "", false, err
	}

	if versionID != "" {
		res, err := e.db.ExecContext(ctx,
			`DELETE FROM objects WHERE bucket = ? AND key = ? AND version_id = ?`, bucket, key, versionID)
		if err != nil {
			return "", false, dbErr(err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return "", false, nil
		}
		// If the row removed was the latest, promote the next-newest row.
		var remaining int
		_ = e.db.GetContext(ctx, &remaining, `SELECT COUNT(*) FROM objects WHERE bucket=? AND key=? AND is_latest=1`, bucket, key)
		if remaining == 0 {
			_, _ = e.db.ExecContext(ctx, `UPDATE objects SET is_latest = 1 WHERE id = (
				SELECT id FROM objects WHERE bucket=? AND key=? ORDER BY id DESC LIMIT 1)`, bucket, key)
		}
		return "", true, nil
	}

	if b.Versioning != VersioningEnabled {
		res, err := e.db.ExecContext(ctx, `DELETE FROM objects WHERE bucket=? AND key=? AND is_latest=1`, bucket, key)
		if err != nil {
			return "", false, dbErr(err)
		}
		n, _ := res.RowsAffected()
		return "", n > 0, nil
	}

	marker := cmn.GenShortID()
	if _, err := e.db.ExecContext(ctx,
		`UPDATE objects SET is_latest = 0 WHERE bucket=? AND key=? AND is_latest=1`, bucket, key); err != nil {
		return "", false, dbErr(err)
	}
	if _, err := e.db.ExecContext(ctx,
		`INSERT INTO objects (bucket, key, version_id, is_latest, is_delete_marker, content_hash,
			content_length, content_type, etag, last_modified)
		 VALUES (?, ?, ?, 1, 1, '', 0, 'application/octet-stream', '""', ?)`,
		bucket, key, marker, cmn.NowRFC3339()); err != nil {
		return "", false, dbErr(err)
	}
	return marker, true, nil
}

// ListObjectsPage is one page of list_objects/list_objects_v2 results
// (spec.md §4.2 "list_objects": prefix/delimiter/continuation-token).
type ListObjectsPage struct {
	Objects        []Object
	CommonPrefixes []string
	NextToken      string
	IsTruncated    bool
}

// ListObjects lists the latest, non-delete-marker version of every key
// under prefix, grouping keys that share a delimiter-bounded common prefix
// the way real S3 does, and paging via an opaque continuation token that is
// simply the last key returned (the original implementation's own
// pagination scheme, kept verbatim since it is already key-ordered and
// collision-free).
func (e *Engine) ListObjects(ctx context.Context, bucket, prefix, delimiter, continuationToken string, maxKeys int) (*ListObjectsPage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.getBucketLocked(ctx, bucket); err != nil {
		return nil, err
	}
	if maxKeys <= 0 || maxKeys > 1000 {
		maxKeys = 1000
	}

	var rows []Object
	err := e.db.SelectContext(ctx, &rows,
		`SELECT * FROM objects WHERE bucket = ? AND is_latest = 1 AND is_delete_marker = 0
		 AND key LIKE ? ESCAPE '\' AND key > ? ORDER BY key`,
		bucket, likeEscape(prefix)+"%", continuationToken)
	if err != nil {
		return nil, dbErr(err)
	}

	page := &ListObjectsPage{}
	seenPrefixes := map[string]bool{}
	for _, obj := range rows {
		rest := strings.TrimPrefix(obj.Key, prefix)
		if delimiter != "" {
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				cp := prefix + rest[:idx+len(delimiter)]
				if !seenPrefixes[cp] {
					seenPrefixes[cp] = true
					page.CommonPrefixes = append(page.CommonPrefixes, cp)
				}
				continue
			}
		}
		if len(page.Objects)+len(page.CommonPrefixes) >= maxKeys {
			page.IsTruncated = true
			page.NextToken = obj.Key
			break
		}
		page.Objects = append(page.Objects, obj)
	}
	sort.Strings(page.CommonPrefixes)
	return page, nil
}

func likeEscape(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

// ObjectVersion is one row of list_object_versions output.
type ObjectVersion struct {
	Object
}

// ListObjectVersions returns every version of every key under prefix,
// newest first within each key, including delete markers — the
// non-latest-filtered counterpart of ListObjects (spec.md §3's "Objects"
// history requirement).
func (e *Engine) ListObjectVersions(ctx context.Context, bucket, prefix string, maxKeys int) ([]ObjectVersion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.getBucketLocked(ctx, bucket); err != nil {
		return nil, err
	}
	if maxKeys <= 0 || maxKeys > 1000 {
		maxKeys = 1000
	}

	var rows []Object
	err := e.db.SelectContext(ctx, &rows,
		`SELECT * FROM objects WHERE bucket = ? AND key LIKE ? ESCAPE '\' ORDER BY key, id DESC LIMIT ?`,
		bucket, likeEscape(prefix)+"%", maxKeys)
	if err != nil {
		return nil, dbErr(err)
	}
	out := make([]ObjectVersion, len(rows))
	for i, r := range rows {
		out[i] = ObjectVersion{r}
	}
	return out, nil
}
