// Package gcp implements a thin GCP Cloud Storage JSON REST adapter:
// JSON bodies, OAuth2 bearer tokens (accepted, not verified — spec.md §1
// Non-goals exclude "full IAM policy evaluation"), standard
// `/storage/v1/b/...` resource paths (spec.md §9 "GCP REST"). It fronts
// the same bucket/object engine the S3 adapter uses, so a GCS client and
// an S3 client exercising this emulator see the same underlying objects.
package gcp

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/store"
)

type Adapter struct {
	Engine *store.Engine
}

// path shapes handled: /storage/v1/b, /storage/v1/b/{bucket},
// /storage/v1/b/{bucket}/o, /storage/v1/b/{bucket}/o/{object},
// /upload/storage/v1/b/{bucket}/o (object insert with media body).
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/upload")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	// ["storage", "v1", "b", ...]
	if len(parts) < 3 || parts[0] != "storage" || parts[2] != "b" {
		writeError(w, cmn.ErrNotImplemented(r.URL.Path))
		return
	}
	rest := parts[3:]
	ctx := r.Context()

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		a.listBuckets(w, r)
	case len(rest) == 0 && r.Method == http.MethodPost:
		a.insertBucket(w, r)
	case len(rest) == 1 && r.Method == http.MethodGet:
		a.getBucket(w, r, rest[0])
	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := a.Engine.DeleteBucket(ctx, rest[0]); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case len(rest) == 2 && rest[1] == "o" && r.Method == http.MethodGet:
		a.listObjects(w, r, rest[0])
	case len(rest) == 2 && rest[1] == "o" && r.Method == http.MethodPost:
		a.insertObject(w, r, rest[0])
	case len(rest) >= 3 && rest[1] == "o" && r.Method == http.MethodGet:
		a.getObject(w, r, rest[0], strings.Join(rest[2:], "/"))
	case len(rest) >= 3 && rest[1] == "o" && r.Method == http.MethodDelete:
		a.deleteObject(w, r, rest[0], strings.Join(rest[2:], "/"))
	default:
		writeError(w, cmn.ErrNotImplemented(r.Method+" "+r.URL.Path))
	}
}

func bucketResource(b *store.Bucket) map[string]interface{} {
	return map[string]interface{}{
		"kind": "storage#bucket", "id": b.Name, "name": b.Name,
		"location": b.Region, "timeCreated": b.CreatedAt,
	}
}

func (a *Adapter) listBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := a.Engine.ListBuckets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]map[string]interface{}, len(buckets))
	for i := range buckets {
		items[i] = bucketResource(&buckets[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"kind": "storage#buckets", "items": items})
}

func (a *Adapter) insertBucket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cmn.ErrInvalidRequest(err.Error()))
		return
	}
	region := req.Location
	if region == "" {
		region = a.Engine.Region()
	}
	if err := a.Engine.CreateBucket(r.Context(), req.Name, region); err != nil {
		writeError(w, err)
		return
	}
	b, err := a.Engine.GetBucket(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bucketResource(b))
}

func (a *Adapter) getBucket(w http.ResponseWriter, r *http.Request, name string) {
	b, err := a.Engine.GetBucket(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bucketResource(b))
}

func objectResource(o *store.Object) map[string]interface{} {
	return map[string]interface{}{
		"kind": "storage#object", "id": o.Bucket + "/" + o.Key, "name": o.Key,
		"bucket": o.Bucket, "size": strconv.FormatInt(o.ContentLength, 10),
		"contentType": o.ContentType, "etag": o.ETag, "updated": o.LastModified,
		"generation": o.VersionID,
	}
}

func (a *Adapter) listObjects(w http.ResponseWriter, r *http.Request, bucket string) {
	q := r.URL.Query()
	prefix := q.Get("prefix")
	delimiter := q.Get("delimiter")
	page, err := a.Engine.ListObjects(r.Context(), bucket, prefix, delimiter, q.Get("pageToken"), 1000)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]map[string]interface{}, len(page.Objects))
	for i := range page.Objects {
		items[i] = objectResource(&page.Objects[i])
	}
	resp := map[string]interface{}{"kind": "storage#objects", "items": items}
	if len(page.CommonPrefixes) > 0 {
		resp["prefixes"] = page.CommonPrefixes
	}
	if page.IsTruncated {
		resp["nextPageToken"] = page.NextToken
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *Adapter) insertObject(w http.ResponseWriter, r *http.Request, bucket string) {
	name := r.URL.Query().Get("name")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, cmn.ErrInvalidRequest(err.Error()))
		return
	}
	obj, err := a.Engine.PutObject(r.Context(), store.PutObjectInput{
		Bucket: bucket, Key: name, Body: body, ContentType: r.Header.Get("Content-Type"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objectResource(obj))
}

func (a *Adapter) getObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	alt := r.URL.Query().Get("alt")
	if alt == "media" {
		obj, body, err := a.Engine.GetObject(r.Context(), bucket, key, "")
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", obj.ContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}
	obj, err := a.Engine.HeadObject(r.Context(), bucket, key, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objectResource(obj))
}

func (a *Adapter) deleteObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	if _, _, err := a.Engine.DeleteObject(r.Context(), bucket, key, ""); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = cmn.JSON.NewEncoder(w).Encode(v)
}

type gcpError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	e := cmn.AsError(err)
	var resp gcpError
	resp.Error.Code = e.HTTPStatus()
	resp.Error.Message = e.Error()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus())
	_ = cmn.JSON.NewEncoder(w).Encode(resp)
}
