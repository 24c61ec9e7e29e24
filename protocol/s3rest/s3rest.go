// Package s3rest implements the S3 REST protocol adapter: XML request/
// response bodies, virtual-hosted and path-style bucket addressing
// (spec.md §4.1, §6).
package s3rest

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/store"
)

// Adapter wires S3 REST requests to the storage engine.
type Adapter struct {
	Engine   *store.Engine
	Endpoint string // e.g. "http://localhost:4566", used for virtual-host stripping
}

// bucketKeyFromRequest resolves (bucket, key) per spec.md §4.1 priority 2
// (virtual-hosted Host header) falling back to path-style addressing
// (/<bucket>/<key...>).
func (a *Adapter) bucketKeyFromRequest(r *http.Request) (bucket, key string) {
	host := r.Host
	if idx := strings.Index(host, ".s3."); idx > 0 {
		bucket = host[:idx]
		key = strings.TrimPrefix(r.URL.Path, "/")
		return bucket, key
	}
	path := strings.TrimPrefix(r.URL.Path, "/")
	parts := strings.SplitN(path, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}
	return bucket, key
}

// ServeHTTP dispatches on method + presence of a key + query sub-resources,
// per spec.md §4.1 priority 5 ("HTTP method + URI shape for REST
// services").
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucket, key := a.bucketKeyFromRequest(r)
	q := r.URL.Query()

	switch {
	case bucket == "":
		a.handleListBuckets(ctx, w, r)
	case key == "" && r.Method == http.MethodPut:
		a.handleCreateBucket(ctx, w, bucket)
	case key == "" && r.Method == http.MethodDelete:
		a.handleDeleteBucket(ctx, w, bucket)
	case key == "" && r.Method == http.MethodHead:
		a.handleHeadBucket(ctx, w, bucket)
	case key == "" && r.Method == http.MethodGet && q.Has("versioning"):
		a.handleGetVersioning(ctx, w, bucket)
	case key == "" && r.Method == http.MethodPut && q.Has("versioning"):
		a.handlePutVersioning(ctx, w, r, bucket)
	case key == "" && r.Method == http.MethodGet && q.Has("versions"):
		a.handleListObjectVersions(ctx, w, r, bucket, q)
	case key == "" && r.Method == http.MethodGet && (q.Has("list-type") || q.Get("list-type") == "2"):
		a.handleListObjectsV2(ctx, w, r, bucket, q)
	case key == "" && r.Method == http.MethodGet:
		a.handleListObjects(ctx, w, r, bucket, q)
	case r.Method == http.MethodPut && q.Has("uploadId") && q.Has("partNumber"):
		a.handleUploadPart(ctx, w, r, bucket, key, q)
	case r.Method == http.MethodPost && q.Has("uploads"):
		a.handleCreateMultipartUpload(ctx, w, r, bucket, key)
	case r.Method == http.MethodPost && q.Has("uploadId"):
		a.handleCompleteMultipartUpload(ctx, w, r, bucket, key, q)
	case r.Method == http.MethodDelete && q.Has("uploadId"):
		a.handleAbortMultipartUpload(ctx, w, q)
	case r.Method == http.MethodGet && q.Has("uploadId"):
		a.handleListParts(ctx, w, q)
	case r.Method == http.MethodPut:
		a.handlePutObject(ctx, w, r, bucket, key)
	case r.Method == http.MethodGet:
		a.handleGetObject(ctx, w, r, bucket, key, q.Get("versionId"))
	case r.Method == http.MethodHead:
		a.handleHeadObject(ctx, w, bucket, key, q.Get("versionId"))
	case r.Method == http.MethodDelete:
		a.handleDeleteObject(ctx, w, bucket, key, q.Get("versionId"))
	default:
		writeError(w, cmn.ErrNotImplemented(r.Method+" "+r.URL.Path))
	}
}

func (a *Adapter) handleCreateBucket(ctx context.Context, w http.ResponseWriter, bucket string) {
	if err := a.Engine.CreateBucket(ctx, bucket, a.Engine.Region()); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/"+bucket)
	w.WriteHeader(http.StatusOK)
}

func (a *Adapter) handleDeleteBucket(ctx context.Context, w http.ResponseWriter, bucket string) {
	if err := a.Engine.DeleteBucket(ctx, bucket); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Adapter) handleHeadBucket(ctx context.Context, w http.ResponseWriter, bucket string) {
	ok, err := a.Engine.BucketExists(ctx, bucket)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type listAllMyBucketsResult struct {
	XMLName xml.Name `xml:"ListAllMyBucketsResult"`
	Owner   struct {
		ID string `xml:"ID"`
	} `xml:"Owner"`
	Buckets struct {
		Bucket []bucketXML `xml:"Bucket"`
	} `xml:"Buckets"`
}

type bucketXML struct {
	Name         string `xml:"Name"`
	CreationDate string `xml:"CreationDate"`
}

func (a *Adapter) handleListBuckets(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	buckets, err := a.Engine.ListBuckets(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	out := listAllMyBucketsResult{}
	out.Owner.ID = cmn.DefaultAccountID
	for _, b := range buckets {
		out.Buckets.Bucket = append(out.Buckets.Bucket, bucketXML{Name: b.Name, CreationDate: b.CreatedAt})
	}
	writeXML(w, http.StatusOK, out)
}

type versioningConfiguration struct {
	XMLName xml.Name `xml:"VersioningConfiguration"`
	Status  string   `xml:"Status,omitempty"`
}

func (a *Adapter) handleGetVersioning(ctx context.Context, w http.ResponseWriter, bucket string) {
	b, err := a.Engine.GetBucket(ctx, bucket)
	if err != nil {
		writeError(w, err)
		return
	}
	status := b.Versioning
	if status == store.VersioningDisabled {
		status = ""
	}
	writeXML(w, http.StatusOK, versioningConfiguration{Status: status})
}

func (a *Adapter) handlePutVersioning(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket string) {
	var cfg versioningConfiguration
	body, _ := io.ReadAll(r.Body)
	if err := xml.Unmarshal(body, &cfg); err != nil {
		writeError(w, cmn.ErrMalformedXML(err.Error()))
		return
	}
	status := cfg.Status
	if status == "" {
		status = store.VersioningDisabled
	}
	if err := a.Engine.PutBucketVersioning(ctx, bucket, status); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type objectXML struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int64  `xml:"Size"`
	StorageClass string `xml:"StorageClass"`
}

type listBucketResult struct {
	XMLName        xml.Name    `xml:"ListBucketResult"`
	Name           string      `xml:"Name"`
	Prefix         string      `xml:"Prefix"`
	Delimiter      string      `xml:"Delimiter,omitempty"`
	MaxKeys        int         `xml:"MaxKeys"`
	IsTruncated    bool        `xml:"IsTruncated"`
	Contents       []objectXML `xml:"Contents"`
	CommonPrefixes []struct {
		Prefix string `xml:"Prefix"`
	} `xml:"CommonPrefixes"`
	NextContinuationToken string `xml:"NextContinuationToken,omitempty"`
	NextMarker            string `xml:"NextMarker,omitempty"`
}

func (a *Adapter) handleListObjectsV2(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket string, q map[string][]string) {
	a.listObjectsCommon(ctx, w, bucket, q, true)
}

func (a *Adapter) handleListObjects(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket string, q map[string][]string) {
	a.listObjectsCommon(ctx, w, bucket, q, false)
}

func (a *Adapter) listObjectsCommon(ctx context.Context, w http.ResponseWriter, bucket string, q map[string][]string, v2 bool) {
	prefix := firstOr(q, "prefix", "")
	delimiter := firstOr(q, "delimiter", "")
	token := firstOr(q, "continuation-token", firstOr(q, "marker", ""))
	maxKeys, _ := strconv.Atoi(firstOr(q, "max-keys", "1000"))

	page, err := a.Engine.ListObjects(ctx, bucket, prefix, delimiter, token, maxKeys)
	if err != nil {
		writeError(w, err)
		return
	}
	out := listBucketResult{Name: bucket, Prefix: prefix, Delimiter: delimiter, MaxKeys: maxKeys, IsTruncated: page.IsTruncated}
	for _, o := range page.Objects {
		out.Contents = append(out.Contents, objectXML{Key: o.Key, LastModified: o.LastModified, ETag: o.ETag, Size: o.ContentLength, StorageClass: o.StorageClass})
	}
	for _, cp := range page.CommonPrefixes {
		out.CommonPrefixes = append(out.CommonPrefixes, struct {
			Prefix string `xml:"Prefix"`
		}{Prefix: cp})
	}
	if v2 {
		out.NextContinuationToken = page.NextToken
	} else {
		out.NextMarker = page.NextToken
	}
	writeXML(w, http.StatusOK, out)
}

type versionEntryXML struct {
	Key          string `xml:"Key"`
	VersionId    string `xml:"VersionId"`
	IsLatest     bool   `xml:"IsLatest"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag,omitempty"`
	Size         int64  `xml:"Size"`
}

type listVersionsResult struct {
	XMLName        xml.Name          `xml:"ListVersionsResult"`
	Name           string            `xml:"Name"`
	Prefix         string            `xml:"Prefix"`
	Version        []versionEntryXML `xml:"Version"`
	DeleteMarker   []versionEntryXML `xml:"DeleteMarker"`
}

func (a *Adapter) handleListObjectVersions(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket string, q map[string][]string) {
	prefix := firstOr(q, "prefix", "")
	maxKeys, _ := strconv.Atoi(firstOr(q, "max-keys", "1000"))
	versions, err := a.Engine.ListObjectVersions(ctx, bucket, prefix, maxKeys)
	if err != nil {
		writeError(w, err)
		return
	}
	out := listVersionsResult{Name: bucket, Prefix: prefix}
	for _, v := range versions {
		entry := versionEntryXML{Key: v.Key, VersionId: v.VersionID, IsLatest: v.IsLatest, LastModified: v.LastModified, ETag: v.ETag, Size: v.ContentLength}
		if v.IsDeleteMarker {
			out.DeleteMarker = append(out.DeleteMarker, entry)
		} else {
			out.Version = append(out.Version, entry)
		}
	}
	writeXML(w, http.StatusOK, out)
}

func (a *Adapter) handlePutObject(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket, key string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, cmn.ErrInvalidRequest(err.Error()))
		return
	}
	obj, err := a.Engine.PutObject(ctx, store.PutObjectInput{
		Bucket: bucket, Key: key, Body: body,
		ContentType:        r.Header.Get("Content-Type"),
		ContentEncoding:    r.Header.Get("Content-Encoding"),
		CacheControl:       r.Header.Get("Cache-Control"),
		ContentDisposition: r.Header.Get("Content-Disposition"),
		StorageClass:       r.Header.Get("X-Amz-Storage-Class"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("ETag", obj.ETag)
	if obj.VersionID != "null" {
		w.Header().Set("x-amz-version-id", obj.VersionID)
	}
	w.WriteHeader(http.StatusOK)
}

func (a *Adapter) handleGetObject(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket, key, versionID string) {
	obj, body, err := a.Engine.GetObject(ctx, bucket, key, versionID)
	if err != nil {
		writeError(w, err)
		return
	}
	setObjectHeaders(w, obj)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (a *Adapter) handleHeadObject(ctx context.Context, w http.ResponseWriter, bucket, key, versionID string) {
	obj, err := a.Engine.HeadObject(ctx, bucket, key, versionID)
	if err != nil {
		writeError(w, err)
		return
	}
	setObjectHeaders(w, obj)
	w.WriteHeader(http.StatusOK)
}

func setObjectHeaders(w http.ResponseWriter, obj *store.Object) {
	w.Header().Set("ETag", obj.ETag)
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.ContentLength, 10))
	w.Header().Set("Last-Modified", obj.LastModified)
	if obj.VersionID != "null" {
		w.Header().Set("x-amz-version-id", obj.VersionID)
	}
}

func (a *Adapter) handleDeleteObject(ctx context.Context, w http.ResponseWriter, bucket, key, versionID string) {
	marker, _, err := a.Engine.DeleteObject(ctx, bucket, key, versionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if marker != "" {
		w.Header().Set("x-amz-delete-marker", "true")
		w.Header().Set("x-amz-version-id", marker)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Adapter) handleCreateMultipartUpload(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket, key string) {
	up, err := a.Engine.CreateMultipartUpload(ctx, bucket, key, r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeXML(w, http.StatusOK, struct {
		XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
		Bucket   string   `xml:"Bucket"`
		Key      string   `xml:"Key"`
		UploadId string   `xml:"UploadId"`
	}{Bucket: bucket, Key: key, UploadId: up.UploadID})
}

func (a *Adapter) handleUploadPart(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket, key string, q map[string][]string) {
	partNum, _ := strconv.Atoi(firstOr(q, "partNumber", "0"))
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, cmn.ErrInvalidRequest(err.Error()))
		return
	}
	part, err := a.Engine.UploadPart(ctx, firstOr(q, "uploadId", ""), partNum, body)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("ETag", part.ETag)
	w.WriteHeader(http.StatusOK)
}

type completeMultipartUploadXML struct {
	XMLName xml.Name `xml:"CompleteMultipartUpload"`
	Part    []struct {
		PartNumber int    `xml:"PartNumber"`
		ETag       string `xml:"ETag"`
	} `xml:"Part"`
}

func (a *Adapter) handleCompleteMultipartUpload(ctx context.Context, w http.ResponseWriter, r *http.Request, bucket, key string, q map[string][]string) {
	body, _ := io.ReadAll(r.Body)
	var req completeMultipartUploadXML
	if err := xml.Unmarshal(body, &req); err != nil {
		writeError(w, cmn.ErrMalformedXML(err.Error()))
		return
	}
	specs := make([]store.CompletePartSpec, 0, len(req.Part))
	for _, p := range req.Part {
		specs = append(specs, store.CompletePartSpec{PartNumber: p.PartNumber, ETag: p.ETag})
	}
	obj, err := a.Engine.CompleteMultipartUpload(ctx, bucket, key, firstOr(q, "uploadId", ""), specs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeXML(w, http.StatusOK, struct {
		XMLName xml.Name `xml:"CompleteMultipartUploadResult"`
		Bucket  string   `xml:"Bucket"`
		Key     string   `xml:"Key"`
		ETag    string   `xml:"ETag"`
	}{Bucket: bucket, Key: key, ETag: obj.ETag})
}

func (a *Adapter) handleAbortMultipartUpload(ctx context.Context, w http.ResponseWriter, q map[string][]string) {
	if err := a.Engine.AbortMultipartUpload(ctx, firstOr(q, "uploadId", "")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Adapter) handleListParts(ctx context.Context, w http.ResponseWriter, q map[string][]string) {
	parts, err := a.Engine.ListParts(ctx, firstOr(q, "uploadId", ""))
	if err != nil {
		writeError(w, err)
		return
	}
	out := struct {
		XMLName xml.Name `xml:"ListPartsResult"`
		Part    []struct {
			PartNumber int    `xml:"PartNumber"`
			ETag       string `xml:"ETag"`
			Size       int64  `xml:"Size"`
		} `xml:"Part"`
	}{}
	for _, p := range parts {
		out.Part = append(out.Part, struct {
			PartNumber int    `xml:"PartNumber"`
			ETag       string `xml:"ETag"`
			Size       int64  `xml:"Size"`
		}{PartNumber: p.PartNumber, ETag: p.ETag, Size: p.Size})
	}
	writeXML(w, http.StatusOK, out)
}

func firstOr(q map[string][]string, key, def string) string {
	if v, ok := q[key]; ok && len(v) > 0 {
		return v[0]
	}
	return def
}

func writeXML(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(v)
}

type s3Error struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

func writeError(w http.ResponseWriter, err error) {
	e := cmn.AsError(err)
	writeXML(w, e.HTTPStatus(), s3Error{Code: e.AWSCode(), Message: e.Error()})
}
