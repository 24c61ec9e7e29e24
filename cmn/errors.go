package cmn

import (
	"fmt"
	"net/http"
)

// Kind enumerates the engine-level error taxonomy from which every adapter
// derives its provider-shaped envelope.
type Kind int

const (
	KindNoSuchBucket Kind = iota
	KindBucketAlreadyExists
	KindBucketNotEmpty
	KindNoSuchKey
	KindNotFound
	KindAlreadyExists
	KindInvalidArgument
	KindInvalidRequest
	KindMalformedXML
	KindMalformedPolicy
	KindNoSuchBucketPolicy
	KindNotImplemented
	KindInternal
	KindDatabase
)

// Error is the one error type the storage engine, the ASL interpreter, and
// the event matcher ever return. Adapters translate it to their own
// provider's envelope; they never recover or retry on its behalf.
type Error struct {
	Kind    Kind
	Resrc   string // kind/id for KindNotFound, bucket/key elsewhere
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Resrc != "" {
		return fmt.Sprintf("%s: %s", e.Resrc, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(k Kind, resrc, msg string) *Error { return &Error{Kind: k, Resrc: resrc, Message: msg} }

func ErrNoSuchBucket(name string) *Error {
	return newErr(KindNoSuchBucket, name, "the specified bucket does not exist")
}
func ErrBucketAlreadyExists(name string) *Error {
	return newErr(KindBucketAlreadyExists, name, "the requested bucket name is not available")
}
func ErrBucketNotEmpty(name string) *Error {
	return newErr(KindBucketNotEmpty, name, "the bucket you tried to delete is not empty")
}
func ErrNoSuchKey(bucket, key string) *Error {
	return newErr(KindNoSuchKey, bucket+"/"+key, "the specified key does not exist")
}
func ErrNotFound(kind, id string) *Error {
	return newErr(KindNotFound, kind+"/"+id, "resource not found")
}
func ErrAlreadyExists(kind, id string) *Error {
	return newErr(KindAlreadyExists, kind+"/"+id, "resource already exists")
}
func ErrInvalidArgument(msg string) *Error {
	return newErr(KindInvalidArgument, "", msg)
}
func ErrInvalidRequest(msg string) *Error {
	return newErr(KindInvalidRequest, "", msg)
}
func ErrMalformedXML(msg string) *Error {
	return newErr(KindMalformedXML, "", msg)
}
func ErrMalformedPolicy(msg string) *Error {
	return newErr(KindMalformedPolicy, "", msg)
}
func ErrNoSuchBucketPolicy(bucket string) *Error {
	return newErr(KindNoSuchBucketPolicy, bucket, "the bucket policy does not exist")
}
func ErrNotImplemented(op string) *Error {
	return newErr(KindNotImplemented, op, "operation is not implemented by this emulator")
}
func ErrInternal(msg string) *Error {
	return newErr(KindInternal, "", msg)
}
func ErrDatabase(err error) *Error {
	return &Error{Kind: KindDatabase, Message: "database error", cause: err}
}

// errSpec is the per-kind (HTTP status, AWS JSON `__type`) pair from
// spec.md §4.6. Azure/GCP adapters derive their own envelope from the same
// Kind but a different vocabulary (see protocol/azure, protocol/gcp).
type errSpec struct {
	status   int
	awsCode  string
}

var errTable = map[Kind]errSpec{
	KindNoSuchBucket:       {http.StatusNotFound, "NoSuchBucket"},
	KindBucketAlreadyExists: {http.StatusConflict, "BucketAlreadyExists"},
	KindBucketNotEmpty:     {http.StatusConflict, "BucketNotEmpty"},
	KindNoSuchKey:          {http.StatusNotFound, "NoSuchKey"},
	KindNotFound:           {http.StatusNotFound, "ResourceNotFoundException"},
	KindAlreadyExists:      {http.StatusBadRequest, "ResourceInUseException"},
	KindInvalidArgument:    {http.StatusBadRequest, "ValidationException"},
	KindInvalidRequest:     {http.StatusBadRequest, "InvalidRequestException"},
	KindMalformedXML:       {http.StatusBadRequest, "MalformedXML"},
	KindMalformedPolicy:    {http.StatusBadRequest, "MalformedPolicy"},
	KindNoSuchBucketPolicy: {http.StatusNotFound, "NoSuchBucketPolicy"},
	KindNotImplemented:     {http.StatusNotImplemented, "NotImplementedException"},
	KindInternal:           {http.StatusInternalServerError, "InternalFailure"},
	KindDatabase:           {http.StatusInternalServerError, "InternalFailure"},
}

// HTTPStatus returns the status code an adapter should set for this error.
func (e *Error) HTTPStatus() int {
	if s, ok := errTable[e.Kind]; ok {
		return s.status
	}
	return http.StatusInternalServerError
}

// AWSCode returns the `__type`/error-code token AWS JSON-1.1 and Query
// protocol adapters surface for this error.
func (e *Error) AWSCode() string {
	if s, ok := errTable[e.Kind]; ok {
		return s.awsCode
	}
	return "InternalFailure"
}

// AsError recovers a *cmn.Error from err, or wraps err as KindInternal so
// adapters always have a uniform envelope to encode.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Kind: KindInternal, Message: err.Error(), cause: err}
}
