// Package azure implements a thin Azure REST adapter: JSON bodies, an
// `api-version` query parameter, and an `ETag` header for optimistic
// concurrency (spec.md §9 "Azure REST"). It fronts the same KV-table
// engine DynamoDB uses, shaped like Cosmos DB's document API — Azure and
// AWS SDKs exercising the same key-value storage concept share one
// backing engine rather than each growing their own.
package azure

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/store"
)

// Adapter handles Cosmos-DB-shaped document requests rooted at
// /dbs/{db}/colls/{coll}/docs[/{id}], mapped onto the engine's KV tables:
// {db}.{coll} is the table name, document "id" is the partition key.
type Adapter struct {
	Engine *store.Engine
}

func tableName(db, coll string) string { return db + "." + coll }

// parsePath extracts (db, coll, docID) from a Cosmos-shaped URI.
// Returns ok=false for anything else.
func parsePath(path string) (db, coll, docID string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	// dbs/{db}/colls/{coll}/docs[/{id}]
	if len(parts) < 4 || parts[0] != "dbs" || parts[2] != "colls" {
		return "", "", "", false
	}
	db, coll = parts[1], parts[3]
	if len(parts) >= 6 && parts[4] == "docs" {
		docID = parts[5]
	}
	return db, coll, docID, true
}

func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	db, coll, docID, ok := parsePath(r.URL.Path)
	if !ok {
		writeError(w, cmn.ErrNotImplemented(r.URL.Path))
		return
	}
	table := tableName(db, coll)
	ctx := r.Context()

	switch {
	case r.Method == http.MethodPost && docID == "":
		a.createDocument(w, r, table)
	case r.Method == http.MethodGet && docID != "":
		a.getDocument(w, r, table, docID)
	case r.Method == http.MethodPut && docID != "":
		a.replaceDocument(w, r, table, docID)
	case r.Method == http.MethodDelete && docID != "":
		if err := a.Engine.DeleteItem(ctx, table, docID, ""); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && docID == "":
		a.listDocuments(w, r, table)
	default:
		writeError(w, cmn.ErrNotImplemented(r.Method+" "+r.URL.Path))
	}
}

func (a *Adapter) createDocument(w http.ResponseWriter, r *http.Request, table string) {
	var doc map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, cmn.ErrInvalidRequest(err.Error()))
		return
	}
	id, _ := doc["id"].(string)
	if id == "" {
		writeError(w, cmn.ErrInvalidArgument("document is missing its \"id\" field"))
		return
	}
	if _, err := a.Engine.GetTable(r.Context(), table); err != nil {
		if _, cerr := a.Engine.CreateTable(r.Context(), table, "[]", "[]", ""); cerr != nil {
			writeError(w, cerr)
			return
		}
	}
	itemJSON, _ := cmn.JSON.Marshal(doc)
	if err := a.Engine.PutItem(r.Context(), table, id, "", string(itemJSON)); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("ETag", `"`+cmn.GenShortID()+`"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(itemJSON)
}

func (a *Adapter) replaceDocument(w http.ResponseWriter, r *http.Request, table, docID string) {
	var doc map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, cmn.ErrInvalidRequest(err.Error()))
		return
	}
	doc["id"] = docID
	itemJSON, _ := cmn.JSON.Marshal(doc)
	if err := a.Engine.PutItem(r.Context(), table, docID, "", string(itemJSON)); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("ETag", `"`+cmn.GenShortID()+`"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(itemJSON)
}

func (a *Adapter) getDocument(w http.ResponseWriter, r *http.Request, table, docID string) {
	item, err := a.Engine.GetItem(r.Context(), table, docID, "")
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("ETag", `"`+cmn.GenShortID()+`"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(item.ItemJSON))
}

func (a *Adapter) listDocuments(w http.ResponseWriter, r *http.Request, table string) {
	items, err := a.Engine.ScanTable(r.Context(), table)
	if err != nil {
		writeError(w, err)
		return
	}
	docs := make([]json.RawMessage, len(items))
	for i, it := range items {
		docs[i] = json.RawMessage(it.ItemJSON)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = cmn.JSON.NewEncoder(w).Encode(map[string]interface{}{"Documents": docs, "_count": len(docs)})
}

type azureError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	e := cmn.AsError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus())
	_ = cmn.JSON.NewEncoder(w).Encode(azureError{Code: e.AWSCode(), Message: e.Error()})
}
