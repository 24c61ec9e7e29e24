package awsjson

import (
	"net/http"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/store"
)

// NewDynamoDB wires a DynamoDB_20120810 Service to engine. Item bodies are
// kept as opaque AttributeValue-shaped JSON (spec.md §3 "ItemJSON is
// opaque to the engine") — this adapter only ever needs to pull the
// partition/sort key out of the Key or Item map to address a row.
func NewDynamoDB(engine *store.Engine) *Service {
	s := NewService("DynamoDB_20120810")
	s.Handle("CreateTable", handleCreateTable(engine))
	s.Handle("DescribeTable", handleDescribeTable(engine))
	s.Handle("DeleteTable", handleDeleteTable(engine))
	s.Handle("ListTables", handleListTables(engine))
	s.Handle("PutItem", handlePutItem(engine))
	s.Handle("GetItem", handleGetItem(engine))
	s.Handle("DeleteItem", handleDeleteItem(engine))
	s.Handle("Query", handleQuery(engine))
	s.Handle("Scan", handleScan(engine))
	return s
}

type keySchemaElement struct {
	AttributeName string `json:"AttributeName"`
	KeyType       string `json:"KeyType"`
}

func extractKeys(keySchema []keySchemaElement, item map[string]cmn.Value) (partitionKey, sortKey string) {
	for _, ks := range keySchema {
		av, ok := item[ks.AttributeName]
		if !ok {
			continue
		}
		val := attrValueToString(av)
		if ks.KeyType == "HASH" {
			partitionKey = val
		} else if ks.KeyType == "RANGE" {
			sortKey = val
		}
	}
	return partitionKey, sortKey
}

// attrValueToString stringifies a DynamoDB AttributeValue ({"S": "..."},
// {"N": "..."}, {"B": "..."}) for use as a SQLite key column.
func attrValueToString(av cmn.Value) string {
	m, ok := av.Map()
	if !ok {
		return ""
	}
	for _, tag := range []string{"S", "N", "B"} {
		if v, ok := m[tag]; ok {
			if s, ok := v.String(); ok {
				return s
			}
		}
	}
	return ""
}

func handleCreateTable(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			TableName            string                 `json:"TableName"`
			AttributeDefinitions []interface{}           `json:"AttributeDefinitions"`
			KeySchema            []keySchemaElement      `json:"KeySchema"`
			BillingMode          string                  `json:"BillingMode"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		attrDefsJSON, _ := cmn.JSON.MarshalToString(req.AttributeDefinitions)
		keySchemaJSON, _ := cmn.JSON.MarshalToString(req.KeySchema)
		t, err := engine.CreateTable(r.Context(), req.TableName, attrDefsJSON, keySchemaJSON, req.BillingMode)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"TableDescription": tableDescription(t)})
	}
}

func tableDescription(t *store.Table) map[string]interface{} {
	var attrDefs, keySchema interface{}
	_ = cmn.JSON.UnmarshalFromString(t.AttributeDefinitions, &attrDefs)
	_ = cmn.JSON.UnmarshalFromString(t.KeySchema, &keySchema)
	return map[string]interface{}{
		"TableName":            t.Name,
		"TableArn":             t.ARN,
		"TableStatus":          "ACTIVE",
		"AttributeDefinitions": attrDefs,
		"KeySchema":            keySchema,
		"ItemCount":            t.ItemCount,
		"CreationDateTime":     t.CreatedAt,
		"BillingModeSummary":   map[string]string{"BillingMode": t.BillingMode},
	}
}

func handleDescribeTable(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			TableName string `json:"TableName"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		t, err := engine.GetTable(r.Context(), req.TableName)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"Table": tableDescription(t)})
	}
}

func handleDeleteTable(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			TableName string `json:"TableName"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		t, err := engine.GetTable(r.Context(), req.TableName)
		if err != nil {
			WriteError(w, err)
			return
		}
		if err := engine.DeleteTable(r.Context(), req.TableName); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"TableDescription": tableDescription(t)})
	}
}

func handleListTables(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		tables, err := engine.ListTables(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}
		names := make([]string, len(tables))
		for i, t := range tables {
			names[i] = t.Name
		}
		WriteJSON(w, map[string]interface{}{"TableNames": names})
	}
}

func handlePutItem(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			TableName string                 `json:"TableName"`
			Item      map[string]cmn.Value   `json:"Item"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		t, err := engine.GetTable(r.Context(), req.TableName)
		if err != nil {
			WriteError(w, err)
			return
		}
		var keySchema []keySchemaElement
		_ = cmn.JSON.UnmarshalFromString(t.KeySchema, &keySchema)
		pk, sk := extractKeys(keySchema, req.Item)
		if pk == "" {
			WriteError(w, cmn.ErrInvalidArgument("item is missing its partition key attribute"))
			return
		}
		itemJSON, _ := cmn.JSON.MarshalToString(req.Item)
		if err := engine.PutItem(r.Context(), req.TableName, pk, sk, itemJSON); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{})
	}
}

func handleGetItem(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			TableName string               `json:"TableName"`
			Key       map[string]cmn.Value `json:"Key"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		t, err := engine.GetTable(r.Context(), req.TableName)
		if err != nil {
			WriteError(w, err)
			return
		}
		var keySchema []keySchemaElement
		_ = cmn.JSON.UnmarshalFromString(t.KeySchema, &keySchema)
		pk, sk := extractKeys(keySchema, req.Key)
		item, err := engine.GetItem(r.Context(), req.TableName, pk, sk)
		if err != nil {
			// Real DynamoDB answers an absent item with an empty body, not
			// an error — surfaced here rather than in the engine.
			WriteJSON(w, map[string]interface{}{})
			return
		}
		var itemVal interface{}
		_ = cmn.JSON.UnmarshalFromString(item.ItemJSON, &itemVal)
		WriteJSON(w, map[string]interface{}{"Item": itemVal})
	}
}

func handleDeleteItem(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			TableName string               `json:"TableName"`
			Key       map[string]cmn.Value `json:"Key"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		t, err := engine.GetTable(r.Context(), req.TableName)
		if err != nil {
			WriteError(w, err)
			return
		}
		var keySchema []keySchemaElement
		_ = cmn.JSON.UnmarshalFromString(t.KeySchema, &keySchema)
		pk, sk := extractKeys(keySchema, req.Key)
		if err := engine.DeleteItem(r.Context(), req.TableName, pk, sk); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{})
	}
}

func itemsToAttrValues(items []store.Item) []interface{} {
	out := make([]interface{}, len(items))
	for i, it := range items {
		var v interface{}
		_ = cmn.JSON.UnmarshalFromString(it.ItemJSON, &v)
		out[i] = v
	}
	return out
}

func handleQuery(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			TableName                 string               `json:"TableName"`
			ExpressionAttributeValues map[string]cmn.Value `json:"ExpressionAttributeValues"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		var pk string
		for _, v := range req.ExpressionAttributeValues {
			pk = attrValueToString(v)
			break
		}
		items, err := engine.QueryByPartition(r.Context(), req.TableName, pk)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"Items": itemsToAttrValues(items), "Count": len(items)})
	}
}

func handleScan(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			TableName string `json:"TableName"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		items, err := engine.ScanTable(r.Context(), req.TableName)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"Items": itemsToAttrValues(items), "Count": len(items)})
	}
}
