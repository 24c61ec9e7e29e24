package awsjson

import (
	"net/http"

	"github.com/NVIDIA/cloudemu/store"
)

// NewSecretsManager wires a secretsmanager Service to engine.
func NewSecretsManager(engine *store.Engine) *Service {
	s := NewService("secretsmanager")
	s.Handle("CreateSecret", handleCreateSecret(engine))
	s.Handle("DescribeSecret", handleDescribeSecret(engine))
	s.Handle("GetSecretValue", handleGetSecretValue(engine))
	s.Handle("PutSecretValue", handlePutSecretValue(engine))
	s.Handle("DeleteSecret", handleDeleteSecret(engine))
	s.Handle("ListSecrets", handleListSecrets(engine))
	return s
}

func handleCreateSecret(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			Name         string `json:"Name"`
			Description  string `json:"Description"`
			SecretString string `json:"SecretString"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		secret, err := engine.CreateSecret(r.Context(), req.Name, req.Description, req.SecretString)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"ARN": secret.ARN, "Name": secret.Name, "VersionId": "1"})
	}
}

func handleDescribeSecret(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			SecretId string `json:"SecretId"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		secret, err := engine.GetSecret(r.Context(), req.SecretId)
		if err != nil {
			WriteError(w, err)
			return
		}
		resp := map[string]interface{}{"ARN": secret.ARN, "Name": secret.Name, "CreatedDate": secret.CreatedAt}
		if secret.DeletedDate != nil {
			resp["DeletedDate"] = *secret.DeletedDate
		}
		WriteJSON(w, resp)
	}
}

func handleGetSecretValue(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			SecretId     string `json:"SecretId"`
			VersionId    string `json:"VersionId"`
			VersionStage string `json:"VersionStage"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		v, err := engine.GetSecretValue(r.Context(), req.SecretId, req.VersionId, req.VersionStage)
		if err != nil {
			WriteError(w, err)
			return
		}
		resp := map[string]interface{}{
			"ARN": v.SecretARN, "VersionId": v.VersionID, "CreatedDate": v.CreatedDate,
		}
		if v.SecretString != nil {
			resp["SecretString"] = *v.SecretString
		}
		WriteJSON(w, resp)
	}
}

func handlePutSecretValue(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			SecretId     string `json:"SecretId"`
			SecretString string `json:"SecretString"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		v, err := engine.PutSecretValue(r.Context(), req.SecretId, req.SecretString)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"ARN": v.SecretARN, "VersionId": v.VersionID})
	}
}

func handleDeleteSecret(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			SecretId string `json:"SecretId"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		if err := engine.DeleteSecret(r.Context(), req.SecretId); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{})
	}
}

func handleListSecrets(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		secrets, err := engine.ListSecrets(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}
		out := make([]map[string]interface{}, len(secrets))
		for i, s := range secrets {
			out[i] = map[string]interface{}{"ARN": s.ARN, "Name": s.Name}
		}
		WriteJSON(w, map[string]interface{}{"SecretList": out})
	}
}
