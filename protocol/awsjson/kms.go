package awsjson

import (
	"encoding/base64"
	"net/http"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/store"
)

// NewKMS wires a TrentService (KMS's historical X-Amz-Target prefix)
// Service to engine.
func NewKMS(engine *store.Engine) *Service {
	s := NewService("TrentService")
	s.Handle("CreateKey", handleCreateKey(engine))
	s.Handle("DescribeKey", handleDescribeKey(engine))
	s.Handle("ListKeys", handleListKeys(engine))
	s.Handle("DisableKey", handleSetKeyState(engine, store.KeyStateDisabled))
	s.Handle("EnableKey", handleSetKeyState(engine, store.KeyStateEnabled))
	s.Handle("ScheduleKeyDeletion", handleScheduleKeyDeletion(engine))
	s.Handle("Encrypt", handleEncrypt(engine))
	s.Handle("Decrypt", handleDecrypt(engine))
	return s
}

func keyMetadata(k *store.Key) map[string]interface{} {
	return map[string]interface{}{
		"KeyId":    k.ID,
		"Arn":      k.ARN,
		"KeyUsage": k.KeyUsage,
		"KeySpec":  k.KeySpec,
		"KeyState": k.KeyState,
		"Enabled":  k.KeyState == store.KeyStateEnabled,
		"CreationDate": k.CreatedAt,
	}
}

func handleCreateKey(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			Description string `json:"Description"`
			KeyUsage    string `json:"KeyUsage"`
			KeySpec     string `json:"KeySpec"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		k, err := engine.CreateKey(r.Context(), req.Description, req.KeyUsage, req.KeySpec)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"KeyMetadata": keyMetadata(k)})
	}
}

func handleDescribeKey(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			KeyId string `json:"KeyId"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		k, err := engine.GetKey(r.Context(), req.KeyId)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"KeyMetadata": keyMetadata(k)})
	}
}

func handleListKeys(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		keys, err := engine.ListKeys(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}
		out := make([]map[string]interface{}, len(keys))
		for i, k := range keys {
			out[i] = map[string]interface{}{"KeyId": k.ID, "KeyArn": k.ARN}
		}
		WriteJSON(w, map[string]interface{}{"Keys": out})
	}
}

func handleSetKeyState(engine *store.Engine, state string) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			KeyId string `json:"KeyId"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		if err := engine.SetKeyState(r.Context(), req.KeyId, state, ""); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{})
	}
}

func handleScheduleKeyDeletion(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			KeyId               string `json:"KeyId"`
			PendingWindowInDays int    `json:"PendingWindowInDays"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		deletionDate := cmn.NowRFC3339()
		if err := engine.SetKeyState(r.Context(), req.KeyId, store.KeyStatePendingDeletion, deletionDate); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"KeyId": req.KeyId, "DeletionDate": deletionDate})
	}
}

func handleEncrypt(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			KeyId     string `json:"KeyId"`
			Plaintext string `json:"Plaintext"` // base64, per AWS JSON-1.1 blob convention
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		plaintext, err := base64.StdEncoding.DecodeString(req.Plaintext)
		if err != nil {
			WriteError(w, cmn.ErrInvalidRequest("Plaintext is not valid base64"))
			return
		}
		ciphertext, err := engine.Encrypt(r.Context(), req.KeyId, plaintext)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{
			"CiphertextBlob": base64.StdEncoding.EncodeToString([]byte(ciphertext)),
			"KeyId":          req.KeyId,
		})
	}
}

func handleDecrypt(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			CiphertextBlob string `json:"CiphertextBlob"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		raw, err := base64.StdEncoding.DecodeString(req.CiphertextBlob)
		if err != nil {
			WriteError(w, cmn.ErrInvalidRequest("CiphertextBlob is not valid base64"))
			return
		}
		keyID, plaintext, err := engine.Decrypt(r.Context(), string(raw))
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{
			"KeyId":     keyID,
			"Plaintext": base64.StdEncoding.EncodeToString(plaintext),
		})
	}
}
