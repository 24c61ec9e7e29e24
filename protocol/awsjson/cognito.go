package awsjson

import (
	"net/http"
	"time"

	"github.com/NVIDIA/cloudemu/authn"
	"github.com/NVIDIA/cloudemu/store"
)

// NewCognito wires an AWSCognitoIdentityProviderService Service to engine.
// issuer mints the JWTs InitiateAuth/AdminInitiateAuth hand back; the
// emulator accepts any credentials for an existing, enabled user (spec.md's
// Non-goals exclude "full IAM policy evaluation" — there is no password
// store to check against).
func NewCognito(engine *store.Engine, issuer *authn.Issuer) *Service {
	s := NewService("AWSCognitoIdentityProviderService")
	s.Handle("CreateUserPool", handleCreateUserPool(engine))
	s.Handle("DeleteUserPool", handleDeleteUserPool(engine))
	s.Handle("CreateGroup", handleCreateGroup(engine))
	s.Handle("AdminCreateUser", handleAdminCreateUser(engine))
	s.Handle("AdminGetUser", handleAdminGetUser(engine))
	s.Handle("ListUsers", handleListUsers(engine))
	s.Handle("AdminAddUserToGroup", handleAdminAddUserToGroup(engine))
	s.Handle("AdminUpdateUserAttributes", handleAdminUpdateUserAttributes(engine))
	s.Handle("InitiateAuth", handleInitiateAuth(engine, issuer))
	s.Handle("AdminInitiateAuth", handleInitiateAuth(engine, issuer))
	return s
}

func handleInitiateAuth(engine *store.Engine, issuer *authn.Issuer) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			UserPoolId     string            `json:"UserPoolId"`
			AuthParameters map[string]string `json:"AuthParameters"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		username := req.AuthParameters["USERNAME"]
		u, err := engine.GetUser(r.Context(), req.UserPoolId, username)
		if err != nil {
			WriteError(w, err)
			return
		}
		groups, err := engine.ListGroupsForUser(r.Context(), req.UserPoolId, username)
		if err != nil {
			WriteError(w, err)
			return
		}
		tok, err := issuer.Issue(req.UserPoolId, u.Username, groups)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{
			"AuthenticationResult": map[string]interface{}{
				"IdToken":     tok.Token,
				"AccessToken": tok.Token,
				"ExpiresIn":   int(time.Until(tok.Expires).Seconds()),
				"TokenType":   "Bearer",
			},
		})
	}
}

func handleCreateUserPool(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			PoolName string `json:"PoolName"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		pool, err := engine.CreateUserPool(r.Context(), req.PoolName)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"UserPool": map[string]interface{}{
			"Id": pool.ID, "Name": pool.Name, "Arn": pool.ARN, "CreationDate": pool.CreatedAt,
		}})
	}
}

func handleDeleteUserPool(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			UserPoolId string `json:"UserPoolId"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		if err := engine.DeleteUserPool(r.Context(), req.UserPoolId); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{})
	}
}

func handleCreateGroup(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			UserPoolId  string `json:"UserPoolId"`
			GroupName   string `json:"GroupName"`
			Description string `json:"Description"`
			Precedence  int    `json:"Precedence"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		g, err := engine.CreateGroup(r.Context(), req.UserPoolId, req.GroupName, req.Description, req.Precedence)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"Group": map[string]interface{}{
			"GroupName": g.GroupName, "UserPoolId": g.UserPoolID, "CreationDate": g.CreatedAt,
		}})
	}
}

func handleAdminCreateUser(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			UserPoolId string `json:"UserPoolId"`
			Username   string `json:"Username"`
			UserAttributes []struct {
				Name  string `json:"Name"`
				Value string `json:"Value"`
			} `json:"UserAttributes"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		email := ""
		for _, a := range req.UserAttributes {
			if a.Name == "email" {
				email = a.Value
			}
		}
		u, err := engine.CreateUser(r.Context(), req.UserPoolId, req.Username, email)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"User": map[string]interface{}{
			"Username": u.Username, "UserStatus": u.Status, "Enabled": u.Enabled, "UserCreateDate": u.CreatedAt,
		}})
	}
}

func handleAdminGetUser(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			UserPoolId string `json:"UserPoolId"`
			Username   string `json:"Username"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		u, err := engine.GetUser(r.Context(), req.UserPoolId, req.Username)
		if err != nil {
			WriteError(w, err)
			return
		}
		resp := map[string]interface{}{
			"Username": u.Username, "UserStatus": u.Status, "Enabled": u.Enabled, "UserCreateDate": u.CreatedAt,
		}
		if u.Email != nil {
			resp["UserAttributes"] = []map[string]interface{}{{"Name": "email", "Value": *u.Email}}
		}
		WriteJSON(w, resp)
	}
}

func handleListUsers(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			UserPoolId string `json:"UserPoolId"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		users, err := engine.ListUsers(r.Context(), req.UserPoolId)
		if err != nil {
			WriteError(w, err)
			return
		}
		out := make([]map[string]interface{}, len(users))
		for i, u := range users {
			out[i] = map[string]interface{}{"Username": u.Username, "UserStatus": u.Status, "Enabled": u.Enabled}
		}
		WriteJSON(w, map[string]interface{}{"Users": out})
	}
}

func handleAdminAddUserToGroup(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			UserPoolId string `json:"UserPoolId"`
			Username   string `json:"Username"`
			GroupName  string `json:"GroupName"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		if err := engine.AddUserToGroup(r.Context(), req.UserPoolId, req.Username, req.GroupName); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{})
	}
}

func handleAdminUpdateUserAttributes(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			UserPoolId     string `json:"UserPoolId"`
			Username       string `json:"Username"`
			UserAttributes []struct {
				Name  string `json:"Name"`
				Value string `json:"Value"`
			} `json:"UserAttributes"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		for _, a := range req.UserAttributes {
			if err := engine.SetUserAttribute(r.Context(), req.UserPoolId, req.Username, a.Name, a.Value); err != nil {
				WriteError(w, err)
				return
			}
		}
		WriteJSON(w, map[string]interface{}{})
	}
}
