package controllers

import (
	"net/http"

	"github.com/prepjourney/prepjourney-backend/api/middleware"
	"github.com/prepjourney/prepjourney-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "admin", "status": "ok"}
		if admin := middleware.AdminIDFromContext(r.Context()); admin != "" {
			payload["admin_id"] = admin
		}
		responses.WriteSuccess(w, payload)
	}
}
